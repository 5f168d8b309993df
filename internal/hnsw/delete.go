package hnsw

import "github.com/evecdb/evec/internal/errs"

// SoftDelete tombstones id, ghost style: the node and its
// neighbor lists are left fully intact so other traversals can still
// pass through it. Returns true iff this call is the one that
// transitioned the node from live to deleted (idempotent: a second call
// on an already-deleted id returns false).
func (g *Graph) SoftDelete(vid uint64) (bool, error) {
	nodeID, ok := g.nodeFor(vid)
	if !ok {
		return false, errs.Newf(errs.IdNotFound, "vector id %d not found", vid)
	}
	prev, err := g.storage.SetDeleted(nodeID, true)
	if err != nil {
		return false, err
	}
	return !prev, nil
}

// DeleteOutcome classifies a single id in a batch soft-delete call.
type DeleteOutcome int

const (
	OutcomeDeleted DeleteOutcome = iota
	OutcomeAlreadyDeleted
	OutcomeNotFound
)

// BatchDeleteResult aggregates per-id outcomes of a batch soft delete.
type BatchDeleteResult struct {
	Deleted        int
	AlreadyDeleted int
	NotFound       int
	Total          int
	UniqueCount    int
}

// SoftDeleteBatch deduplicates ids and reports a per-id outcome summary
// rather than failing the whole batch on the first miss.
func (g *Graph) SoftDeleteBatch(ids []uint64) BatchDeleteResult {
	result := BatchDeleteResult{Total: len(ids)}
	seen := make(map[uint64]bool, len(ids))

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		result.UniqueCount++

		nodeID, ok := g.nodeFor(id)
		if !ok {
			result.NotFound++
			continue
		}
		prev, err := g.storage.SetDeleted(nodeID, true)
		if err != nil {
			result.NotFound++
			continue
		}
		if prev {
			result.AlreadyDeleted++
		} else {
			result.Deleted++
		}
	}
	return result
}

// IsDeleted reports whether vid is currently tombstoned.
func (g *Graph) IsDeleted(vid uint64) (bool, error) {
	nodeID, ok := g.nodeFor(vid)
	if !ok {
		return false, errs.Newf(errs.IdNotFound, "vector id %d not found", vid)
	}
	return g.isDeleted(nodeID), nil
}
