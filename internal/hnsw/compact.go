package hnsw

import (
	"time"

	"github.com/evecdb/evec/internal/store"
)

// CompactionResult reports what compaction did.
type CompactionResult struct {
	TombstonesRemoved int
	NewSize           int
	DurationMs        int64
}

// Compact rebuilds a fresh graph+storage pair over newStorage (already
// constructed for the same dimension/representation, empty) by
// re-inserting every live vector in NodeId order. The new graph gets a
// fresh sequential VectorId space starting at 1; old VectorIds are not
// preserved. Compaction is offline: callers must not use g
// concurrently with this call, and must not use g again afterward.
func (g *Graph) Compact(newStorage store.Storage) (*Graph, CompactionResult, map[uint64]uint64, error) {
	start := time.Now()

	fresh, err := NewGraph(g.cfg, newStorage)
	if err != nil {
		return nil, CompactionResult{}, nil, err
	}

	idMap := make(map[uint64]uint64)
	removed := 0
	for slot := range g.nodes {
		nodeID := uint32(slot)
		if g.isDeleted(nodeID) {
			removed++
			continue
		}
		oldVID := g.nodes[slot].VectorID
		vec, err := g.vectorAt(nodeID)
		if err != nil {
			return nil, CompactionResult{}, nil, err
		}
		newVID, err := fresh.Insert(vec)
		if err != nil {
			return nil, CompactionResult{}, nil, err
		}
		idMap[oldVID] = newVID
	}

	return fresh, CompactionResult{
		TombstonesRemoved: removed,
		NewSize:            fresh.Len(),
		DurationMs:          time.Since(start).Milliseconds(),
	}, idMap, nil
}
