package hnsw

import "sort"

// searchLayer is the layered beam search with freshly allocated
// scratch state. Hot query loops use searchLayerCtx via
// SearchWithContext instead.
func (g *Graph) searchLayer(entries []uint32, query []float32, ef int, layer int) ([]Candidate, error) {
	return g.searchLayerCtx(NewSearchContext(ef), entries, query, ef, layer)
}

// greedyDescend walks from entry down through a single layer using beam
// width 1: replace the current best with any strictly-closer neighbor,
// stop when none improves. Used above the insertion/query target layer.
func (g *Graph) greedyDescend(entry uint32, query []float32, layer int) (uint32, error) {
	current := entry
	curDist, err := g.distTo(current, query)
	if err != nil {
		return 0, err
	}
	for {
		improved := false
		n := g.nodes[current]
		if layer <= len(n.Links)-1 {
			for _, nb := range n.Links[layer] {
				d, err := g.distTo(nb, query)
				if err != nil {
					return 0, err
				}
				if d < curDist {
					curDist = d
					current = nb
					improved = true
				}
			}
		}
		if !improved {
			return current, nil
		}
	}
}

// adjustedEf widens the layer-0 beam in proportion to the tombstone
// ratio — ghosts consume beam slots without contributing results. The
// widened value is capped at 8x EfSearch and never falls below
// EfSearch; k is applied last, so the result is never less than k even
// when k exceeds the 8x cap.
func (g *Graph) adjustedEf(k int) int {
	ratio := g.TombstoneRatio()
	ef := int(float64(g.cfg.EfSearch) * (1 + 2*ratio))
	if ef < g.cfg.EfSearch {
		ef = g.cfg.EfSearch
	}
	if maxEf := g.cfg.EfSearch * 8; ef > maxEf {
		ef = maxEf
	}
	if ef < k {
		ef = k
	}
	return ef
}

// emitLive walks candidates in ascending-distance order, dropping
// tombstoned nodes and stopping at k results.
func (g *Graph) emitLive(candidates []Candidate, k int) []SearchResult {
	out := make([]SearchResult, 0, k)
	for _, c := range candidates {
		if g.isDeleted(c.Node) {
			continue
		}
		out = append(out, SearchResult{VectorID: g.nodes[c.Node].VectorID, Distance: c.Distance})
		if len(out) == k {
			break
		}
	}
	return out
}

// Search is the public top-level search. k must be > 0;
// returns at most k (VectorId, distance) pairs sorted ascending.
func (g *Graph) Search(query []float32, k int) ([]SearchResult, error) {
	if !g.hasEntry || k <= 0 {
		return nil, nil
	}

	entry := g.entryPoint
	var err error
	for layer := g.maxLayer; layer >= 1; layer-- {
		entry, err = g.greedyDescend(entry, query, layer)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := g.searchLayer([]uint32{entry}, query, g.adjustedEf(k), 0)
	if err != nil {
		return nil, err
	}
	return g.emitLive(candidates, k), nil
}

// ExhaustiveSearch scans every live node whose VectorId passes allowed
// (nil means all), computing exact distances. It is the PreFilter
// strategy's execution path: when the eligible set is small, a direct
// scan over it beats graph traversal, and when it is large the scan is
// still bounded by one distance evaluation per member.
func (g *Graph) ExhaustiveSearch(query []float32, k int, allowed func(uint64) bool) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	hits := make([]SearchResult, 0, k*2)
	for slot, n := range g.nodes {
		nodeID := uint32(slot)
		if g.isDeleted(nodeID) {
			continue
		}
		if allowed != nil && !allowed(n.VectorID) {
			continue
		}
		d, err := g.distTo(nodeID, query)
		if err != nil {
			return nil, err
		}
		hits = append(hits, SearchResult{VectorID: n.VectorID, Distance: d})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchResult is a single ranked hit.
type SearchResult struct {
	VectorID uint64
	Distance float32
}
