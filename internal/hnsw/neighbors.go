package hnsw

import "sort"

// selectNeighborsHeuristic is the classic HNSW diversity filter
// (Malkov & Yashunin): walk candidates by ascending distance to
// target, accept a candidate only if it is strictly closer to target
// than to every neighbor already accepted. Keeps hubs from forming
// out of a single tight cluster.
func (g *Graph) selectNeighborsHeuristic(candidates []Candidate, target []float32, m int) ([]uint32, error) {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })

	selected := make([]uint32, 0, m)
	selectedVecs := make([][]float32, 0, m)

	for _, c := range sorted {
		if len(selected) >= m {
			break
		}
		cVec, err := g.vectorAt(c.Node)
		if err != nil {
			return nil, err
		}
		accept := true
		for _, sv := range selectedVecs {
			if g.distance(cVec, sv) <= c.Distance {
				accept = false
				break
			}
		}
		if accept {
			selected = append(selected, c.Node)
			selectedVecs = append(selectedVecs, cVec)
		}
	}
	return selected, nil
}

// pruneNeighbors re-runs the heuristic over node's current neighbor list
// at layer when its degree exceeds target, keeping the list diverse
// instead of growing unbounded.
func (g *Graph) pruneNeighbors(nodeID uint32, layer int, target int) error {
	n := g.nodes[nodeID]
	if layer >= len(n.Links) || len(n.Links[layer]) <= target {
		return nil
	}
	nVec, err := g.vectorAt(nodeID)
	if err != nil {
		return err
	}
	candidates := make([]Candidate, 0, len(n.Links[layer]))
	for _, id := range n.Links[layer] {
		d, err := g.distTo(id, nVec)
		if err != nil {
			return err
		}
		candidates = append(candidates, Candidate{Node: id, Distance: d})
	}
	selected, err := g.selectNeighborsHeuristic(candidates, nVec, target)
	if err != nil {
		return err
	}
	n.Links[layer] = selected
	return nil
}

// connect adds a bidirectional edge between a and b at layer, then
// prunes b's list if it now exceeds target degree.
func (g *Graph) connect(a, b uint32, layer int, target int) error {
	bn := g.nodes[b]
	for len(bn.Links) <= layer {
		bn.Links = append(bn.Links, nil)
	}
	bn.Links[layer] = append(bn.Links[layer], a)
	return g.pruneNeighbors(b, layer, target)
}
