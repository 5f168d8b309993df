package hnsw

import (
	"math"

	"github.com/evecdb/evec/internal/errs"
)

// Insert appends v to storage and attaches it to the graph, returning
// the freshly allocated VectorId.
//
// Failure semantics: storage.Insert runs first; if graph
// attachment fails partway the storage append and any already-created
// node slot are left in place rather than rolled back — per the single-
// writer, no-concurrent-read contract this is unobservable until the
// next successful operation, and avoids the complexity of reversing a
// storage append. The only realistic failure beyond this point is an
// internal invariant violation (NodeIdOutOfBounds), which indicates
// corruption rather than a recoverable condition.
func (g *Graph) Insert(v []float32) (uint64, error) {
	if len(g.nodes) >= math.MaxUint32 {
		return 0, errs.New(errs.CapacityExceeded, "graph is at the 32-bit node id limit")
	}
	slot, err := g.storage.Insert(v)
	if err != nil {
		return 0, err
	}

	vid := g.nextVectorID
	g.nextVectorID++

	level := drawLevel(g.levelGen, g.cfg.levelLambda())
	n := &node{
		VectorID: vid,
		MaxLayer: level,
		Links:    make([][]uint32, level+1),
	}
	nodeID := slot
	g.nodes = append(g.nodes, n)
	g.vectorToNode[vid] = nodeID

	if !g.hasEntry {
		g.hasEntry = true
		g.entryPoint = nodeID
		g.maxLayer = level
		return vid, nil
	}

	entry := g.entryPoint
	for layer := g.maxLayer; layer > level; layer-- {
		entry, err = g.greedyDescend(entry, v, layer)
		if err != nil {
			return 0, err
		}
	}

	top := level
	if g.maxLayer < top {
		top = g.maxLayer
	}

	for layer := top; layer >= 0; layer-- {
		targetM := g.cfg.M
		if layer == 0 {
			targetM = g.cfg.m0()
		}

		candidates, err := g.searchLayer([]uint32{entry}, v, g.cfg.EfConstruction, layer)
		if err != nil {
			return 0, err
		}

		selected, err := g.selectNeighborsHeuristic(candidates, v, targetM)
		if err != nil {
			return 0, err
		}
		n.Links[layer] = selected

		for _, nb := range selected {
			if err := g.connect(nodeID, nb, layer, targetM); err != nil {
				return 0, err
			}
		}

		if len(candidates) > 0 {
			entry = candidates[0].Node
		}
	}

	if level > g.maxLayer {
		g.maxLayer = level
		g.entryPoint = nodeID
	}

	return vid, nil
}
