package hnsw

import "github.com/evecdb/evec/internal/errs"

// SearchContext holds the scratch state of one layered beam search — the
// visited set and both priority queues — so a caller issuing many
// queries against the same graph can reuse the allocations across calls
// instead of paying them per query. A context must not be shared across
// goroutines, matching the single-writer contract.
type SearchContext struct {
	visited  map[uint32]bool
	frontier *minHeap
	results  *maxHeap
}

// NewSearchContext returns a context sized for beam width ef.
func NewSearchContext(ef int) *SearchContext {
	if ef < 1 {
		ef = 1
	}
	return &SearchContext{
		visited:  make(map[uint32]bool, ef*4),
		frontier: newMinHeap(ef * 2),
		results:  newMaxHeap(ef),
	}
}

func (c *SearchContext) reset() {
	for k := range c.visited {
		delete(c.visited, k)
	}
	c.frontier.items = c.frontier.items[:0]
	c.results.items = c.results.items[:0]
}

// searchLayerCtx is the layered beam search running over ctx's scratch
// buffers. Tombstoned nodes are never filtered here — ghost routing
// requires they remain fully traversable stepping stones; filtering
// happens only in the caller's final emission step.
func (g *Graph) searchLayerCtx(ctx *SearchContext, entries []uint32, query []float32, ef int, layer int) ([]Candidate, error) {
	ctx.reset()
	visited := ctx.visited
	frontier := ctx.frontier
	results := ctx.results

	for _, e := range entries {
		if int(e) >= len(g.nodes) {
			return nil, errs.Newf(errs.NodeIdOutOfBounds, "entry node %d out of bounds", e)
		}
		if visited[e] {
			continue
		}
		visited[e] = true
		d, err := g.distTo(e, query)
		if err != nil {
			return nil, err
		}
		c := Candidate{Node: e, Distance: d}
		frontier.push(c)
		results.push(c)
	}

	for frontier.Len() > 0 {
		current, _ := frontier.pop()

		if results.Len() >= ef {
			worst, _ := results.top()
			if current.Distance > worst.Distance {
				break
			}
		}

		n := g.nodes[current.Node]
		if layer > len(n.Links)-1 {
			continue
		}
		for _, nb := range n.Links[layer] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			d, err := g.distTo(nb, query)
			if err != nil {
				return nil, err
			}
			c := Candidate{Node: nb, Distance: d}
			frontier.push(c)

			if results.Len() < ef {
				results.push(c)
			} else {
				worst, _ := results.top()
				if c.Distance < worst.Distance {
					results.pop()
					results.push(c)
				}
			}
		}
	}

	return results.sortedAscending(), nil
}

// SearchWithContext is Search with the scratch buffers supplied by the
// caller, for query loops that want to amortize allocations.
func (g *Graph) SearchWithContext(ctx *SearchContext, query []float32, k int) ([]SearchResult, error) {
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

	candidates, err := g.searchLayerCtx(ctx, []uint32{entry}, query, g.adjustedEf(k), 0)
	if err != nil {
		return nil, err
	}
	return g.emitLive(candidates, k), nil
}
