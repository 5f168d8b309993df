package hnsw

import (
	"github.com/evecdb/evec/internal/errs"
	"github.com/evecdb/evec/internal/store"
)

// NodeRecord is the in-memory form of one packed graph node record:
// the node's VectorId plus an offset/length run into the shared
// neighbor pool. NeighborOffset and NeighborLen count u32 pool
// entries; the snapshot encoder converts the offset to bytes when it
// writes the fixed 16-byte on-disk form.
type NodeRecord struct {
	VectorID       uint64
	NeighborOffset uint32
	NeighborLen    uint16
	MaxLayer       uint8
}

// ExportTopology flattens every node's per-layer neighbor lists into a
// single neighbor pool plus one packed NodeRecord per slot, in NodeId
// order, for persistence. Within a node's pool run, the first
// MaxLayer+1 u32s are each layer's neighbor count, followed by the
// concatenated neighbor NodeIds layer by layer — recording the layer
// boundaries this way keeps the on-disk node record itself fixed-size
// regardless of how many layers a node spans.
func (g *Graph) ExportTopology() (nodes []NodeRecord, pool []uint32, entryPoint uint32, hasEntry bool, maxLayer int) {
	nodes = make([]NodeRecord, len(g.nodes))
	for i, n := range g.nodes {
		offset := uint32(len(pool))
		for _, layerLinks := range n.Links {
			pool = append(pool, uint32(len(layerLinks)))
		}
		for _, layerLinks := range n.Links {
			pool = append(pool, layerLinks...)
		}
		nodes[i] = NodeRecord{
			VectorID:       n.VectorID,
			NeighborOffset: offset,
			NeighborLen:    uint16(len(pool) - int(offset)),
			MaxLayer:       uint8(n.MaxLayer),
		}
	}
	return nodes, pool, g.entryPoint, g.hasEntry, g.maxLayer
}

// ImportTopology reconstructs a Graph over storage (which must already
// hold the same vectors, in the same slot order, as when ExportTopology
// ran) from a previously exported node/pool pair.
func ImportTopology(cfg Config, storage store.Storage, nodes []NodeRecord, pool []uint32, entryPoint uint32, hasEntry bool, maxLayer int) (*Graph, error) {
	g, err := NewGraph(cfg, storage)
	if err != nil {
		return nil, err
	}
	g.nodes = make([]*node, len(nodes))

	for i, rec := range nodes {
		numLayers := int(rec.MaxLayer) + 1
		start := uint64(rec.NeighborOffset)
		if start+uint64(numLayers) > uint64(len(pool)) {
			return nil, errs.New(errs.BufferTooShort, "neighbor pool truncated before layer-length header")
		}
		lens := pool[start : start+uint64(numLayers)]
		cursor := start + uint64(numLayers)

		links := make([][]uint32, numLayers)
		for l, ln := range lens {
			if cursor+uint64(ln) > uint64(len(pool)) {
				return nil, errs.New(errs.BufferTooShort, "neighbor pool truncated mid-layer")
			}
			links[l] = append([]uint32(nil), pool[cursor:cursor+uint64(ln)]...)
			cursor += uint64(ln)
		}

		nd := &node{VectorID: rec.VectorID, MaxLayer: int(rec.MaxLayer), Links: links}
		g.nodes[i] = nd
		g.vectorToNode[rec.VectorID] = uint32(i)
		if rec.VectorID >= g.nextVectorID {
			g.nextVectorID = rec.VectorID + 1
		}
	}

	g.entryPoint = entryPoint
	g.hasEntry = hasEntry
	g.maxLayer = maxLayer
	return g, nil
}
