// Package hnsw implements the hierarchical navigable small-world graph:
// insertion, layered beam search, soft deletion with ghost routing, and
// offline compaction, over a pluggable vector store.
package hnsw

import (
	"math"
	"math/rand"

	"github.com/evecdb/evec/internal/errs"
	"github.com/evecdb/evec/internal/metric"
	"github.com/evecdb/evec/internal/store"
)

const maxLevelCap = 16

// Config is the per-graph HNSW configuration. It is
// immutable after NewGraph.
type Config struct {
	M              int
	M0             int // target degree at layer 0; 0 means 2*M
	EfConstruction int
	EfSearch       int
	Metric         metric.Metric
	Seed           int64 // 0 means seed from system entropy
}

func (c Config) levelLambda() float64 {
	return 1.0 / math.Log(float64(c.M))
}

func (c Config) m0() int {
	if c.M0 > 0 {
		return c.M0
	}
	return 2 * c.M
}

func (c *Config) validate() error {
	if c.M < 2 {
		return errs.New(errs.Unknown, "M must be >= 2")
	}
	if c.EfConstruction < 1 {
		return errs.New(errs.Unknown, "EfConstruction must be >= 1")
	}
	if c.EfSearch < 1 {
		return errs.New(errs.Unknown, "EfSearch must be >= 1")
	}
	return nil
}

// node is the graph-internal handle for a vector.
// Links holds, per layer, the neighbor NodeIds — the idiomatic Go
// equivalent of the design note's shared neighbor arena: a slice of
// slices gives the same sequential-read locality per node without
// hand-rolled offset/length bookkeeping into a byte buffer.
type node struct {
	VectorID uint64
	MaxLayer int
	Links    [][]uint32 // Links[l] = neighbor NodeIds at layer l
}

// Graph is the HNSW index over a NodeId-addressed store.Storage. It
// holds no internal lock: the index is single-writer and
// synchronization, if needed across goroutines, is the caller's.
type Graph struct {
	cfg Config

	nodes        []*node
	vectorToNode map[uint64]uint32
	nextVectorID uint64

	hasEntry   bool
	entryPoint uint32
	maxLayer   int

	levelGen *rand.Rand
	distance metric.Func

	storage store.Storage
}

// NewGraph creates an empty graph over storage, which must already be
// constructed for the configured dimension and representation.
func NewGraph(cfg Config, storage store.Storage) (*Graph, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Graph{
		cfg:          cfg,
		vectorToNode: make(map[uint64]uint32),
		nextVectorID: 1,
		levelGen:     rand.New(rand.NewSource(seed)),
		distance:     metric.ForMetric(cfg.Metric),
		storage:      storage,
	}, nil
}

func (g *Graph) Len() int { return len(g.nodes) }

// PeekNextVectorID returns the VectorId the next Insert call will
// allocate, without mutating anything. Used by WAL-backed inserts to
// record the id a frame will produce before the graph mutation that
// actually produces it.
func (g *Graph) PeekNextVectorID() uint64 { return g.nextVectorID }

// nodeFor returns the NodeId a VectorId currently maps to.
func (g *Graph) nodeFor(vid uint64) (uint32, bool) {
	n, ok := g.vectorToNode[vid]
	return n, ok
}

// VectorSlot exposes the storage slot a live VectorId currently occupies,
// for callers that need to read the raw stored representation directly
// (e.g. BQ rescoring falling back to the packed sign reconstruction).
func (g *Graph) VectorSlot(vid uint64) (uint32, bool) {
	return g.nodeFor(vid)
}

func (g *Graph) vectorAt(slot uint32) ([]float32, error) {
	return g.storage.Get(slot)
}

func (g *Graph) isDeleted(slot uint32) bool {
	d, err := g.storage.IsDeleted(slot)
	if err != nil {
		return false
	}
	return d
}

func (g *Graph) distTo(slot uint32, query []float32) (float32, error) {
	v, err := g.vectorAt(slot)
	if err != nil {
		return 0, err
	}
	return g.distance(query, v), nil
}

// TombstoneRatio returns deleted/total, 0 for an empty graph.
func (g *Graph) TombstoneRatio() float64 {
	if len(g.nodes) == 0 {
		return 0
	}
	return float64(g.storage.DeletedCount()) / float64(len(g.nodes))
}

// NeedsCompaction reports whether the tombstone ratio exceeds threshold,
// per the ghost-recall-degradation design note.
func (g *Graph) NeedsCompaction(threshold float64) bool {
	return g.TombstoneRatio() > threshold
}
