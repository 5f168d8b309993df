package hnsw

import (
	"math"
	"math/rand"
	"testing"

	"github.com/evecdb/evec/internal/metric"
	"github.com/evecdb/evec/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T, dim int) (*Graph, store.Storage) {
	t.Helper()
	s := store.NewFloat32(dim)
	g, err := NewGraph(Config{M: 8, EfConstruction: 32, EfSearch: 16, Metric: metric.L2, Seed: 1}, s)
	require.NoError(t, err)
	return g, s
}

func TestInsertAndSearchFindsExactMatch(t *testing.T) {
	g, _ := newTestGraph(t, 2)
	for i := 0; i < 50; i++ {
		_, err := g.Insert([]float32{float32(i), float32(i)})
		require.NoError(t, err)
	}
	results, err := g.Search([]float32{25, 25}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-3)
}

func TestGhostRoutingChain(t *testing.T) {
	// A(0,0) -- B(10,0) -- C(20,0) in 2D L2 space, B bridges A and C.
	g, _ := newTestGraph(t, 2)
	vidA, err := g.Insert([]float32{0, 0})
	require.NoError(t, err)
	vidB, err := g.Insert([]float32{10, 0})
	require.NoError(t, err)
	vidC, err := g.Insert([]float32{20, 0})
	require.NoError(t, err)

	deleted, err := g.SoftDelete(vidB)
	require.NoError(t, err)
	assert.True(t, deleted)

	results, err := g.Search([]float32{20, 0}, 5)
	require.NoError(t, err)

	foundC, foundB := false, false
	for _, r := range results {
		if r.VectorID == vidC {
			foundC = true
		}
		if r.VectorID == vidB {
			foundB = true
		}
	}
	assert.True(t, foundC, "C must be reachable even though bridge B is tombstoned")
	assert.False(t, foundB, "a tombstoned node must never appear in results")
	_ = vidA
}

func TestSoftDeleteIdempotent(t *testing.T) {
	g, _ := newTestGraph(t, 2)
	vid, err := g.Insert([]float32{1, 1})
	require.NoError(t, err)

	first, err := g.SoftDelete(vid)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := g.SoftDelete(vid)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestSoftDeleteUnknownIdReturnsNotFound(t *testing.T) {
	g, _ := newTestGraph(t, 2)
	_, err := g.SoftDelete(999)
	require.Error(t, err)
}

func TestPathologicalLineDeletion(t *testing.T) {
	g, _ := newTestGraph(t, 4)
	var vids []uint64
	for i := 0; i < 100; i++ {
		v := []float32{float32(i), 0, 0, 0}
		vid, err := g.Insert(v)
		require.NoError(t, err)
		vids = append(vids, vid)
	}
	for i := 0; i < 99; i++ {
		_, err := g.SoftDelete(vids[i])
		require.NoError(t, err)
	}
	results, err := g.Search([]float32{99, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, vids[99], results[0].VectorID)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
}

func TestCompactionRemap(t *testing.T) {
	g, _ := newTestGraph(t, 2)
	var vids []uint64
	for i := 0; i < 10; i++ {
		vid, err := g.Insert([]float32{float32(i), 0})
		require.NoError(t, err)
		vids = append(vids, vid)
	}
	// drop every entry at an odd 0-based position (the even 1-based ids)
	for i, vid := range vids {
		if i%2 == 1 {
			_, err := g.SoftDelete(vid)
			require.NoError(t, err)
		}
	}

	newStore := store.NewFloat32(2)
	fresh, stats, idMap, err := g.Compact(newStore)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.NewSize)
	assert.Equal(t, 5, stats.TombstonesRemoved)
	assert.Equal(t, 5, fresh.Len())
	assert.Len(t, idMap, 5)
	assert.Equal(t, uint64(1), idMap[vids[0]])

	results, err := fresh.Search([]float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].VectorID, "compaction assigns fresh sequential ids starting at 1")
}

func TestBatchDeleteOutcomes(t *testing.T) {
	g, _ := newTestGraph(t, 2)
	vid, err := g.Insert([]float32{1, 1})
	require.NoError(t, err)

	result := g.SoftDeleteBatch([]uint64{vid, vid, 9999})
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 0, result.AlreadyDeleted)
	assert.Equal(t, 1, result.NotFound)
	assert.Equal(t, 2, result.UniqueCount)
	assert.Equal(t, 3, result.Total)
}

func TestLevelDrawBounds(t *testing.T) {
	counts := map[int]int{}
	for i := 0; i < 1000; i++ {
		r := &detRand{seed: int64(i + 1)}
		lvl := drawLevel(r, Config{M: 16}.levelLambda())
		counts[lvl]++
		assert.LessOrEqual(t, lvl, maxLevelCap)
	}
}

// detRand is a minimal deterministic Float64 source for level-draw tests.
type detRand struct{ seed int64 }

func (d *detRand) Float64() float64 {
	d.seed = d.seed*1103515245 + 12345
	v := (d.seed >> 16) & 0x7fffffff
	return float64(v) / float64(0x7fffffff)
}

func TestEveryInsertedNodeReachableFromEntry(t *testing.T) {
	g, _ := newTestGraph(t, 4)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		v := []float32{rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32()}
		_, err := g.Insert(v)
		require.NoError(t, err)
	}

	// BFS over all layers' edges starting at the entry point.
	require.True(t, g.hasEntry)
	seen := map[uint32]bool{g.entryPoint: true}
	queue := []uint32{g.entryPoint}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, layer := range g.nodes[cur].Links {
			for _, nb := range layer {
				if !seen[nb] {
					seen[nb] = true
					queue = append(queue, nb)
				}
			}
		}
	}
	assert.Equal(t, len(g.nodes), len(seen), "every inserted node must be reachable from the entry point")
}

func TestEveryEdgeEndpointValidAndFinite(t *testing.T) {
	g, _ := newTestGraph(t, 2)
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 100; i++ {
		_, err := g.Insert([]float32{rng.Float32() * 10, rng.Float32() * 10})
		require.NoError(t, err)
	}
	for slot, n := range g.nodes {
		for layer, links := range n.Links {
			for _, nb := range links {
				require.Less(t, int(nb), len(g.nodes), "edge endpoint out of range")
				require.GreaterOrEqual(t, g.nodes[nb].MaxLayer, layer, "neighbor must participate in the edge's layer")
				d, err := g.distTo(nb, mustVec(t, g, uint32(slot)))
				require.NoError(t, err)
				assert.False(t, math.IsNaN(float64(d)))
				assert.GreaterOrEqual(t, d, float32(0))
			}
		}
	}
}

func mustVec(t *testing.T, g *Graph, slot uint32) []float32 {
	t.Helper()
	v, err := g.vectorAt(slot)
	require.NoError(t, err)
	return v
}

func TestFullRecallWhenBeamCoversAll(t *testing.T) {
	const n = 60
	s := store.NewFloat32(3)
	g, err := NewGraph(Config{M: 8, EfConstruction: 64, EfSearch: n, Metric: metric.L2, Seed: 5}, s)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(17))
	inserted := map[uint64]bool{}
	for i := 0; i < n; i++ {
		vid, err := g.Insert([]float32{rng.Float32(), rng.Float32(), rng.Float32()})
		require.NoError(t, err)
		inserted[vid] = true
	}

	results, err := g.Search([]float32{0.5, 0.5, 0.5}, n)
	require.NoError(t, err)
	require.Len(t, results, n, "with k >= N and ef >= N no live vector may be missing")
	for _, r := range results {
		delete(inserted, r.VectorID)
	}
	assert.Empty(t, inserted)
}

func TestLevelZeroFractionExceedsBound(t *testing.T) {
	const draws = 1000
	const m = 16
	rng := rand.New(rand.NewSource(23))
	lambda := Config{M: m}.levelLambda()
	atZero := 0
	for i := 0; i < draws; i++ {
		lvl := drawLevel(rng, lambda)
		require.LessOrEqual(t, lvl, maxLevelCap)
		if lvl == 0 {
			atZero++
		}
	}
	assert.Greater(t, float64(atZero)/draws, 1-2.0/m)
}

func TestTombstoneCountMatchesBitmap(t *testing.T) {
	g, s := newTestGraph(t, 2)
	var vids []uint64
	for i := 0; i < 40; i++ {
		vid, err := g.Insert([]float32{float32(i), 1})
		require.NoError(t, err)
		vids = append(vids, vid)
	}
	rng := rand.New(rand.NewSource(29))
	for i := 0; i < 100; i++ {
		_, err := g.SoftDelete(vids[rng.Intn(len(vids))])
		require.NoError(t, err)
	}
	assert.Equal(t, s.Tombstones().Count(), s.DeletedCount())
	assert.Equal(t, s.DeletedCount(), s.Tombstones().PopCount())
}

func TestSearchWithContextMatchesSearch(t *testing.T) {
	g, _ := newTestGraph(t, 2)
	for i := 0; i < 80; i++ {
		_, err := g.Insert([]float32{float32(i % 9), float32(i / 9)})
		require.NoError(t, err)
	}
	ctx := NewSearchContext(16)
	for _, q := range [][]float32{{0, 0}, {4, 4}, {8, 8}} {
		plain, err := g.Search(q, 10)
		require.NoError(t, err)
		reused, err := g.SearchWithContext(ctx, q, 10)
		require.NoError(t, err)
		assert.Equal(t, plain, reused)
	}
}

func TestExhaustiveSearchRespectsMembership(t *testing.T) {
	g, _ := newTestGraph(t, 2)
	var vids []uint64
	for i := 0; i < 20; i++ {
		vid, err := g.Insert([]float32{float32(i), 0})
		require.NoError(t, err)
		vids = append(vids, vid)
	}
	allowed := map[uint64]bool{vids[3]: true, vids[7]: true, vids[12]: true}
	results, err := g.ExhaustiveSearch([]float32{0, 0}, 10, func(id uint64) bool { return allowed[id] })
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, vids[3], results[0].VectorID)
}
