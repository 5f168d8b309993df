// Package evec implements an embeddable approximate-nearest-neighbor
// vector index: an HNSW graph over pluggable (float32 / scalar-u8 /
// binary) vector storage, metadata filtering, write-ahead logging, and
// snapshot persistence.
package evec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/evecdb/evec/internal/errs"
	"github.com/evecdb/evec/internal/hnsw"
	"github.com/evecdb/evec/internal/meta"
	"github.com/evecdb/evec/internal/metric"
	"github.com/evecdb/evec/internal/obs"
	"github.com/evecdb/evec/internal/persist"
	"github.com/evecdb/evec/internal/store"
	"github.com/vmihailenco/msgpack/v5"
)

// Index composes a graph, its vector storage, a metadata store, an
// optional write-ahead log, a persistence backend, and optional metrics
// into one embeddable unit. It holds no internal lock: the index is
// single-writer, and an outer synchronization
// primitive is the caller's responsibility if shared across goroutines.
type Index struct {
	cfg     Config
	graph   *hnsw.Graph
	storage store.Storage
	meta    *meta.Store
	wal     *persist.WAL
	backend persist.StorageBackend
	metrics *obs.Metrics

	// bqOriginals caches the pre-quantization float vector for every id
	// inserted through InsertBQ, so SearchBQRescored can compute exact
	// distances over a small candidate set. Only populated when
	// cfg.QuantizeBinary is set; nil otherwise.
	bqOriginals map[uint64][]float32
}

// New constructs an Index from options. WithDimension is required; every
// other knob defaults per defaultConfig. If WithWAL was supplied, any
// frames already on disk are replayed before New returns, reconstructing
// whatever state was durable as of the last crash or close.
func New(opts ...Option) (*Index, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("evec: %w", err)
		}
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("evec: dimension must be set via WithDimension")
	}

	storage, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}
	graph, err := hnsw.NewGraph(hnswConfig(cfg), storage)
	if err != nil {
		return nil, err
	}

	backend := cfg.Backend
	if backend == nil {
		backend = persist.NewFileBackend()
	}

	idx := &Index{
		cfg:     cfg,
		graph:   graph,
		storage: storage,
		meta:    meta.NewStore(),
		backend: backend,
		metrics: obs.NewMetrics(cfg.MetricsReg),
	}
	if cfg.QuantizeBinary {
		idx.bqOriginals = make(map[uint64][]float32)
	}

	if cfg.WALPath != "" {
		w, err := persist.OpenWAL(cfg.WALPath)
		if err != nil {
			return nil, err
		}
		idx.wal = w
		if err := idx.replayWAL(); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

func newStorage(cfg Config) (store.Storage, error) {
	switch {
	case cfg.QuantizeBinary:
		return store.NewBinary(cfg.Dimension)
	case cfg.QuantizeScalar:
		return store.NewScalarU8(cfg.Dimension, cfg.ScalarMin, cfg.ScalarMax)
	default:
		return store.NewFloat32(cfg.Dimension), nil
	}
}

func hnswConfig(cfg Config) hnsw.Config {
	m := cfg.Metric
	if cfg.QuantizeBinary {
		m = metric.HammingSign
	}
	return hnsw.Config{
		M:              cfg.M,
		M0:             cfg.M0,
		EfConstruction: cfg.EfConstruction,
		EfSearch:       cfg.EfSearch,
		Metric:         m,
		Seed:           int64(cfg.Seed),
	}
}

// replayWAL reapplies every well-formed frame already on disk. Because
// the graph and storage start empty and Insert always assigns the next
// sequential VectorId, replaying Insert frames strictly in recorded
// order reproduces the exact same VectorId sequence that produced them.
func (idx *Index) replayWAL() error {
	frames, err := idx.wal.Replay()
	if err != nil {
		return err
	}
	replayed := 0
	for _, f := range frames {
		switch f.Type {
		case persist.RecordInsert:
			rec, err := persist.DecodeInsert(f)
			if err != nil {
				return err
			}
			vid, err := idx.graph.Insert(rec.Vector)
			if err != nil {
				return err
			}
			if vid != rec.VectorID {
				return errs.Newf(errs.Io, "WAL replay produced VectorId %d, expected %d", vid, rec.VectorID)
			}
		case persist.RecordSoftDelete:
			rec, err := persist.DecodeSoftDelete(f)
			if err != nil {
				return err
			}
			if _, err := idx.graph.SoftDelete(rec.VectorID); err != nil {
				return err
			}
		case persist.RecordSetMetadata:
			rec, err := persist.DecodeSetMetadata(f)
			if err != nil {
				return err
			}
			var v meta.Value
			if err := msgpack.Unmarshal(rec.Value, &v); err != nil {
				return err
			}
			// A frame that fails validation (e.g. the write that overflowed
			// the per-vector key cap) was rejected in-memory when it was
			// first attempted; skipping it reproduces that state.
			if err := idx.meta.Set(rec.VectorID, rec.Key, v); err != nil {
				continue
			}
		}
		replayed++
	}
	idx.metrics.ObserveWALReplay(replayed, 0)
	return nil
}

// Insert appends v and attaches it to the graph.
// Durability order when a WAL is configured: append+fsync the WAL frame
// first, then mutate storage/graph — a crash between the two is
// recoverable by replay on the next New; a crash before the WAL append
// loses the insert entirely; the WAL append is the logical append point.
// Every input invariant is checked before the WAL append: a rejected
// vector must never reach the log, or replay would re-reject it and
// leave the index unloadable.
func (idx *Index) Insert(v []float32) (id uint64, err error) {
	start := time.Now()
	defer func() { idx.metrics.ObserveInsert(time.Since(start).Seconds(), err) }()

	if err := store.ValidateVector(idx.cfg.Dimension, v); err != nil {
		return 0, err
	}

	if idx.wal != nil {
		nextID := idx.graph.PeekNextVectorID()
		if _, werr := idx.wal.Append(persist.RecordInsert, persist.InsertRecord{VectorID: nextID, Vector: v}); werr != nil {
			return 0, werr
		}
	}

	id, err = idx.graph.Insert(v)
	return id, err
}

// InsertWithId validates the requested id's shape (it must be non-zero;
// zero is the none sentinel) but assigns the next sequential VectorId
// regardless of what was requested. This method exists for migration call sites that supply an
// id; callers must not assume the returned id equals requestedID.
func (idx *Index) InsertWithId(requestedID uint64, v []float32) (uint64, error) {
	if requestedID == 0 {
		return 0, errs.New(errs.InvalidId, "requested id must not be the zero sentinel")
	}
	return idx.Insert(v)
}

// Search returns the approximate k nearest live vectors, sorted
// ascending by distance.
func (idx *Index) Search(query []float32, k int) (results []hnsw.SearchResult, err error) {
	start := time.Now()
	defer func() { idx.metrics.ObserveSearch(time.Since(start).Seconds(), err) }()

	if len(query) != idx.cfg.Dimension {
		return nil, errs.DimMismatch(idx.cfg.Dimension, len(query))
	}
	idx.metrics.SetTombstoneRatio(idx.graph.TombstoneRatio())
	results, err = idx.graph.Search(query, k)
	return results, err
}

// SearchContext carries reusable search scratch buffers across
// SearchWithContext calls; see hnsw.SearchContext.
type SearchContext = hnsw.SearchContext

// NewSearchContext returns a SearchContext sized for the index's
// configured search beam width.
func (idx *Index) NewSearchContext() *SearchContext {
	return hnsw.NewSearchContext(idx.cfg.EfSearch)
}

// SearchWithContext is Search reusing ctx's scratch buffers, for query
// loops that want to amortize the beam search's per-call allocations. ctx must not be shared across goroutines.
func (idx *Index) SearchWithContext(ctx *SearchContext, query []float32, k int) (results []hnsw.SearchResult, err error) {
	start := time.Now()
	defer func() { idx.metrics.ObserveSearch(time.Since(start).Seconds(), err) }()

	if len(query) != idx.cfg.Dimension {
		return nil, errs.DimMismatch(idx.cfg.Dimension, len(query))
	}
	results, err = idx.graph.SearchWithContext(ctx, query, k)
	return results, err
}

// Stats is a point-in-time diagnostic snapshot of an Index.
type Stats struct {
	Vectors        int
	Deleted        int
	TombstoneRatio float64
	Dimension      int
	Metric         string
	SimdLevel      string
}

// Stats reports counts, the tombstone ratio, and the SIMD tier the
// distance kernels dispatched to on this machine.
func (idx *Index) Stats() Stats {
	return Stats{
		Vectors:        idx.graph.Len(),
		Deleted:        idx.storage.DeletedCount(),
		TombstoneRatio: idx.graph.TombstoneRatio(),
		Dimension:      idx.cfg.Dimension,
		Metric:         idx.cfg.Metric.String(),
		SimdLevel:      string(metric.CurrentLevel()),
	}
}

// Len returns the number of vectors in the index, tombstoned included.
func (idx *Index) Len() int { return idx.graph.Len() }

// DeletedCount returns the number of currently tombstoned vectors.
func (idx *Index) DeletedCount() int { return idx.storage.DeletedCount() }

// IsDeleted reports whether id is currently tombstoned.
func (idx *Index) IsDeleted(id uint64) (bool, error) { return idx.graph.IsDeleted(id) }

// SoftDelete tombstones id. Returns true iff this call transitioned it
// from live to deleted.
func (idx *Index) SoftDelete(id uint64) (bool, error) {
	if idx.wal != nil {
		if _, err := idx.wal.Append(persist.RecordSoftDelete, persist.SoftDeleteRecord{VectorID: id}); err != nil {
			return false, err
		}
	}
	deleted, err := idx.graph.SoftDelete(id)
	if err == nil && deleted {
		idx.metrics.ObserveSoftDelete()
	}
	return deleted, err
}

// BatchItem is one (optional requested id, vector) pair for BatchInsert.
// RequestedID is advisory only, per InsertWithId's documented semantics.
type BatchItem struct {
	RequestedID uint64
	Vector      []float32
}

// BatchInsertResult reports per-item outcomes of a best-effort batch
// insert: duplicate requested ids are skipped, other per-item failures
// are aggregated rather than aborting the whole call.
type BatchInsertResult struct {
	Ids     []uint64
	Skipped int
	Errors  []error
}

// BatchInsert inserts every item, invoking progress(done, total) at
// roughly 10% intervals. A duplicate RequestedID (one already seen
// earlier in this same call) is skipped without error; any other
// per-item failure is recorded in the result rather than aborting the
// remaining items.
func (idx *Index) BatchInsert(items []BatchItem, progress func(done, total int)) (BatchInsertResult, error) {
	result := BatchInsertResult{Ids: make([]uint64, 0, len(items))}
	seenRequested := make(map[uint64]bool, len(items))
	total := len(items)
	progressStep := total / 10
	if progressStep == 0 {
		progressStep = 1
	}

	for i, item := range items {
		if item.RequestedID != 0 && seenRequested[item.RequestedID] {
			result.Skipped++
		} else {
			if item.RequestedID != 0 {
				seenRequested[item.RequestedID] = true
			}
			id, err := idx.Insert(item.Vector)
			if err != nil {
				result.Errors = append(result.Errors, err)
			} else {
				result.Ids = append(result.Ids, id)
			}
		}

		if progress != nil && ((i+1)%progressStep == 0 || i+1 == total) {
			progress(i+1, total)
		}
	}
	return result, nil
}

// BatchSoftDelete tombstones every id in ids, deduplicating and
// reporting a per-id outcome summary rather than failing the whole call
// on the first miss. Rejects the call outright if len(ids) exceeds the
// configured MaxBatchDeleteSize.
func (idx *Index) BatchSoftDelete(ids []uint64) (hnsw.BatchDeleteResult, error) {
	if len(ids) > idx.cfg.MaxBatchDeleteSize {
		return hnsw.BatchDeleteResult{}, errs.Newf(errs.CapacityExceeded, "batch delete of %d ids exceeds max %d", len(ids), idx.cfg.MaxBatchDeleteSize)
	}
	if idx.wal != nil {
		for _, id := range ids {
			if _, err := idx.wal.Append(persist.RecordSoftDelete, persist.SoftDeleteRecord{VectorID: id}); err != nil {
				return hnsw.BatchDeleteResult{}, err
			}
		}
	}
	result := idx.graph.SoftDeleteBatch(ids)
	for i := 0; i < result.Deleted; i++ {
		idx.metrics.ObserveSoftDelete()
	}
	return result, nil
}

// NeedsCompaction reports whether the live graph's tombstone ratio
// exceeds the configured CompactionThreshold.
func (idx *Index) NeedsCompaction() bool {
	return idx.graph.NeedsCompaction(idx.cfg.CompactionThreshold)
}

// CompactionWarning returns a human-readable advisory when NeedsCompaction
// is true, or "" otherwise.
func (idx *Index) CompactionWarning() string {
	if !idx.NeedsCompaction() {
		return ""
	}
	return fmt.Sprintf("tombstone ratio %.2f exceeds compaction threshold %.2f; call Compact to reclaim space",
		idx.graph.TombstoneRatio(), idx.cfg.CompactionThreshold)
}

// Compact rebuilds the graph and storage with tombstoned entries
// dropped. Every live VectorId is reassigned a fresh
// sequential id; metadata keyed by the old id is migrated forward using
// the id map the graph's compaction returns. Compact truncates the WAL
// on success, since the WAL's recorded VectorIds refer to the pre-
// compaction id space.
func (idx *Index) Compact() (hnsw.CompactionResult, error) {
	start := time.Now()

	freshStorage, err := newStorage(idx.cfg)
	if err != nil {
		return hnsw.CompactionResult{}, err
	}
	freshGraph, stats, idMap, err := idx.graph.Compact(freshStorage)
	if err != nil {
		return hnsw.CompactionResult{}, err
	}

	freshMeta := meta.NewStore()
	for oldID, newID := range idMap {
		for key, v := range idx.meta.MapFor(oldID) {
			if err := freshMeta.Set(newID, key, v); err != nil {
				return hnsw.CompactionResult{}, err
			}
		}
	}

	if idx.bqOriginals != nil {
		freshOriginals := make(map[uint64][]float32, len(idMap))
		for oldID, newID := range idMap {
			if v, ok := idx.bqOriginals[oldID]; ok {
				freshOriginals[newID] = v
			}
		}
		idx.bqOriginals = freshOriginals
	}

	idx.graph = freshGraph
	idx.storage = freshStorage
	idx.meta = freshMeta

	if idx.wal != nil {
		if err := idx.wal.Truncate(); err != nil {
			return hnsw.CompactionResult{}, err
		}
	}

	idx.metrics.ObserveCompaction(time.Since(start).Seconds())
	idx.metrics.SetTombstoneRatio(idx.graph.TombstoneRatio())
	return stats, nil
}

// Save serializes the index to path via the configured backend,
// in the .evec snapshot format, and truncates the WAL
// (the snapshot now supersedes everything it recorded). An empty path
// falls back to the WithStoragePath option.
func (idx *Index) Save(path string) error {
	if path == "" {
		path = idx.cfg.StoragePath
	}
	if path == "" {
		return errs.New(errs.Io, "no snapshot path: pass one to Save or configure WithStoragePath")
	}
	vectorData, err := idx.encodeVectorPayload()
	if err != nil {
		return err
	}
	nodeData, poolData := encodeTopology(idx.graph)
	metaData, err := idx.encodeMetadata()
	if err != nil {
		return err
	}

	header := persist.NewFileHeader(uint32(idx.cfg.Dimension))
	header.VectorCount = uint64(idx.graph.Len())
	header.RngSeed = idx.cfg.Seed
	header.HnswM = uint32(idx.cfg.M)
	header.HnswM0 = uint32(effectiveM0(idx.cfg))
	header.DeletedCount = uint32(idx.storage.DeletedCount())
	if idx.cfg.QuantizeScalar || idx.cfg.QuantizeBinary {
		header.Flags |= persist.FlagQuantized
	}

	snap := persist.Snapshot{
		Header:       header,
		VectorData:   vectorData,
		NodeData:     nodeData,
		PoolData:     poolData,
		Tombstones:   idx.storage.Tombstones().Bytes(),
		MetadataData: metaData,
	}
	opts := persist.Options{ChunkSize: idx.cfg.SnapshotChunkSize, Compress: true}
	if err := persist.WriteSnapshot(idx.backend, path, snap, opts); err != nil {
		return err
	}
	if idx.wal != nil {
		return idx.wal.Truncate()
	}
	return nil
}

// Load reads a snapshot previously written by Save and reconstructs a
// fresh Index. Options override construction-time knobs not carried by
// the snapshot itself (WAL path, metrics registry, backend); Dimension,
// the HNSW M and M0 parameters, and the representation kind are taken
// from the snapshot's header and payload and need not be (and should not
// conflict with) the caller's options. EfConstruction and EfSearch are
// not stored in the snapshot and come from the options (or defaults).
// An empty path falls back to the WithStoragePath option.
func Load(path string, opts ...Option) (*Index, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("evec: %w", err)
		}
	}
	if path == "" {
		path = cfg.StoragePath
	}
	backend := cfg.Backend
	if backend == nil {
		backend = persist.NewFileBackend()
	}

	snap, err := persist.ReadSnapshot(backend, path)
	if err != nil {
		return nil, err
	}

	cfg.Dimension = int(snap.Header.Dimensions)
	cfg.M = int(snap.Header.HnswM)
	cfg.M0 = int(snap.Header.HnswM0)
	// header.RngSeed is reserved and ignored on load; the
	// reloaded graph's level draws are irrelevant anyway since its
	// topology is restored from the snapshot rather than redrawn.

	storage, topology, err := decodeSections(cfg, snap)
	if err != nil {
		return nil, err
	}
	switch s := storage.(type) {
	case *store.BinaryStorage:
		cfg.QuantizeBinary = true
	case *store.ScalarU8Storage:
		cfg.QuantizeScalar = true
		cfg.ScalarMin, cfg.ScalarMax = s.Range()
	}
	graph, err := hnsw.ImportTopology(hnswConfig(cfg), storage, topology.nodes, topology.pool, topology.entryPoint, topology.hasEntry, topology.maxLayer)
	if err != nil {
		return nil, err
	}

	metaStore := meta.NewStore()
	if snap.MetadataData != nil {
		decoded := make(map[uint64]meta.Map)
		if err := msgpack.Unmarshal(snap.MetadataData, &decoded); err != nil {
			return nil, errs.Wrap(errs.Io, err, "decode metadata section")
		}
		for id, m := range decoded {
			for k, v := range m {
				if err := metaStore.Set(id, k, v); err != nil {
					return nil, err
				}
			}
		}
	}

	idx := &Index{
		cfg:     cfg,
		graph:   graph,
		storage: storage,
		meta:    metaStore,
		backend: backend,
		metrics: obs.NewMetrics(cfg.MetricsReg),
	}
	if cfg.QuantizeBinary {
		// The snapshot format only persists the active (packed-bit)
		// representation, so the exact pre-quantization floats that
		// back SearchBQRescored's precision don't survive a Save/Load
		// round trip; SearchBQRescored falls back to the lossy ±1
		// reconstruction for ids with no cached original.
		idx.bqOriginals = make(map[uint64][]float32)
	}

	if cfg.WALPath != "" {
		w, err := persist.OpenWAL(cfg.WALPath)
		if err != nil {
			return nil, err
		}
		idx.wal = w
		if err := idx.replayWAL(); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

func effectiveM0(cfg Config) int {
	if cfg.M0 > 0 {
		return cfg.M0
	}
	return 2 * cfg.M
}

// encodeVectorPayload serializes the active storage representation as
// the snapshot's vector section. Float32 is the bare N*dim float
// stream; scalar-u8 leads with its per-dimension min/max reconstruction
// ranges; binary is the packed bitstream as stored. The reader infers
// which quantized form it is looking at from the section's length (the
// two lengths can never coincide for the same dim and count).
func (idx *Index) encodeVectorPayload() ([]byte, error) {
	var buf bytes.Buffer
	le := binary.LittleEndian
	writeF32 := func(v float32) {
		var b [4]byte
		le.PutUint32(b[:], math.Float32bits(v))
		buf.Write(b[:])
	}

	switch s := idx.storage.(type) {
	case *store.Float32Storage:
		for _, f := range s.Raw() {
			writeF32(f)
		}
	case *store.ScalarU8Storage:
		min, max := s.Range()
		for _, f := range min {
			writeF32(f)
		}
		for _, f := range max {
			writeF32(f)
		}
		buf.Write(s.Raw())
	case *store.BinaryStorage:
		buf.Write(s.Raw())
	default:
		return nil, fmt.Errorf("evec: unsupported storage kind for persistence: %T", s)
	}
	return buf.Bytes(), nil
}

// encodeTopology flattens the graph into the snapshot's node array and
// neighbor pool sections. Each node record is the fixed 16-byte form
// (VectorId u64, neighbor byte offset u32, neighbor u32 count u16,
// max layer u8, pad u8); offsets count bytes from the start of the
// pool section, so a node's run spans [offset, offset+len*4).
func encodeTopology(g *hnsw.Graph) (nodeData, poolData []byte) {
	nodes, pool, _, _, _ := g.ExportTopology()
	le := binary.LittleEndian

	nodeData = make([]byte, 0, len(nodes)*persist.NodeRecordSize)
	var rec [persist.NodeRecordSize]byte
	for _, n := range nodes {
		le.PutUint64(rec[0:8], n.VectorID)
		le.PutUint32(rec[8:12], n.NeighborOffset*4)
		le.PutUint16(rec[12:14], n.NeighborLen)
		rec[14] = n.MaxLayer
		rec[15] = 0
		nodeData = append(nodeData, rec[:]...)
	}

	poolData = make([]byte, 4*len(pool))
	for i, p := range pool {
		le.PutUint32(poolData[i*4:], p)
	}
	return nodeData, poolData
}

type decodedTopology struct {
	nodes      []hnsw.NodeRecord
	pool       []uint32
	entryPoint uint32
	hasEntry   bool
	maxLayer   int
}

// decodeSections reconstructs storage and topology from a snapshot's
// sections. The entry point is not persisted; like max_layer it is
// derived from the node records — the first node to have attained the
// overall maximum layer, which is exactly the node insertion promoted
// to entry.
func decodeSections(cfg Config, snap *persist.Snapshot) (store.Storage, decodedTopology, error) {
	dim := int(snap.Header.Dimensions)
	count := int(snap.Header.VectorCount)
	if dim <= 0 {
		return nil, decodedTopology{}, errs.New(errs.BufferTooShort, "snapshot header carries no dimensionality")
	}

	tomb := store.LoadBytes(count, snap.Tombstones)

	s, err := decodeVectorPayload(snap.Header, dim, count, snap.VectorData, tomb)
	if err != nil {
		return nil, decodedTopology{}, err
	}

	if len(snap.NodeData) != count*persist.NodeRecordSize {
		return nil, decodedTopology{}, errs.New(errs.BufferTooShort, "node array length disagrees with vector count")
	}
	if len(snap.PoolData)%4 != 0 {
		return nil, decodedTopology{}, errs.New(errs.UnalignedBuffer, "neighbor pool is not a whole number of u32 entries")
	}

	le := binary.LittleEndian
	nodes := make([]hnsw.NodeRecord, count)
	topo := decodedTopology{nodes: nodes, hasEntry: count > 0}
	for i := range nodes {
		rec := snap.NodeData[i*persist.NodeRecordSize:]
		byteOffset := le.Uint32(rec[8:12])
		if byteOffset%4 != 0 {
			return nil, decodedTopology{}, errs.New(errs.UnalignedBuffer, "neighbor offset is not u32-aligned")
		}
		nodes[i] = hnsw.NodeRecord{
			VectorID:       le.Uint64(rec[0:8]),
			NeighborOffset: byteOffset / 4,
			NeighborLen:    le.Uint16(rec[12:14]),
			MaxLayer:       rec[14],
		}
		if int(rec[14]) > topo.maxLayer || i == 0 {
			topo.maxLayer = int(rec[14])
			topo.entryPoint = uint32(i)
		}
	}

	pool := make([]uint32, len(snap.PoolData)/4)
	for i := range pool {
		pool[i] = le.Uint32(snap.PoolData[i*4:])
	}
	topo.pool = pool

	return s, topo, nil
}

// decodeVectorPayload rebuilds the storage variant the vector section
// holds. Unquantized sections are the N*dim float stream; with the
// quantized flag set, the section length distinguishes binary
// (count*dim/8 bytes) from scalar-u8 (8*dim range bytes + count*dim
// payload bytes) — the two can never be equal.
func decodeVectorPayload(h *persist.FileHeader, dim, count int, data []byte, tomb *store.Tombstones) (store.Storage, error) {
	le := binary.LittleEndian
	readF32 := func(off int) float32 {
		return math.Float32frombits(le.Uint32(data[off:]))
	}

	if h.Flags&persist.FlagQuantized == 0 {
		if len(data) != count*dim*4 {
			return nil, errs.New(errs.BufferTooShort, "vector payload length disagrees with header")
		}
		vec := make([]float32, count*dim)
		for i := range vec {
			vec[i] = readF32(i * 4)
		}
		return store.LoadFloat32(dim, vec, tomb)
	}

	switch len(data) {
	case count * dim / 8:
		return store.LoadBinary(dim, data, tomb)
	case 8*dim + count*dim:
		min := make([]float32, dim)
		max := make([]float32, dim)
		for i := 0; i < dim; i++ {
			min[i] = readF32(i * 4)
			max[i] = readF32((dim + i) * 4)
		}
		return store.LoadScalarU8(dim, min, max, data[8*dim:], tomb)
	default:
		return nil, errs.New(errs.BufferTooShort, "quantized vector payload matches neither binary nor scalar layout")
	}
}

// encodeMetadata msgpack-encodes the full VectorId -> Map table.
func (idx *Index) encodeMetadata() ([]byte, error) {
	all := idx.meta.All()
	if len(all) == 0 {
		return nil, nil
	}
	return msgpack.Marshal(all)
}
