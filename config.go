package evec

import (
	"fmt"

	"github.com/evecdb/evec/internal/metric"
	"github.com/evecdb/evec/internal/persist"
	"github.com/evecdb/evec/internal/quant"
	"github.com/prometheus/client_golang/prometheus"
)

// Config collects the construction-time parameters of an Index. Use the
// With* options below rather than constructing it directly; zero values
// are filled in with HNSW defaults by New.
type Config struct {
	Dimension      int
	Metric         metric.Metric
	M              int
	M0             int
	EfConstruction int
	EfSearch       int
	Seed           uint64

	StoragePath string
	WALPath     string
	MetricsReg  prometheus.Registerer
	Backend     persist.StorageBackend

	QuantizeScalar bool
	QuantizeBinary bool
	ScalarMin      []float32
	ScalarMax      []float32

	CompactionThreshold float64
	SnapshotChunkSize   int
	MaxBatchDeleteSize  int
}

// Option configures a Config. Constructed via the With* functions.
type Option func(*Config) error

func defaultConfig() Config {
	return Config{
		Metric:              metric.L2,
		M:                   16,
		M0:                  32,
		EfConstruction:      200,
		EfSearch:            50,
		CompactionThreshold: 0.30,
		SnapshotChunkSize:   1 << 20,
		MaxBatchDeleteSize:  10_000_000,
	}
}

// WithDimension sets the fixed vector dimensionality every inserted
// vector must match.
func WithDimension(dim int) Option {
	return func(c *Config) error {
		if dim <= 0 {
			return fmt.Errorf("dimension must be positive, got %d", dim)
		}
		c.Dimension = dim
		return nil
	}
}

// WithMetric selects the distance function.
func WithMetric(m metric.Metric) Option {
	return func(c *Config) error {
		c.Metric = m
		return nil
	}
}

// WithHNSW configures the graph's connectivity and search-effort
// parameters. m0 is the layer-0 degree cap; pass 0 to default to 2*m.
func WithHNSW(m, m0, efConstruction, efSearch int) Option {
	return func(c *Config) error {
		if m <= 0 || efConstruction <= 0 || efSearch <= 0 {
			return fmt.Errorf("HNSW parameters must be positive")
		}
		if m0 < 0 {
			return fmt.Errorf("m0 must not be negative")
		}
		c.M = m
		c.M0 = m0
		c.EfConstruction = efConstruction
		c.EfSearch = efSearch
		return nil
	}
}

// WithSeed fixes the RNG seed used to draw HNSW layer assignments, for
// deterministic/reproducible graph construction.
func WithSeed(seed uint64) Option {
	return func(c *Config) error {
		c.Seed = seed
		return nil
	}
}

// WithStoragePath enables snapshot persistence at path; Save/Load use it
// as the default target when called with no explicit path.
func WithStoragePath(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("storage path must not be empty")
		}
		c.StoragePath = path
		return nil
	}
}

// WithWAL enables write-ahead logging at path: every Insert/SoftDelete
// is durably framed before the in-memory graph is mutated, so a crash
// between snapshots loses nothing already Append-ed.
func WithWAL(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("WAL path must not be empty")
		}
		c.WALPath = path
		return nil
	}
}

// WithBackend selects the StorageBackend Save/Load use to persist and
// retrieve snapshot bytes. Defaults to a *persist.FileBackend writing
// plain files; pass a *persist.BadgerBackend to keep snapshots inside an
// embedded KV store instead.
func WithBackend(b persist.StorageBackend) Option {
	return func(c *Config) error {
		if b == nil {
			return fmt.Errorf("backend must not be nil")
		}
		c.Backend = b
		return nil
	}
}

// WithScalarQuantization stores vectors as per-dimension scalar-quantized
// bytes instead of raw float32, trading precision for a 4x memory
// reduction. min and max fix the per-dimension reconstruction range
// (typically established by a training pass over a representative
// sample before construction) and must both have length equal to the
// configured dimension.
func WithScalarQuantization(min, max []float32) Option {
	return func(c *Config) error {
		if c.QuantizeBinary {
			return fmt.Errorf("scalar and binary quantization are mutually exclusive")
		}
		if len(min) == 0 || len(min) != len(max) {
			return fmt.Errorf("scalar quantization range: min and max must be equal-length and non-empty")
		}
		c.QuantizeScalar = true
		c.ScalarMin = min
		c.ScalarMax = max
		return nil
	}
}

// WithTrainedScalarQuantization trains the per-dimension reconstruction
// range from a representative sample of vectors (see
// quant.TrainScalarRange) instead of requiring the caller to supply
// min/max directly. sampleRatio in (0,1] controls how much of vectors
// is scanned; pass 1.0 to scan all of them.
func WithTrainedScalarQuantization(vectors [][]float32, sampleRatio float64) Option {
	return func(c *Config) error {
		r, err := quant.TrainScalarRange(vectors, sampleRatio)
		if err != nil {
			return err
		}
		if c.QuantizeBinary {
			return fmt.Errorf("scalar and binary quantization are mutually exclusive")
		}
		c.QuantizeScalar = true
		c.ScalarMin = r.Min
		c.ScalarMax = r.Max
		return nil
	}
}

// WithBinaryQuantization stores vectors as 1-bit-per-dimension sign
// codes, searched by Hamming distance.
func WithBinaryQuantization() Option {
	return func(c *Config) error {
		if c.QuantizeScalar {
			return fmt.Errorf("scalar and binary quantization are mutually exclusive")
		}
		c.QuantizeBinary = true
		return nil
	}
}

// WithMetrics registers the index's operational counters against reg.
// Without this option the counters are created but registered with no
// registry. Every Index uses the same metric names, so two Index
// instances registered against one registry collide.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Config) error {
		c.MetricsReg = reg
		return nil
	}
}

// WithCompactionThreshold sets the tombstone ratio above which
// NeedsCompaction reports true. Must be in [0.01, 0.99].
func WithCompactionThreshold(t float64) Option {
	return func(c *Config) error {
		if t < 0.01 || t > 0.99 {
			return fmt.Errorf("compaction threshold must be in [0.01, 0.99], got %v", t)
		}
		c.CompactionThreshold = t
		return nil
	}
}

// WithSnapshotChunkSize sets the chunk size Save uses when reassembling
// a snapshot body. Values below persist.MinChunkSize are clamped by the
// persist package itself; this validates the knob is at least that
// floor up front so misconfiguration surfaces at New, not at Save.
func WithSnapshotChunkSize(n int) Option {
	return func(c *Config) error {
		if n < 64 {
			return fmt.Errorf("snapshot chunk size must be >= 64, got %d", n)
		}
		c.SnapshotChunkSize = n
		return nil
	}
}

// WithMaxBatchDeleteSize caps how many ids a single BatchSoftDelete call
// will accept, bounding the allocation its dedup pass performs.
func WithMaxBatchDeleteSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("max batch delete size must be positive, got %d", n)
		}
		c.MaxBatchDeleteSize = n
		return nil
	}
}
