// Package obs wires the index's operational counters into Prometheus.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/histogram the index updates. A nil
// *Metrics is valid everywhere it's used (see the nil-receiver methods
// below), so metrics stay fully optional for callers who don't want a
// process-wide Prometheus registry touched.
type Metrics struct {
	Inserts          prometheus.Counter
	InsertErrors     prometheus.Counter
	InsertLatency    prometheus.Histogram
	Searches         prometheus.Counter
	SearchErrors     prometheus.Counter
	SearchLatency    prometheus.Histogram
	SoftDeletes      prometheus.Counter
	Compactions      prometheus.Counter
	CompactionLatency prometheus.Histogram
	TombstoneRatio   prometheus.Gauge
	WALFramesReplayed prometheus.Counter
	WALFramesSkipped prometheus.Counter
}

// NewMetrics returns a fresh Metrics set registered against reg. With a
// nil reg the collectors are created unregistered, so an application
// that never supplies a registry pays nothing and multiple Index
// instances never collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Inserts: factory.NewCounter(prometheus.CounterOpts{
			Name: "evec_inserts_total",
			Help: "Total vectors inserted.",
		}),
		InsertErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "evec_insert_errors_total",
			Help: "Total insert operations that returned an error.",
		}),
		InsertLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "evec_insert_latency_seconds",
			Help: "Insert latency in seconds.",
		}),
		Searches: factory.NewCounter(prometheus.CounterOpts{
			Name: "evec_searches_total",
			Help: "Total search queries executed.",
		}),
		SearchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "evec_search_errors_total",
			Help: "Total search queries that returned an error.",
		}),
		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "evec_search_latency_seconds",
			Help: "Search latency in seconds.",
		}),
		SoftDeletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "evec_soft_deletes_total",
			Help: "Total vectors transitioned to tombstoned.",
		}),
		Compactions: factory.NewCounter(prometheus.CounterOpts{
			Name: "evec_compactions_total",
			Help: "Total compaction runs.",
		}),
		CompactionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "evec_compaction_latency_seconds",
			Help: "Compaction latency in seconds.",
		}),
		TombstoneRatio: factory.NewGauge(prometheus.GaugeOpts{
			Name: "evec_tombstone_ratio",
			Help: "Fraction of live+tombstoned nodes that are tombstoned.",
		}),
		WALFramesReplayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "evec_wal_frames_replayed_total",
			Help: "Total WAL frames successfully replayed on open.",
		}),
		WALFramesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "evec_wal_frames_skipped_total",
			Help: "Total WAL frames discarded due to truncation or checksum mismatch.",
		}),
	}
}

func (m *Metrics) ObserveInsert(seconds float64, err error) {
	if m == nil {
		return
	}
	m.Inserts.Inc()
	m.InsertLatency.Observe(seconds)
	if err != nil {
		m.InsertErrors.Inc()
	}
}

func (m *Metrics) ObserveSearch(seconds float64, err error) {
	if m == nil {
		return
	}
	m.Searches.Inc()
	m.SearchLatency.Observe(seconds)
	if err != nil {
		m.SearchErrors.Inc()
	}
}

func (m *Metrics) ObserveSoftDelete() {
	if m == nil {
		return
	}
	m.SoftDeletes.Inc()
}

func (m *Metrics) ObserveCompaction(seconds float64) {
	if m == nil {
		return
	}
	m.Compactions.Inc()
	m.CompactionLatency.Observe(seconds)
}

func (m *Metrics) SetTombstoneRatio(ratio float64) {
	if m == nil {
		return
	}
	m.TombstoneRatio.Set(ratio)
}

func (m *Metrics) ObserveWALReplay(replayed, skipped int) {
	if m == nil {
		return
	}
	m.WALFramesReplayed.Add(float64(replayed))
	m.WALFramesSkipped.Add(float64(skipped))
}
