package obs

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestObserveInsertTracksErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveInsert(0.001, nil)
	m.ObserveInsert(0.002, errors.New("boom"))

	assert.Equal(t, 2.0, counterValue(t, m.Inserts))
	assert.Equal(t, 1.0, counterValue(t, m.InsertErrors))
}

func TestNilMetricsAreSafeNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveInsert(0, nil)
		m.ObserveSearch(0, nil)
		m.ObserveSoftDelete()
		m.ObserveCompaction(0)
		m.SetTombstoneRatio(0.5)
		m.ObserveWALReplay(1, 1)
	})
}
