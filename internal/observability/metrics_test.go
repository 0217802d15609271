package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/clock-sync-engine/internal/config"
)

func TestNewMetricsForTesting_Unregistered(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.SignalsReceived.WithLabelValues("structured").Inc()
	assert.InDelta(t, 1, testutil.ToFloat64(a.SignalsReceived.WithLabelValues("structured")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.SignalsReceived.WithLabelValues("structured")), 0)
}

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(true)
	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}

	m.OffsetMs.Set(-1500)
	assert.InDelta(t, -1500, testutil.ToFloat64(m.OffsetMs), 0)
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})
	require.NotNil(t, logger)
}
