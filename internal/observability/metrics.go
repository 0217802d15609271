package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clock_engine"

// Metrics holds the Prometheus counters, histograms, and gauges for the clock engine.
type Metrics struct {
	// Engine metrics.
	SignalsReceived *prometheus.CounterVec // labels: kind={structured,legacy}
	SignalErrors    prometheus.Counter
	SettingsUpdates *prometheus.CounterVec // labels: outcome={applied,rejected,invalid}
	DisplayUpdates  prometheus.Counter
	OffsetMs        prometheus.Gauge
	TargetOffsetMs  prometheus.Gauge
	FontLoads       *prometheus.CounterVec // labels: outcome={success,error,stale}

	// Transport metrics.
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	DecodeErrors     prometheus.Counter
	PipelineRunning  prometheus.Gauge
	MQTTConnected    prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Font fetch metrics.
	FontRequests      *prometheus.CounterVec // labels: outcome={success,error}
	FontCache         *prometheus.CounterVec // labels: result={hit,miss}
	FontFetchDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		SignalsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_received_total",
			Help:      help("Time signals applied by kind."),
		}, []string{"kind"}),
		SignalErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signal_errors_total",
			Help:      help("Malformed time signals ignored."),
		}),
		SettingsUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_updates_total",
			Help:      help("Setting values by outcome."),
		}, []string{"outcome"}),
		DisplayUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_updates_total",
			Help:      help("Display states published to listeners."),
		}),
		OffsetMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offset_ms",
			Help:      help("Offset currently applied to the local clock in milliseconds."),
		}),
		TargetOffsetMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "target_offset_ms",
			Help:      help("Offset the displayed clock is converging on in milliseconds."),
		}),
		FontLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "font_loads_total",
			Help:      help("Custom font loads by outcome."),
		}, []string{"outcome"}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      help("Total messages read from the source topic."),
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      help("Total display snapshots written to sinks."),
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      help("Inbound messages that could not be decoded or dispatched."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 when the event pipeline is active, 0 when shut down."),
		}),
		MQTTConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      help("1 while the MQTT client is connected."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      help("Number of messages per batch extracted from Kafka."),
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of a complete extract-dispatch-commit cycle."),
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		FontRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "font_requests_total",
			Help:      help("Font fetches by outcome."),
		}, []string{"outcome"}),
		FontCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "font_cache_total",
			Help:      help("Font cache lookups by result."),
		}, []string{"result"}),
		FontFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "font_fetch_duration_seconds",
			Help:      help("Font HTTP fetch duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SignalsReceived,
		m.SignalErrors,
		m.SettingsUpdates,
		m.DisplayUpdates,
		m.OffsetMs,
		m.TargetOffsetMs,
		m.FontLoads,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.DecodeErrors,
		m.PipelineRunning,
		m.MQTTConnected,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.FontRequests,
		m.FontCache,
		m.FontFetchDuration,
	}
}
