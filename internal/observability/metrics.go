package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the alert engine.
type Metrics struct {
	Evaluations         *prometheus.CounterVec // labels: outcome={match,no_match}, reason
	Dispatches          prometheus.Counter
	DispatchErrors      prometheus.Counter
	GeofenceResolutions *prometheus.CounterVec // labels: result={hit,miss}
	SuburbsLoaded       prometheus.Gauge
	SuburbSyncErrors    prometheus.Counter
	EvaluationDuration  prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pixel_weather",
			Name:      "evaluations_total",
			Help:      "Alert evaluations by outcome and no-match reason.",
		}, []string{"outcome", "reason"}),
		Dispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pixel_weather",
			Name:      "dispatches_total",
			Help:      "Match decisions handed to the notification dispatcher.",
		}),
		DispatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pixel_weather",
			Name:      "dispatch_errors_total",
			Help:      "Dispatcher failures. The evaluation itself still succeeds.",
		}),
		GeofenceResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pixel_weather",
			Name:      "geofence_resolutions_total",
			Help:      "Coordinate-to-suburb resolutions by result.",
		}, []string{"result"}),
		SuburbsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pixel_weather",
			Name:      "suburbs_loaded",
			Help:      "Size of the current suburb reference snapshot.",
		}),
		SuburbSyncErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pixel_weather",
			Name:      "suburb_sync_errors_total",
			Help:      "Failed suburb reference re-syncs.",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pixel_weather",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a complete evaluation cycle including the weather lookup.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
	}
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Evaluations,
		m.Dispatches,
		m.DispatchErrors,
		m.GeofenceResolutions,
		m.SuburbsLoaded,
		m.SuburbSyncErrors,
		m.EvaluationDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// EvaluationTimer starts a timer observing into EvaluationDuration.
func (m *Metrics) EvaluationTimer() *prometheus.Timer {
	return prometheus.NewTimer(m.EvaluationDuration)
}
