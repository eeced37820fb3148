package assessment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks assessment run outcomes
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	ChecksDegraded prometheus.Counter
}

// NewMetrics registers assessment metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RunsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mse_assessment_runs_total",
			Help: "Assessment runs by outcome.",
		}, []string{"status"}),
		RunDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "mse_assessment_run_duration_seconds",
			Help:    "Wall time of complete assessment runs.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		ChecksDegraded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "mse_checks_degraded_total",
			Help: "Check modules that fell back to a zero score after an upstream failure.",
		}),
	}
}

func (m *Metrics) observeRun(status string, seconds float64) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(seconds)
}

func (m *Metrics) observeDegraded(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ChecksDegraded.Add(float64(n))
}
