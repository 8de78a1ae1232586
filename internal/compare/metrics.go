package compare

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricComparisonsTotal    = "comparisons_total"
	MetricComparisonDuration  = "comparison_duration_seconds"
	MetricComparisonCandidate = "comparison_candidates"
)

// Outcome labels for comparisons_total.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics contains Prometheus metrics for comparisons.
type Metrics struct {
	comparisons *prometheus.CounterVec
	duration    prometheus.Histogram
	candidates  prometheus.Histogram
}

// NewMetrics creates comparison metrics. Call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		comparisons: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricComparisonsTotal,
				Help: "Total number of comparison requests by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricComparisonDuration,
				Help:    "Time spent fetching and scoring one comparison",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		candidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricComparisonCandidate,
				Help:    "Number of distinct candidates per comparison",
				Buckets: []float64{2, 3, 4, 5, 8, 12, 20},
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.comparisons, m.duration, m.candidates}
}

func (m *Metrics) observe(outcome string, seconds float64, candidates int) {
	if m == nil {
		return
	}
	m.comparisons.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.duration.Observe(seconds)
		m.candidates.Observe(float64(candidates))
	}
}
