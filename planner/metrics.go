package planner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// outcome label of a tick that aborted.
const outcomeFatal = "fatal"

type metrics struct {
	ticks      *prometheus.CounterVec
	duration   prometheus.Histogram
	candidates prometheus.Gauge
	switches   *prometheus.CounterVec
}

// newMetrics registers the planner's collectors on reg. A nil reg leaves them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		ticks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dynamicgap_ticks_total",
			Help: "Planning ticks by arbitration outcome",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dynamicgap_tick_duration_seconds",
			Help:    "Planning tick duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		}),
		candidates: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dynamicgap_candidates",
			Help: "Candidate trajectories synthesized in the last tick",
		}),
		switches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dynamicgap_trajectory_switches_total",
			Help: "Executing trajectory replacements by reason",
		}, []string{"reason"}),
	}
}
