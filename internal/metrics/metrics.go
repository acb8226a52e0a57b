package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	Conversions *prometheus.CounterVec
	Duration    prometheus.Histogram
	InFlight    prometheus.Gauge
}

// New registers the pipeline collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tube2mp3_conversions_total",
			Help: "Conversions by outcome category.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tube2mp3_conversion_duration_seconds",
			Help:    "Time from validation to the start of streaming.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tube2mp3_conversions_in_flight",
			Help: "Conversions currently in the pipeline.",
		}),
	}
	reg.MustRegister(m.Conversions, m.Duration, m.InFlight)
	return m
}
