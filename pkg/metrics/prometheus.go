package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	observations *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastValue    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		observations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_observations_stored_total",
				Help: "Total number of observations written to a backend",
			},
			[]string{"backend", "series"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macropull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastValue: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "macropull_last_value",
				Help: "Last recorded value for a series",
			},
			[]string{"series"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "macropull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordObservationStored records an observation written to a backend.
func (r *Recorder) RecordObservationStored(backend, series string) {
	r.observations.WithLabelValues(backend, series).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastValue records the latest value for a series.
func (r *Recorder) RecordLastValue(series string, value float64) {
	r.lastValue.WithLabelValues(series).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
