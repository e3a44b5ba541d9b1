package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal *prometheus.CounterVec
	leasedTotal  *prometheus.CounterVec
	reapedTotal  prometheus.Counter
	resultsTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbridge_signals_total",
				Help: "Total number of ingested signals by outcome",
			},
			[]string{"target", "action", "result"},
		),
		leasedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbridge_commands_leased_total",
				Help: "Total number of commands leased to pollers",
			},
			[]string{"connection_id"},
		),
		reapedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "signalbridge_commands_reaped_total",
				Help: "Total number of stale leases returned to the queue",
			},
		),
		resultsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbridge_results_total",
				Help: "Total number of reported execution results by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalbridge_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalbridge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal records an ingestion attempt.
func (r *Recorder) RecordSignal(target, action, result string) {
	r.signalsTotal.WithLabelValues(target, action, result).Inc()
}

// RecordLease records commands handed out on a poll.
func (r *Recorder) RecordLease(connectionID string, count int) {
	if count > 0 {
		r.leasedTotal.WithLabelValues(connectionID).Add(float64(count))
	}
}

// RecordReap records stale leases returned to pending.
func (r *Recorder) RecordReap(count int) {
	if count > 0 {
		r.reapedTotal.Add(float64(count))
	}
}

// RecordResult records a reported execution result.
func (r *Recorder) RecordResult(outcome string) {
	r.resultsTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
