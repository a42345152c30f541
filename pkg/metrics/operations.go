package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics tracks endpoint probing and reservation lifecycle outcomes.
type OperationMetrics struct {
	probeAttempts  *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	success        *prometheus.CounterVec
	failure        *prometheus.CounterVec
	cancelMismatch prometheus.Counter
	cacheLookups   *prometheus.CounterVec
}

// NewOperationMetrics registers the operation metrics on the provided registerer.
func NewOperationMetrics(reg prometheus.Registerer) *OperationMetrics {
	if reg == nil {
		return &OperationMetrics{}
	}
	probeAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "probe_attempts_total",
		Help:      "Endpoint probe attempts by logical operation and outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of reservation lifecycle operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_success_total",
		Help:      "Successful reservation lifecycle operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_failure_total",
		Help:      "Failed reservation lifecycle operations.",
	}, []string{"operation"})
	cancelMismatch := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancel_status_mismatch_total",
		Help:      "Cancellations whose confirming re-fetch did not report cancelled.",
	})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "availability_cache_lookups_total",
		Help:      "Availability cache lookups by result (hit, miss, fetch_error).",
	}, []string{"result"})
	reg.MustRegister(probeAttempts, duration, success, failure, cancelMismatch, cacheLookups)
	return &OperationMetrics{
		probeAttempts:  probeAttempts,
		duration:       duration,
		success:        success,
		failure:        failure,
		cancelMismatch: cancelMismatch,
		cacheLookups:   cacheLookups,
	}
}

// IncProbeAttempt counts one candidate tried by the endpoint prober.
func (m *OperationMetrics) IncProbeAttempt(operation, outcome string) {
	if m == nil || m.probeAttempts == nil {
		return
	}
	m.probeAttempts.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// ObserveOperation records duration and success/failure for a lifecycle operation.
func (m *OperationMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	operation = normalizeLabel(operation)
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		m.failure.WithLabelValues(operation).Inc()
		return
	}
	m.success.WithLabelValues(operation).Inc()
}

// IncCancelMismatch counts a cancellation whose final status was not confirmed.
func (m *OperationMetrics) IncCancelMismatch() {
	if m == nil || m.cancelMismatch == nil {
		return
	}
	m.cancelMismatch.Inc()
}

// IncCacheLookup counts an availability cache lookup.
func (m *OperationMetrics) IncCacheLookup(result string) {
	if m == nil || m.cacheLookups == nil {
		return
	}
	m.cacheLookups.WithLabelValues(normalizeLabel(result)).Inc()
}
