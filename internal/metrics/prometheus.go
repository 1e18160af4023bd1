package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/driftlock/sluice/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Metric vectors are registered lazily on first use so constructing the
// collector never panics on duplicate registration in tests that share a
// registry.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	claimAttempts     *prometheus.CounterVec
	balanceDuration   prometheus.Histogram
	ownedPartitions   prometheus.Gauge
	activePumps       prometheus.Gauge
	checkpointsTotal  *prometheus.CounterVec
	pumpRetriesTotal  *prometheus.CounterVec
	pumpClosuresTotal *prometheus.CounterVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: metrics namespace (defaults to "sluice" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "sluice"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.claimAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "processor",
			Name:      "claim_attempts_total",
			Help:      "Total ownership claim attempts by result (claimed,lost,error).",
		}, []string{"result"})

		p.balanceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "processor",
			Name:      "balance_iteration_seconds",
			Help:      "Duration of load balancing iterations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		})

		p.ownedPartitions = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "processor",
			Name:      "owned_partitions",
			Help:      "Number of partitions currently owned by this instance.",
		})

		p.activePumps = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "pump",
			Name:      "active",
			Help:      "Number of live partition pumps.",
		})

		p.checkpointsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "pump",
			Name:      "checkpoints_total",
			Help:      "Checkpoint writes by partition.",
		}, []string{"partition"})

		p.pumpRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "pump",
			Name:      "receive_retries_total",
			Help:      "Transient receive failures that triggered a backoff, by partition.",
		}, []string{"partition"})

		p.pumpClosuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "pump",
			Name:      "closures_total",
			Help:      "Pump terminations by close reason.",
		}, []string{"reason"})

		p.reg.MustRegister(p.claimAttempts)
		p.reg.MustRegister(p.balanceDuration)
		p.reg.MustRegister(p.ownedPartitions)
		p.reg.MustRegister(p.activePumps)
		p.reg.MustRegister(p.checkpointsTotal)
		p.reg.MustRegister(p.pumpRetriesTotal)
		p.reg.MustRegister(p.pumpClosuresTotal)
	})
}

// RecordClaimAttempt increments the claim attempt counter for the result.
func (p *PrometheusCollector) RecordClaimAttempt(result string) {
	p.ensureRegistered()
	p.claimAttempts.WithLabelValues(result).Inc()
}

// RecordBalanceIteration observes one balance iteration duration.
func (p *PrometheusCollector) RecordBalanceIteration(seconds float64) {
	p.ensureRegistered()
	p.balanceDuration.Observe(seconds)
}

// SetOwnedPartitions sets the owned partition gauge.
func (p *PrometheusCollector) SetOwnedPartitions(count int) {
	p.ensureRegistered()
	p.ownedPartitions.Set(float64(count))
}

// SetActivePumps sets the live pump gauge.
func (p *PrometheusCollector) SetActivePumps(count int) {
	p.ensureRegistered()
	p.activePumps.Set(float64(count))
}

// RecordCheckpoint increments the checkpoint counter for the partition.
func (p *PrometheusCollector) RecordCheckpoint(partitionID string) {
	p.ensureRegistered()
	p.checkpointsTotal.WithLabelValues(partitionID).Inc()
}

// RecordPumpRetry increments the retry counter for the partition.
func (p *PrometheusCollector) RecordPumpRetry(partitionID string) {
	p.ensureRegistered()
	p.pumpRetriesTotal.WithLabelValues(partitionID).Inc()
}

// RecordPumpClosed increments the closure counter for the reason.
func (p *PrometheusCollector) RecordPumpClosed(reason string) {
	p.ensureRegistered()
	p.pumpClosuresTotal.WithLabelValues(reason).Inc()
}
