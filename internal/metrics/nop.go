// Package metrics provides MetricsCollector implementations: a no-op
// default and a Prometheus-backed collector.
package metrics

import "github.com/driftlock/sluice/types"

// NopMetrics is a MetricsCollector that discards all measurements.
//
// Used as the default when the caller does not supply a collector, so
// components never need nil checks before recording.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordClaimAttempt discards the measurement.
func (n *NopMetrics) RecordClaimAttempt(_ /* result */ string) {}

// RecordBalanceIteration discards the measurement.
func (n *NopMetrics) RecordBalanceIteration(_ /* seconds */ float64) {}

// SetOwnedPartitions discards the measurement.
func (n *NopMetrics) SetOwnedPartitions(_ /* count */ int) {}

// SetActivePumps discards the measurement.
func (n *NopMetrics) SetActivePumps(_ /* count */ int) {}

// RecordCheckpoint discards the measurement.
func (n *NopMetrics) RecordCheckpoint(_ /* partitionID */ string) {}

// RecordPumpRetry discards the measurement.
func (n *NopMetrics) RecordPumpRetry(_ /* partitionID */ string) {}

// RecordPumpClosed discards the measurement.
func (n *NopMetrics) RecordPumpClosed(_ /* reason */ string) {}
