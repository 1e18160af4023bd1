package sluice

import "github.com/driftlock/sluice/types"

// Option configures a Processor with optional dependencies.
type Option func(*processorOptions)

// processorOptions holds optional Processor configuration.
type processorOptions struct {
	ownerID        string
	balancer       types.LoadBalancer
	partitionID    string
	startPositions types.StartPositions
	logger         types.Logger
	metrics        types.MetricsCollector
}

// WithOwnerID sets the processor's owner id instead of generating one.
//
// Owner ids are opaque; they only need to be unique within a consumer
// group's fleet. Stable ids make ownership records easier to correlate with
// instances in logs and dashboards.
//
// Parameters:
//   - ownerID: non-empty instance identifier
//
// Returns:
//   - Option: Functional option for NewProcessor
func WithOwnerID(ownerID string) Option {
	return func(o *processorOptions) {
		o.ownerID = ownerID
	}
}

// WithLoadBalancer sets the load balancing policy for balanced mode.
//
// Defaults to strategy.NewFair configured with the processor's ownership
// inactive limit. The balancer's own staleness limit must agree with the
// processor's, or the two will disagree about which owners are alive.
//
// Parameters:
//   - balancer: LoadBalancer implementation
//
// Returns:
//   - Option: Functional option for NewProcessor
//
// Example:
//
//	proc, err := sluice.NewProcessor(cfg, client, store, handlers,
//	    sluice.WithLoadBalancer(strategy.NewGreedy()))
func WithLoadBalancer(balancer types.LoadBalancer) Option {
	return func(o *processorOptions) {
		o.balancer = balancer
	}
}

// WithPartitionID pins the processor to a single partition.
//
// In this mode the processor bypasses coordination entirely: no ownership
// records are read or written and no load balancing occurs. The processor
// just keeps a pump alive for the given partition. Useful for direct
// consumption and debugging.
//
// Parameters:
//   - partitionID: the fixed partition to consume
//
// Returns:
//   - Option: Functional option for NewProcessor
func WithPartitionID(partitionID string) Option {
	return func(o *processorOptions) {
		o.partitionID = partitionID
	}
}

// WithStartPositions sets the default start positions consulted when a
// partition has no checkpoint yet.
//
// An existing checkpoint always wins; these defaults only apply to
// partitions consumed for the first time. Without them, consumption starts
// at latest.
//
// Parameters:
//   - positions: per-partition and global defaults
//
// Returns:
//   - Option: Functional option for NewProcessor
//
// Example:
//
//	proc, err := sluice.NewProcessor(cfg, client, store, handlers,
//	    sluice.WithStartPositions(sluice.StartPositions{
//	        Default: sluice.EarliestPosition(),
//	    }))
func WithStartPositions(positions types.StartPositions) Option {
	return func(o *processorOptions) {
		o.startPositions = positions
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (key-value style, like zap.SugaredLogger's Debugw family)
//
// Returns:
//   - Option: Functional option for NewProcessor
func WithLogger(logger types.Logger) Option {
	return func(o *processorOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - collector: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewProcessor
func WithMetrics(collector types.MetricsCollector) Option {
	return func(o *processorOptions) {
		o.metrics = collector
	}
}
