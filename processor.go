package sluice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/driftlock/sluice/internal/logging"
	"github.com/driftlock/sluice/internal/metrics"
	"github.com/driftlock/sluice/pump"
	"github.com/driftlock/sluice/strategy"
	"github.com/driftlock/sluice/types"
)

// Processor supervises consumption of one event hub by one processor
// instance within a consumer group's fleet.
//
// In balanced mode (the default) the processor runs a coordination loop:
// each round it snapshots the fleet's ownership records, asks its load
// balancer which partitions to claim, performs the claims through the
// checkpoint store's optimistic-concurrency contract, and starts a pump for
// every partition it wins. Instances never talk to each other; the store is
// the only coordination substrate, and losing a claim to a peer is a normal
// outcome, not an error.
//
// In single-partition mode (WithPartitionID) the processor skips
// coordination entirely and just keeps one pump alive.
//
// Thread safety: all public methods are safe for concurrent use.
//
// Lifecycle:
//   - Create with NewProcessor()
//   - Call Start() to begin the background loop; it returns immediately
//   - Call Stop() for graceful shutdown: pumps close with reason Shutdown
//     and owned partitions are abandoned so peers take them over at once
//
// Crash recovery is the inactivity limit: a crashed instance's records stop
// refreshing and peers reclaim them after OwnershipInactiveLimit.
type Processor struct {
	cfg      Config
	client   types.ConsumerClient
	store    types.CheckpointStore
	handlers types.EventHandlers

	ownerID        string
	target         processingTarget
	startPositions types.StartPositions

	pumps   *pump.Manager
	logger  types.Logger
	metrics types.MetricsCollector

	isRunning atomic.Bool

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// processingTarget is the explicit sum of the processor's two modes.
type processingTarget interface {
	isProcessingTarget()
}

// fixedTarget pins consumption to one partition, no coordination.
type fixedTarget struct {
	partitionID string
}

// balancedTarget consumes a fair share of all partitions via a balancer.
type balancedTarget struct {
	balancer types.LoadBalancer
}

func (fixedTarget) isProcessingTarget()    {}
func (balancedTarget) isProcessingTarget() {}

// NewProcessor creates a new Processor instance.
//
// Returns a concrete *Processor struct following the "accept interfaces,
// return structs" principle; the store, client, balancer, logger, and
// metrics dependencies are all interfaces.
//
// Parameters:
//   - cfg: Runtime configuration (defaults applied, then validated)
//   - client: Transport handle for the event hub
//   - store: Coordination and checkpoint persistence
//   - handlers: User callbacks (ProcessEvents required)
//   - opts: Optional configuration (owner id, balancer, fixed partition,
//     start positions, logger, metrics)
//
// Returns:
//   - *Processor: Initialized processor instance
//   - error: Validation error if configuration or dependencies are invalid
//
// Example:
//
//	cfg := sluice.Config{ConsumerGroup: "$Default"}
//	proc, err := sluice.NewProcessor(&cfg, client, store, sluice.EventHandlers{
//	    ProcessEvents: func(ctx context.Context, events []*sluice.Event, pc *sluice.PartitionContext) error {
//	        for _, ev := range events {
//	            handle(ev)
//	        }
//	        return pc.UpdateCheckpoint(ctx, events[len(events)-1])
//	    },
//	})
func NewProcessor(cfg *Config, client types.ConsumerClient, store types.CheckpointStore, handlers types.EventHandlers, opts ...Option) (*Processor, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if client == nil {
		return nil, ErrConsumerClientRequired
	}
	if store == nil {
		return nil, ErrCheckpointStoreRequired
	}
	if handlers.ProcessEvents == nil {
		return nil, ErrProcessEventsRequired
	}

	// Fill in missing configuration values with defaults
	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply options
	options := &processorOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Provide safe defaults for optional dependencies to avoid nil checks everywhere
	loggerInstance := options.logger
	if loggerInstance == nil {
		loggerInstance = logging.NewNop()
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	ownerID := options.ownerID
	if ownerID == "" {
		ownerID = uuid.NewString()
	}

	var target processingTarget
	if options.partitionID != "" {
		target = fixedTarget{partitionID: options.partitionID}
	} else {
		balancer := options.balancer
		if balancer == nil {
			balancer = strategy.NewFair(strategy.WithInactiveLimit(cfg.OwnershipInactiveLimit))
		}
		target = balancedTarget{balancer: balancer}
	}

	return &Processor{
		cfg:            *cfg,
		client:         client,
		store:          store,
		handlers:       handlers,
		ownerID:        ownerID,
		target:         target,
		startPositions: options.startPositions,
		pumps:          pump.NewManager(loggerInstance, metricsCollector),
		logger:         loggerInstance,
		metrics:        metricsCollector,
	}, nil
}

// ID returns the processor's owner id.
func (p *Processor) ID() string {
	return p.ownerID
}

// IsRunning reports whether the background loop is active.
func (p *Processor) IsRunning() bool {
	return p.isRunning.Load()
}

// Start launches the background loop and returns immediately.
//
// Idempotent: calling Start on a running processor logs and does nothing.
// Each run gets a fresh cancellation scope, so stop/start cycles are clean.
//
// Returns:
//   - error: always nil today; reserved for future startup validation
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning.Load() {
		p.logger.Info("processor already running", "owner_id", p.ownerID)

		return nil
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.isRunning.Store(true)

	p.wg.Add(1)
	go p.runLoop(p.ctx)

	p.logger.Info("processor started",
		"owner_id", p.ownerID,
		"event_hub", p.client.EventHubName(),
		"consumer_group", p.cfg.ConsumerGroup,
	)

	return nil
}

// Stop shuts the processor down gracefully.
//
// Sequence: cancel the run scope, mark not running, await the loop, close
// every pump with reason Shutdown, then (in balanced mode) abandon owned
// partitions so peers pick them up without waiting for the inactivity
// limit. Abandonment failures are logged, not retried: a row that cannot be
// abandoned has already been taken by a peer or will expire on its own.
//
// Idempotent after a successful run; Stop before any Start returns
// ErrNotStarted.
//
// Parameters:
//   - ctx: bounds the wait for pumps and the loop, and the abandonment writes
//
// Returns:
//   - error: ErrNotStarted, or ctx error when the run loop did not exit
//     before ctx was done; pump close failures are logged, not returned
func (p *Processor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()

		return ErrNotStarted
	}
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	wasRunning := p.isRunning.Swap(false)

	// Await the loop first; it is already cancelled and exits at its next
	// suspension point. Draining pumps only after the loop is gone closes
	// the window where a mid-round claim could start a pump behind the
	// shutdown sweep.
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Error("shutdown timeout exceeded waiting for run loop", "owner_id", p.ownerID)

		return ctx.Err()
	}

	if err := p.pumps.CloseAll(ctx, types.CloseReasonShutdown); err != nil {
		p.logger.Error("failed to close all pumps during shutdown",
			"owner_id", p.ownerID,
			"error", err,
		)
	}

	if wasRunning {
		if _, balanced := p.target.(balancedTarget); balanced {
			p.abandonOwnerships(ctx)
		}
		p.logger.Info("processor stopped", "owner_id", p.ownerID)
	}

	return nil
}

// runLoop dispatches to the mode selected at construction.
func (p *Processor) runLoop(ctx context.Context) {
	defer p.wg.Done()

	switch target := p.target.(type) {
	case fixedTarget:
		p.runSinglePartitionLoop(ctx, target.partitionID)
	case balancedTarget:
		p.runBalancedLoop(ctx, target.balancer)
	}
}

// runSinglePartitionLoop keeps one pump alive for a fixed partition.
// No ownership records are touched in this mode.
func (p *Processor) runSinglePartitionLoop(ctx context.Context, partitionID string) {
	for {
		p.startPump(ctx, partitionID)

		if !sleepInterval(ctx, p.cfg.LoadBalancingInterval) {
			return
		}
	}
}

// runBalancedLoop runs coordination rounds until cancelled.
func (p *Processor) runBalancedLoop(ctx context.Context, balancer types.LoadBalancer) {
	for {
		started := time.Now()
		p.balanceOnce(ctx, balancer)
		p.metrics.RecordBalanceIteration(time.Since(started).Seconds())

		if !sleepInterval(ctx, p.cfg.LoadBalancingInterval) {
			return
		}
	}
}

// balanceOnce performs one coordination round.
//
// Errors in any step are reported to the user's error handler and end the
// round; the loop sleeps and retries. Nothing here is fatal to the
// processor.
func (p *Processor) balanceOnce(ctx context.Context, balancer types.LoadBalancer) {
	namespace := p.client.FullyQualifiedNamespace()
	eventHub := p.client.EventHubName()

	all, err := p.store.ListOwnership(ctx, namespace, eventHub, p.cfg.ConsumerGroup)
	if err != nil {
		p.reportError(ctx, fmt.Errorf("failed to list ownership: %w", err), "")

		return
	}

	abandoned := make(map[string]types.Ownership)
	live := make(map[string]types.Ownership)
	for _, o := range all {
		if o.IsAbandoned() {
			abandoned[o.PartitionID] = o
		} else {
			live[o.PartitionID] = o
		}
	}

	partitionIDs, err := p.client.PartitionIDs(ctx)
	if err != nil {
		p.reportError(ctx, fmt.Errorf("failed to get partition ids: %w", err), "")

		return
	}

	if ctx.Err() != nil {
		return
	}

	p.closeLostPumps(ctx, live)

	toClaim := balancer.Balance(p.ownerID, live, partitionIDs)

	requests := make([]types.Ownership, 0, len(toClaim))
	requested := make(map[string]struct{}, len(toClaim))
	for _, pid := range toClaim {
		req := types.Ownership{
			FullyQualifiedNamespace: namespace,
			EventHubName:            eventHub,
			ConsumerGroup:           p.cfg.ConsumerGroup,
			PartitionID:             pid,
			OwnerID:                 p.ownerID,
		}
		// Reuse the existing row's etag: abandoned rows keep their chain
		// through the owner's graceful release, live rows through a steal.
		if o, ok := abandoned[pid]; ok {
			req.ETag = o.ETag
		} else if o, ok := live[pid]; ok {
			req.ETag = o.ETag
		}
		requests = append(requests, req)
		requested[pid] = struct{}{}
	}

	// Renew every partition we already own so our records never go stale
	// while this instance is healthy. A renewal that loses its etag race
	// means a peer stole the partition; the next round observes that.
	for pid, o := range live {
		if o.OwnerID != p.ownerID {
			continue
		}
		if _, dup := requested[pid]; dup {
			continue
		}
		requests = append(requests, o)
	}

	if len(requests) > 0 {
		claimed, err := p.store.ClaimOwnership(ctx, requests)
		if err != nil {
			p.metrics.RecordClaimAttempt("error")
			p.reportError(ctx, fmt.Errorf("failed to claim ownership: %w", err), "")

			return
		}

		// An empty result is a lost race: a peer wrote the row first. Yield
		// and let the next round observe the new state.
		for range len(requests) - len(claimed) {
			p.metrics.RecordClaimAttempt("lost")
		}

		for _, o := range claimed {
			p.metrics.RecordClaimAttempt("claimed")
			live[o.PartitionID] = o
		}
	}

	// Ensure a pump for everything we own; restarts pumps that died on a
	// terminal error while we kept the partition.
	for pid, o := range live {
		if o.OwnerID == p.ownerID {
			p.startPump(ctx, pid)
		}
	}

	p.setOwnedGauge(live)
}

// closeLostPumps closes pumps for partitions now actively owned by a peer.
//
// This happens when a peer steals a partition during rebalancing: the claim
// rotates our etag away, and the next round observes the foreign owner.
func (p *Processor) closeLostPumps(ctx context.Context, live map[string]types.Ownership) {
	for _, pid := range p.pumps.PartitionIDs() {
		o, ok := live[pid]
		if !ok || o.OwnerID == p.ownerID {
			continue
		}

		p.logger.Info("partition claimed by peer, closing pump",
			"owner_id", p.ownerID,
			"partition_id", pid,
			"new_owner", o.OwnerID,
		)
		if err := p.pumps.Close(ctx, pid, types.CloseReasonOwnershipLost); err != nil {
			p.logger.Error("failed to close lost pump",
				"partition_id", pid,
				"error", err,
			)
		}
	}
}

// startPump ensures a pump exists for the partition.
//
// Idempotent: one pump per partition per instance. Reclaiming a partition
// this instance is already pumping (e.g. refreshing a stale row) is a no-op.
func (p *Processor) startPump(ctx context.Context, partitionID string) {
	if p.pumps.IsReceiving(partitionID) {
		return
	}

	start, err := p.resolveStartPosition(ctx, partitionID)
	if err != nil {
		p.reportError(ctx, err, partitionID)

		return
	}

	err = p.pumps.Create(pump.Config{
		PartitionID:      partitionID,
		ConsumerGroup:    p.cfg.ConsumerGroup,
		Start:            start,
		Client:           p.client,
		Store:            p.store,
		Handlers:         p.handlers,
		MaxBatchSize:     p.cfg.Pump.MaxBatchSize,
		MaxRetries:       p.cfg.Pump.MaxRetries,
		RetryBackoffBase: p.cfg.Pump.RetryBackoffBase,
		RetryBackoffCap:  p.cfg.Pump.RetryBackoffCap,
		Logger:           p.logger,
		Metrics:          p.metrics,
	})
	if err != nil && !errors.Is(err, types.ErrPumpExists) {
		p.reportError(ctx, fmt.Errorf("failed to start pump for partition %s: %w", partitionID, err), partitionID)
	}
}

// resolveStartPosition resolves where a new pump should begin reading:
// existing checkpoint first, then the user's defaults, then latest.
func (p *Processor) resolveStartPosition(ctx context.Context, partitionID string) (types.StartPosition, error) {
	checkpoints, err := p.store.ListCheckpoints(ctx, p.client.FullyQualifiedNamespace(), p.client.EventHubName(), p.cfg.ConsumerGroup)
	if err != nil {
		return types.StartPosition{}, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	for _, cp := range checkpoints {
		if cp.PartitionID == partitionID {
			return types.PositionFromOffset(cp.Offset), nil
		}
	}

	return resolveDefaultPosition(p.startPositions, partitionID), nil
}

// resolveDefaultPosition picks the user default for a partition without a
// checkpoint: the per-partition entry wins over the global default, which
// wins over latest.
func resolveDefaultPosition(defaults types.StartPositions, partitionID string) types.StartPosition {
	if pos, ok := defaults.PerPartition[partitionID]; ok && !pos.IsZero() {
		return pos
	}
	if !defaults.Default.IsZero() {
		return defaults.Default
	}

	return types.LatestPosition()
}

// abandonOwnerships releases every partition this instance still owns by
// blanking the owner id in place, preserving each row's etag chain.
//
// The write result is deliberately ignored beyond logging: a row that fails
// to abandon has already been claimed by a peer.
func (p *Processor) abandonOwnerships(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
	defer cancel()

	namespace := p.client.FullyQualifiedNamespace()
	eventHub := p.client.EventHubName()

	all, err := p.store.ListOwnership(opCtx, namespace, eventHub, p.cfg.ConsumerGroup)
	if err != nil {
		p.logger.Error("failed to list ownership during abandonment",
			"owner_id", p.ownerID,
			"error", err,
		)

		return
	}

	requests := make([]types.Ownership, 0, len(all))
	for _, o := range all {
		if o.OwnerID != p.ownerID {
			continue
		}
		o.OwnerID = ""
		requests = append(requests, o)
	}
	if len(requests) == 0 {
		return
	}

	if _, err := p.store.ClaimOwnership(opCtx, requests); err != nil {
		p.logger.Error("failed to abandon ownerships",
			"owner_id", p.ownerID,
			"error", err,
		)

		return
	}

	p.metrics.SetOwnedPartitions(0)
	p.logger.Info("abandoned partition ownerships",
		"owner_id", p.ownerID,
		"partitions", len(requests),
	)
}

// reportError forwards a coordination-level error to the user handler.
//
// Cancellation is never surfaced, the partition context carries a no-op
// checkpoint sink, and handler panics are swallowed with a log entry.
func (p *Processor) reportError(ctx context.Context, err error, partitionID string) {
	if types.IsCancellation(err) || ctx.Err() != nil {
		return
	}

	p.logger.Error("processor error",
		"owner_id", p.ownerID,
		"partition_id", partitionID,
		"error", err,
	)

	h := p.handlers.ProcessError
	if h == nil {
		return
	}

	pc := types.NewPartitionContext(
		p.client.FullyQualifiedNamespace(),
		p.client.EventHubName(),
		p.cfg.ConsumerGroup,
		partitionID,
		nil, // checkpointing is meaningless outside a pump
	)

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("ProcessError panicked",
				"owner_id", p.ownerID,
				"panic", r,
			)
		}
	}()
	h(ctx, err, pc)
}

// setOwnedGauge publishes how many partitions this instance currently owns.
func (p *Processor) setOwnedGauge(live map[string]types.Ownership) {
	owned := 0
	for _, o := range live {
		if o.OwnerID == p.ownerID {
			owned++
		}
	}
	p.metrics.SetOwnedPartitions(owned)
}

// sleepInterval waits for d, returning false when ctx was cancelled first.
// Cancellation is swallowed so loops exit cleanly rather than through an
// error path.
func sleepInterval(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
