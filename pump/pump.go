package pump

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/driftlock/sluice/types"
)

// Pump is the receive loop for a single partition.
//
// A pump owns exactly one partition receiver at a time. It delivers batches
// to the user's ProcessEvents handler strictly in order: the next batch is
// not fetched until the previous invocation returns. Transient receive
// failures close and reopen the receiver with jittered backoff, resuming
// just after the last delivered event; once consecutive failures exceed
// MaxRetries the pump reports the error and closes itself with reason
// PumpError.
//
// ProcessClose is invoked exactly once on every termination path, and the
// receiver is always released.
type Pump struct {
	cfg Config
	mgr *Manager // detach target; nil when constructed outside a Manager

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	reasonSet atomic.Bool
	reason    atomic.Int32

	partition *types.PartitionContext

	// receive-loop state, touched only by the run goroutine
	backoff  *retryBackoff
	failures int
	lastSeq  int64
	hasLast  bool
}

// newPump builds a pump from a defaulted config. The pump's lifetime is
// decoupled from any caller context; it ends via Close or a terminal error.
func newPump(cfg Config, mgr *Manager) *Pump {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pump{
		cfg:     cfg,
		mgr:     mgr,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		backoff: newRetryBackoff(cfg.RetryBackoffBase, cfg.RetryBackoffCap, cfg.RetryBackoffMultiplier, cfg.RetrySeed),
	}

	p.partition = types.NewPartitionContext(
		cfg.Client.FullyQualifiedNamespace(),
		cfg.Client.EventHubName(),
		cfg.ConsumerGroup,
		cfg.PartitionID,
		p.updateCheckpoint,
	)

	return p
}

// PartitionID returns the partition this pump receives from.
func (p *Pump) PartitionID() string {
	return p.cfg.PartitionID
}

// Done returns a channel closed when the pump has fully terminated:
// receiver released and ProcessClose delivered.
func (p *Pump) Done() <-chan struct{} {
	return p.done
}

// Close stops the pump with the given reason and waits for its clean
// shutdown.
//
// The first reason supplied (by Close or by a terminal error inside the
// pump) wins; later calls only wait.
//
// Parameters:
//   - ctx: bounds the wait for the pump to finish
//   - reason: why the pump is being closed
//
// Returns:
//   - error: ctx error if the pump did not finish in time
func (p *Pump) Close(ctx context.Context, reason types.CloseReason) error {
	p.setReason(reason)
	p.cancel()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drives the receive loop until cancellation or a terminal error.
func (p *Pump) run() {
	defer close(p.done)
	defer p.finish()

	initialized := false

	for {
		if p.ctx.Err() != nil {
			return
		}

		recv, err := p.open(p.ctx)
		if err != nil {
			if types.IsCancellation(err) {
				return
			}
			if !p.retry(fmt.Errorf("failed to open receiver for partition %s: %w", p.cfg.PartitionID, err)) {
				return
			}

			continue
		}

		if !initialized {
			initialized = true
			p.initialize()
		}

		err = p.receiveLoop(recv)
		p.closeReceiver(recv)
		if err == nil {
			// Cancelled; reason was set by the closer (or defaults to Shutdown).
			return
		}

		if !p.retry(fmt.Errorf("failed to receive from partition %s: %w", p.cfg.PartitionID, err)) {
			return
		}
	}
}

// receiveLoop fetches and delivers batches until cancellation (nil return)
// or a receive error (non-nil return; the caller decides whether to retry).
func (p *Pump) receiveLoop(recv types.PartitionReceiver) error {
	for {
		events, err := recv.ReceiveEvents(p.ctx, p.cfg.MaxBatchSize)
		if err != nil {
			if p.ctx.Err() != nil || types.IsCancellation(err) {
				return nil
			}

			return err
		}

		p.failures = 0
		p.backoff.reset()

		if len(events) == 0 {
			continue
		}

		p.deliver(events)

		last := events[len(events)-1]
		p.lastSeq = last.SequenceNumber
		p.hasLast = true
	}
}

// deliver hands one batch to the user handler, in order.
func (p *Pump) deliver(events []*types.Event) {
	if err := p.cfg.Handlers.ProcessEvents(p.ctx, events, p.partition); err != nil {
		p.reportError(fmt.Errorf("ProcessEvents failed for partition %s: %w", p.cfg.PartitionID, err))
	}
}

// open creates a receiver at the pump's current resume position: just after
// the last delivered event once any batch has been seen, the configured
// start position otherwise.
func (p *Pump) open(ctx context.Context) (types.PartitionReceiver, error) {
	start := p.cfg.Start
	if p.hasLast {
		start = types.PositionFromSequenceNumber(p.lastSeq)
	}

	return p.cfg.Client.NewPartitionReceiver(ctx, p.cfg.PartitionID, p.cfg.ConsumerGroup, start)
}

// retry accounts one transient failure, reports it, and sleeps the next
// backoff delay. Returns false when the pump should terminate: either the
// retry budget is exhausted (reason PumpError) or the sleep was cancelled.
func (p *Pump) retry(err error) bool {
	p.failures++
	p.cfg.Metrics.RecordPumpRetry(p.cfg.PartitionID)
	p.reportError(err)

	if p.failures > p.cfg.MaxRetries {
		p.cfg.Logger.Error("pump retry budget exhausted",
			"partition_id", p.cfg.PartitionID,
			"failures", p.failures,
			"error", err,
		)
		p.setReason(types.CloseReasonPumpError)

		return false
	}

	delay := p.backoff.next()
	p.cfg.Logger.Warn("pump receive failed, backing off",
		"partition_id", p.cfg.PartitionID,
		"delay", delay,
		"failures", p.failures,
	)

	return p.sleep(delay)
}

// sleep waits for d, returning false if the pump was cancelled first.
func (p *Pump) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// initialize invokes the optional ProcessInitialize handler.
func (p *Pump) initialize() {
	h := p.cfg.Handlers.ProcessInitialize
	if h == nil {
		return
	}
	if err := h(p.ctx, p.partition); err != nil {
		p.reportError(fmt.Errorf("ProcessInitialize failed for partition %s: %w", p.cfg.PartitionID, err))
	}
}

// finish detaches from the manager and delivers ProcessClose exactly once.
func (p *Pump) finish() {
	if p.mgr != nil {
		p.mgr.detach(p)
	}

	reason := p.closeReason()
	p.cfg.Metrics.RecordPumpClosed(reason.String())
	p.cfg.Logger.Info("pump closed",
		"partition_id", p.cfg.PartitionID,
		"reason", reason.String(),
	)

	h := p.cfg.Handlers.ProcessClose
	if h == nil {
		return
	}

	// The run context is already cancelled; give the handler its own bounded one.
	ctx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Error("ProcessClose panicked",
				"partition_id", p.cfg.PartitionID,
				"panic", r,
			)
		}
	}()
	h(ctx, reason, p.partition)
}

// closeReceiver releases the receiver with a bounded context.
func (p *Pump) closeReceiver(recv types.PartitionReceiver) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultCloseTimeout)
	defer cancel()

	if err := recv.Close(ctx); err != nil {
		p.cfg.Logger.Warn("failed to close receiver",
			"partition_id", p.cfg.PartitionID,
			"error", err,
		)
	}
}

// reportError forwards a partition-scoped error to the user handler.
//
// Cancellation never reaches the handler, and handler panics are swallowed
// with a log entry.
func (p *Pump) reportError(err error) {
	if types.IsCancellation(err) {
		return
	}

	h := p.cfg.Handlers.ProcessError
	if h == nil {
		p.cfg.Logger.Error("partition pump error",
			"partition_id", p.cfg.PartitionID,
			"error", err,
		)

		return
	}

	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Error("ProcessError panicked",
				"partition_id", p.cfg.PartitionID,
				"panic", r,
			)
		}
	}()
	h(p.ctx, err, p.partition)
}

// updateCheckpoint persists the given event's position for this partition.
// Bound into the pump's PartitionContext.
func (p *Pump) updateCheckpoint(ctx context.Context, event *types.Event) error {
	cp := types.Checkpoint{
		FullyQualifiedNamespace: p.partition.FullyQualifiedNamespace,
		EventHubName:            p.partition.EventHubName,
		ConsumerGroup:           p.partition.ConsumerGroup,
		PartitionID:             p.cfg.PartitionID,
		Offset:                  event.Offset,
		SequenceNumber:          event.SequenceNumber,
	}

	if err := p.cfg.Store.UpdateCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("failed to update checkpoint for partition %s: %w", p.cfg.PartitionID, err)
	}

	p.cfg.Metrics.RecordCheckpoint(p.cfg.PartitionID)

	return nil
}

// setReason records the close reason; the first caller wins.
func (p *Pump) setReason(reason types.CloseReason) {
	if p.reasonSet.CompareAndSwap(false, true) {
		p.reason.Store(int32(reason))
	}
}

// closeReason returns the recorded reason, defaulting to Shutdown when the
// pump was cancelled without one.
func (p *Pump) closeReason() types.CloseReason {
	if !p.reasonSet.Load() {
		return types.CloseReasonShutdown
	}

	return types.CloseReason(p.reason.Load())
}
