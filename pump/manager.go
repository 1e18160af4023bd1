package pump

import (
	"context"
	"errors"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/driftlock/sluice/internal/logging"
	"github.com/driftlock/sluice/internal/metrics"
	"github.com/driftlock/sluice/types"
)

// Manager tracks the live pumps of one processor instance, keyed by
// partition id.
//
// Invariant: at most one pump per partition. Creation is rejected while a
// pump for the partition exists, including during its shutdown window; the
// caller retries on the next coordination round.
//
// Removal happens in exactly one place, the pump's own exit path, so a pump
// self-terminating on error and a concurrent CloseAll never race on the map.
type Manager struct {
	pumps   *xsync.Map[string, *Pump]
	logger  types.Logger
	metrics types.MetricsCollector
}

// NewManager creates a pump manager.
//
// Parameters:
//   - logger: structured logger (nil for no-op)
//   - collector: metrics sink (nil for no-op)
//
// Returns:
//   - *Manager: initialized manager with no pumps
func NewManager(logger types.Logger, collector types.MetricsCollector) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if collector == nil {
		collector = metrics.NewNop()
	}

	return &Manager{
		pumps:   xsync.NewMap[string, *Pump](),
		logger:  logger,
		metrics: collector,
	}
}

// Create allocates and starts a pump for the partition described by cfg.
//
// Non-blocking: the receive loop runs in its own goroutine. Returns
// types.ErrPumpExists when a live pump already holds the partition.
//
// Parameters:
//   - cfg: pump configuration (defaults applied here)
//
// Returns:
//   - error: validation error or types.ErrPumpExists
func (m *Manager) Create(cfg Config) error {
	if cfg.PartitionID == "" {
		return errors.New("partition id is required")
	}
	if cfg.Client == nil {
		return types.ErrConsumerClientRequired
	}
	if cfg.Store == nil {
		return types.ErrCheckpointStoreRequired
	}
	if cfg.Handlers.ProcessEvents == nil {
		return types.ErrProcessEventsRequired
	}

	if cfg.Logger == nil {
		cfg.Logger = m.logger
	}
	if cfg.Metrics == nil {
		cfg.Metrics = m.metrics
	}
	cfg.applyDefaults()

	p := newPump(cfg, m)
	if _, loaded := m.pumps.LoadOrStore(cfg.PartitionID, p); loaded {
		return types.ErrPumpExists
	}

	m.metrics.SetActivePumps(m.pumps.Size())
	m.logger.Info("pump started",
		"partition_id", cfg.PartitionID,
		"consumer_group", cfg.ConsumerGroup,
	)

	go p.run()

	return nil
}

// IsReceiving reports whether a live pump exists for the partition.
func (m *Manager) IsReceiving(partitionID string) bool {
	_, ok := m.pumps.Load(partitionID)

	return ok
}

// Count returns the number of live pumps.
func (m *Manager) Count() int {
	return m.pumps.Size()
}

// PartitionIDs returns the partitions with a live pump.
func (m *Manager) PartitionIDs() []string {
	ids := make([]string, 0, m.pumps.Size())
	m.pumps.Range(func(pid string, _ *Pump) bool {
		ids = append(ids, pid)

		return true
	})

	return ids
}

// Close stops the pump for one partition with the given reason and waits
// for its clean shutdown. A missing pump is not an error.
//
// Parameters:
//   - ctx: bounds the wait
//   - partitionID: partition whose pump to stop
//   - reason: close reason passed to ProcessClose
//
// Returns:
//   - error: ctx error if the pump did not finish in time
func (m *Manager) Close(ctx context.Context, partitionID string, reason types.CloseReason) error {
	p, ok := m.pumps.Load(partitionID)
	if !ok {
		return nil
	}

	return p.Close(ctx, reason)
}

// CloseAll stops every live pump with the given reason, awaiting their
// clean shutdowns. This is the single choke point guaranteeing receiver
// release on processor shutdown.
//
// Parameters:
//   - ctx: bounds the total wait
//   - reason: close reason passed to each ProcessClose
//
// Returns:
//   - error: the first wait failure encountered, if any
func (m *Manager) CloseAll(ctx context.Context, reason types.CloseReason) error {
	var pumps []*Pump
	m.pumps.Range(func(_ string, p *Pump) bool {
		pumps = append(pumps, p)

		return true
	})

	var firstErr error
	for _, p := range pumps {
		if err := p.Close(ctx, reason); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// detach removes a terminating pump from the map. Called exclusively from
// the pump's exit path.
func (m *Manager) detach(p *Pump) {
	if cur, ok := m.pumps.Load(p.cfg.PartitionID); ok && cur == p {
		m.pumps.Delete(p.cfg.PartitionID)
	}

	m.metrics.SetActivePumps(m.pumps.Size())
}
