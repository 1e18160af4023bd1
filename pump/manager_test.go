package pump

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftlock/sluice/store"
	sluicetest "github.com/driftlock/sluice/testing"
	"github.com/driftlock/sluice/types"
)

func TestManagerRejectsDuplicatePump(t *testing.T) {
	consumer := sluicetest.NewFakeConsumer("ns.example.net", "telemetry", "0")
	mgr := NewManager(nil, nil)
	rec := &recorder{}

	cfg := testConfig(rec, consumer, store.NewMemory())

	require.NoError(t, mgr.Create(cfg))
	t.Cleanup(func() {
		_ = mgr.CloseAll(context.Background(), types.CloseReasonShutdown)
	})

	err := mgr.Create(cfg)
	require.ErrorIs(t, err, types.ErrPumpExists)
	require.Equal(t, 1, mgr.Count())
}

func TestManagerCreateValidation(t *testing.T) {
	consumer := sluicetest.NewFakeConsumer("ns.example.net", "telemetry", "0")
	mgr := NewManager(nil, nil)
	rec := &recorder{}
	cps := store.NewMemory()

	t.Run("missing partition id", func(t *testing.T) {
		cfg := testConfig(rec, consumer, cps)
		cfg.PartitionID = ""
		require.Error(t, mgr.Create(cfg))
	})

	t.Run("missing client", func(t *testing.T) {
		cfg := testConfig(rec, consumer, cps)
		cfg.Client = nil
		require.ErrorIs(t, mgr.Create(cfg), types.ErrConsumerClientRequired)
	})

	t.Run("missing store", func(t *testing.T) {
		cfg := testConfig(rec, consumer, cps)
		cfg.Store = nil
		require.ErrorIs(t, mgr.Create(cfg), types.ErrCheckpointStoreRequired)
	})

	t.Run("missing ProcessEvents", func(t *testing.T) {
		cfg := testConfig(rec, consumer, cps)
		cfg.Handlers.ProcessEvents = nil
		require.ErrorIs(t, mgr.Create(cfg), types.ErrProcessEventsRequired)
	})
}

func TestManagerIsReceivingLifecycle(t *testing.T) {
	consumer := sluicetest.NewFakeConsumer("ns.example.net", "telemetry", "0")
	mgr := NewManager(nil, nil)
	rec := &recorder{}

	require.False(t, mgr.IsReceiving("0"))

	require.NoError(t, mgr.Create(testConfig(rec, consumer, store.NewMemory())))
	require.True(t, mgr.IsReceiving("0"), "registered synchronously on create")

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, mgr.Close(ctx, "0", types.CloseReasonOwnershipLost))

	require.False(t, mgr.IsReceiving("0"))
	require.Equal(t, []types.CloseReason{types.CloseReasonOwnershipLost}, rec.closeReasons())

	// Closing an absent pump is not an error.
	require.NoError(t, mgr.Close(ctx, "0", types.CloseReasonShutdown))
}

func TestManagerCloseAll(t *testing.T) {
	ids := []string{"0", "1", "2", "3"}
	consumer := sluicetest.NewFakeConsumer("ns.example.net", "telemetry", ids...)
	mgr := NewManager(nil, nil)
	rec := &recorder{}
	cps := store.NewMemory()

	for _, pid := range ids {
		cfg := testConfig(rec, consumer, cps)
		cfg.PartitionID = pid
		require.NoError(t, mgr.Create(cfg))
	}
	require.Equal(t, 4, mgr.Count())
	require.ElementsMatch(t, ids, mgr.PartitionIDs())

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, mgr.CloseAll(ctx, types.CloseReasonShutdown))

	require.Zero(t, mgr.Count())
	reasons := rec.closeReasons()
	require.Len(t, reasons, 4)
	for _, reason := range reasons {
		require.Equal(t, types.CloseReasonShutdown, reason)
	}
}

func TestManagerRecreateAfterClose(t *testing.T) {
	consumer := sluicetest.NewFakeConsumer("ns.example.net", "telemetry", "0")
	mgr := NewManager(nil, nil)
	rec := &recorder{}
	cps := store.NewMemory()

	for i := range 3 {
		cfg := testConfig(rec, consumer, cps)
		require.NoError(t, mgr.Create(cfg), "round %d", i)

		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		require.NoError(t, mgr.CloseAll(ctx, types.CloseReasonShutdown))
		cancel()
	}

	require.Zero(t, mgr.Count())
	require.Len(t, rec.closeReasons(), 3)
}

func TestManagerManyPartitionsConcurrently(t *testing.T) {
	const partitions = 16

	ids := make([]string, partitions)
	for i := range partitions {
		ids[i] = fmt.Sprintf("%d", i)
	}
	consumer := sluicetest.NewFakeConsumer("ns.example.net", "telemetry", ids...)
	mgr := NewManager(nil, nil)
	rec := &recorder{}
	cps := store.NewMemory()

	for _, pid := range ids {
		cfg := testConfig(rec, consumer, cps)
		cfg.PartitionID = pid
		require.NoError(t, mgr.Create(cfg))
		consumer.Feed(pid, event("1", 1))
	}

	waitFor(t, func() bool { return rec.eventCount() == partitions }, "every pump delivered")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, mgr.CloseAll(ctx, types.CloseReasonShutdown))
	require.Zero(t, mgr.Count())
}
