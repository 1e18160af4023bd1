package sluice

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	cfg := Config{}
	SetDefaults(&cfg)

	require.Equal(t, DefaultConsumerGroup, cfg.ConsumerGroup)
	require.Equal(t, DefaultLoadBalancingInterval, cfg.LoadBalancingInterval)
	require.Equal(t, DefaultOwnershipInactiveLimit, cfg.OwnershipInactiveLimit)
	require.Equal(t, DefaultOperationTimeout, cfg.OperationTimeout)
}

func TestSetDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		ConsumerGroup:          "audit",
		LoadBalancingInterval:  time.Second,
		OwnershipInactiveLimit: 5 * time.Second,
		OperationTimeout:       2 * time.Second,
	}
	SetDefaults(&cfg)

	require.Equal(t, "audit", cfg.ConsumerGroup)
	require.Equal(t, time.Second, cfg.LoadBalancingInterval)
	require.Equal(t, 5*time.Second, cfg.OwnershipInactiveLimit)
	require.Equal(t, 2*time.Second, cfg.OperationTimeout)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{}
		SetDefaults(&cfg)

		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())
	})

	t.Run("empty consumer group", func(t *testing.T) {
		cfg := valid()
		cfg.ConsumerGroup = ""
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("inactive limit must exceed balancing interval", func(t *testing.T) {
		cfg := valid()
		cfg.LoadBalancingInterval = time.Minute
		cfg.OwnershipInactiveLimit = time.Minute
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})

	t.Run("negative operation timeout", func(t *testing.T) {
		cfg := valid()
		cfg.OperationTimeout = -time.Second
		require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "processor.yaml")
		content := `
consumerGroup: audit
loadBalancingInterval: 5s
ownershipInactiveLimit: 30s
operationTimeout: 3s
pump:
  maxBatchSize: 50
  maxRetries: 4
  retryBackoffBase: 100ms
  retryBackoffCap: 2s
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		require.Equal(t, "audit", cfg.ConsumerGroup)
		require.Equal(t, 5*time.Second, cfg.LoadBalancingInterval)
		require.Equal(t, 30*time.Second, cfg.OwnershipInactiveLimit)
		require.Equal(t, 3*time.Second, cfg.OperationTimeout)
		require.Equal(t, 50, cfg.Pump.MaxBatchSize)
		require.Equal(t, 4, cfg.Pump.MaxRetries)
		require.Equal(t, 100*time.Millisecond, cfg.Pump.RetryBackoffBase)
		require.Equal(t, 2*time.Second, cfg.Pump.RetryBackoffCap)
	})

	t.Run("sparse file gets defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "processor.yaml")
		require.NoError(t, os.WriteFile(path, []byte("consumerGroup: audit\n"), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		require.Equal(t, "audit", cfg.ConsumerGroup)
		require.Equal(t, DefaultLoadBalancingInterval, cfg.LoadBalancingInterval)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "processor.yaml")
		content := "loadBalancingInterval: 2m\nownershipInactiveLimit: 1m\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		_, err := LoadConfig(path)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "processor.yaml")
		require.NoError(t, os.WriteFile(path, []byte(":\n\t- nope"), 0o600))

		_, err := LoadConfig(path)
		require.Error(t, err)
	})
}
