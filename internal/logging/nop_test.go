package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNopLoggerDoesNotPanic(t *testing.T) {
	logger := NewNop()

	require.NotPanics(t, func() {
		logger.Debug("debug", "k", 1)
		logger.Info("info")
		logger.Warn("warn", "k", "v")
		logger.Error("error", "error", nil)
		logger.Fatal("fatal does not exit")
	})
}
