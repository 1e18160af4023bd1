package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsCancellation(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		require.False(t, IsCancellation(nil))
	})

	t.Run("context canceled", func(t *testing.T) {
		require.True(t, IsCancellation(context.Canceled))
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		require.True(t, IsCancellation(context.DeadlineExceeded))
	})

	t.Run("wrapped cancellation", func(t *testing.T) {
		err := fmt.Errorf("failed to list ownership: %w", context.Canceled)
		require.True(t, IsCancellation(err))
	})

	t.Run("ordinary error", func(t *testing.T) {
		require.False(t, IsCancellation(errors.New("boom")))
	})

	t.Run("sentinel error", func(t *testing.T) {
		require.False(t, IsCancellation(ErrPumpExists))
	})
}
