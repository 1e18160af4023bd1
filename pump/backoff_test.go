package pump

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryBackoffFirstDelayIsBase(t *testing.T) {
	b := newRetryBackoff(100*time.Millisecond, time.Second, 2.0, 1)

	require.Equal(t, 100*time.Millisecond, b.next())
}

func TestRetryBackoffStaysWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	ceil := 500 * time.Millisecond
	b := newRetryBackoff(base, ceil, 2.0, 42)

	for i := range 20 {
		delay := b.next()
		require.GreaterOrEqual(t, delay, base, "failure %d", i)
		require.LessOrEqual(t, delay, ceil, "failure %d", i)
	}
}

func TestRetryBackoffResetStartsOver(t *testing.T) {
	b := newRetryBackoff(50*time.Millisecond, time.Second, 2.0, 7)

	require.Equal(t, 50*time.Millisecond, b.next())
	_ = b.next()
	_ = b.next()

	b.reset()

	require.Equal(t, 50*time.Millisecond, b.next(), "post-reset retry is quick again")
}

func TestRetryBackoffDeterministicWithSeed(t *testing.T) {
	run := func() []time.Duration {
		b := newRetryBackoff(50*time.Millisecond, 2*time.Second, 2.0, 7)
		out := make([]time.Duration, 0, 8)
		for range 8 {
			out = append(out, b.next())
		}

		return out
	}

	require.Equal(t, run(), run())
}

func TestRetryBackoffEnvelopeGrows(t *testing.T) {
	b := newRetryBackoff(10*time.Millisecond, time.Minute, 2.0, 3)

	_ = b.next()
	prev := b.envelope
	for range 5 {
		_ = b.next()
		require.Greater(t, b.envelope, prev, "envelope widens until the ceiling")
		prev = b.envelope
	}
}

func TestRetryBackoffInputGuards(t *testing.T) {
	t.Run("non-positive base falls back to default", func(t *testing.T) {
		b := newRetryBackoff(0, time.Second, 2.0, 1)
		require.Equal(t, DefaultRetryBackoffBase, b.next())
	})

	t.Run("ceiling below base is raised to base", func(t *testing.T) {
		b := newRetryBackoff(time.Second, 100*time.Millisecond, 2.0, 1)
		for range 5 {
			require.Equal(t, time.Second, b.next())
		}
	})

	t.Run("growth below one cannot shrink delays", func(t *testing.T) {
		b := newRetryBackoff(100*time.Millisecond, time.Second, 0.5, 1)
		for range 5 {
			require.GreaterOrEqual(t, b.next(), 100*time.Millisecond)
		}
	})

	t.Run("zero seed uses the shared PRNG", func(t *testing.T) {
		b := newRetryBackoff(10*time.Millisecond, time.Second, 2.0, 0)
		require.Nil(t, b.rng)
		require.Equal(t, 10*time.Millisecond, b.next())
		require.GreaterOrEqual(t, b.next(), 10*time.Millisecond)
	})
}
