package pump

import (
	rand "math/rand/v2"
	"time"
)

// retryBackoff paces receiver retries for one pump.
//
// Each failure widens an envelope by the growth factor, starting at base
// and clamped to the ceiling; the actual delay is drawn uniformly from
// [base, envelope) so concurrent pumps that failed together do not retry in
// lockstep against the same broken endpoint. The very first retry always
// waits exactly base: transient blips should recover fast and
// deterministically.
//
// A successful receive resets the envelope via reset().
//
// Not safe for concurrent use; each pump owns one instance on its run
// goroutine.
type retryBackoff struct {
	base   time.Duration
	ceil   time.Duration
	growth float64

	// envelope is the current upper bound on the jittered delay.
	// Zero until the first failure.
	envelope time.Duration

	// rng is non-nil only when seeded; otherwise delays draw from the
	// shared package PRNG, which is cheap and contention-free enough for
	// retry pacing.
	rng *rand.Rand
}

// newRetryBackoff builds a backoff from pump config values, guarding
// against degenerate inputs: a non-positive base falls back to the package
// default, growth below 1 cannot shrink delays, and a ceiling under base is
// raised to base.
//
// A non-zero seed makes the jitter sequence reproducible for tests.
func newRetryBackoff(base, ceil time.Duration, growth float64, seed int64) *retryBackoff {
	if base <= 0 {
		base = DefaultRetryBackoffBase
	}
	if growth < 1 {
		growth = DefaultRetryBackoffMultiplier
	}
	if ceil > 0 && ceil < base {
		ceil = base
	}

	b := &retryBackoff{base: base, ceil: ceil, growth: growth}
	if seed != 0 {
		b.rng = rand.New(rand.NewPCG(uint64(seed), ^uint64(seed)))
	}

	return b
}

// next returns the delay before the upcoming retry and advances the
// envelope.
func (b *retryBackoff) next() time.Duration {
	if b.envelope <= 0 {
		b.envelope = b.base

		return b.base
	}

	grown := time.Duration(float64(b.envelope) * b.growth)
	if grown < b.envelope {
		// float overflow; pin to the ceiling
		grown = b.ceil
	}
	if b.ceil > 0 && grown > b.ceil {
		grown = b.ceil
	}
	b.envelope = grown

	span := int64(grown - b.base)
	if span <= 0 {
		return grown
	}

	return b.base + time.Duration(b.draw(span))
}

// reset collapses the envelope after a successful receive.
func (b *retryBackoff) reset() {
	b.envelope = 0
}

func (b *retryBackoff) draw(span int64) int64 {
	if b.rng != nil {
		return b.rng.Int64N(span)
	}

	return rand.Int64N(span)
}
