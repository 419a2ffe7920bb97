package sharedring

import (
	"time"

	"go.uber.org/zap"
)

type config struct {
	padCacheLine       uint32
	mlock              bool
	maxMemoryFraction  float64
	blockMaxWait       time.Duration
	logger             *zap.Logger
}

// Option configures a SharedRing at creation or open time.
type Option func(*config)

// WithCacheLine sets the padding granularity for the two cursor cells.
// Must be 64 or 128; other values are ignored and the default of 64
// is kept. Create records the chosen value in the header; Open
// verifies it matches.
func WithCacheLine(bytes uint32) Option {
	return func(c *config) {
		if bytes == 64 || bytes == 128 {
			c.padCacheLine = bytes
		}
	}
}

// WithMlock requests the mapped segment be locked into physical memory
// (mlock) after creation, preventing it from being swapped out.
func WithMlock(enabled bool) Option {
	return func(c *config) { c.mlock = enabled }
}

// WithMaxMemoryFraction bounds Create to segments no larger than this
// fraction of total host memory, sanity-checked before mmap'ing.
// Defaults to 0.5. A value <= 0 disables the check.
func WithMaxMemoryFraction(fraction float64) Option {
	return func(c *config) { c.maxMemoryFraction = fraction }
}

// WithBlockMaxWait sets the per-call timeout of the FutexBlockPolicy
// that Create and Open install as the ring's wait policy. Defaults to
// 500ms.
func WithBlockMaxWait(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.blockMaxWait = d
		}
	}
}

// WithLogger sets the structured logger used for construction and
// teardown diagnostics. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func defaultConfig() *config {
	return &config{
		padCacheLine:      64,
		maxMemoryFraction: 0.5,
		blockMaxWait:      500 * time.Millisecond,
		logger:            zap.NewNop(),
	}
}
