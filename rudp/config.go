package rudp

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// config holds Transport construction options, built via functional
// options so defaults stay sane without a wall of constructor
// parameters.
type config struct {
	mtu                 int
	windowSize          uint32
	overflowMax         int
	nakThresholdPackets int
	rtoMin              time.Duration
	ackPeriod           time.Duration
	clock               clock.Clock
	logger              *zap.Logger
	registry            prometheus.Registerer
	metricsNamespace    string
}

// Option configures a Transport at construction.
type Option func(*config)

func defaultConfig() *config {
	return &config{
		mtu:                 DefaultMTU,
		windowSize:          1024,
		overflowMax:         256,
		nakThresholdPackets: 4,
		rtoMin:              50 * time.Millisecond,
		ackPeriod:           10 * time.Millisecond,
		clock:               clock.New(),
		logger:              zap.NewNop(),
	}
}

// WithMTU overrides the maximum UDP payload assumed per packet.
func WithMTU(mtu int) Option {
	return func(c *config) { c.mtu = mtu }
}

// WithWindowSize sets the send/receive window size in packets. Must be
// a power of two (the send window is backed by a ring.Ring[Packet]).
func WithWindowSize(n uint32) Option {
	return func(c *config) { c.windowSize = n }
}

// WithOverflowMax bounds the receive side's out-of-window map. Once
// full, further out-of-window arrivals are rejected rather than
// evicting an existing entry.
func WithOverflowMax(n int) Option {
	return func(c *config) { c.overflowMax = n }
}

// WithNakThresholdPackets sets how many packets must arrive while a
// gap is outstanding before a NAK is emitted for it.
func WithNakThresholdPackets(n int) Option {
	return func(c *config) { c.nakThresholdPackets = n }
}

// WithRTOMin sets the minimum retransmit timeout floor.
func WithRTOMin(d time.Duration) Option {
	return func(c *config) { c.rtoMin = d }
}

// WithAckPeriod sets how often RunBackground's ticker sends a
// cumulative ACK. Pump mode does not use it: there ACKs are sent only
// by ReceiveBatchWith after it delivers something.
func WithAckPeriod(d time.Duration) Option {
	return func(c *config) { c.ackPeriod = d }
}

// WithClock injects a clock.Clock, letting tests drive RTO/AIMD
// behavior without sleeping.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// WithLogger injects a structured logger, defaulting to a no-op.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegistry mirrors the transport's counters onto reg under
// namespace, in addition to the always-available Stats() snapshot.
// There is no default registry: Prometheus exposition is opt-in per
// Transport instance.
func WithRegistry(reg prometheus.Registerer, namespace string) Option {
	return func(c *config) {
		c.registry = reg
		c.metricsNamespace = namespace
	}
}
