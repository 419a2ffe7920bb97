package rudp

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// congestionController implements AIMD congestion control, ported from
// the sender's window/RTT tracking logic: slow start doubles the
// window per ACK until ssthresh, congestion avoidance then grows it by
// one packet per ACK, and a loss event halves it — rate-limited to at
// most once per RTT so a burst of NAKs within one round trip coalesces
// into a single decrease.
type congestionController struct {
	mu sync.Mutex

	window   uint32
	minWin   uint32
	maxWin   uint32
	ssthresh uint32
	rttEWMA  time.Duration
	lastLoss time.Time
	inFlight uint32

	clock clock.Clock
}

func newCongestionController(initialWindow, minWindow, maxWindow uint32, c clock.Clock) *congestionController {
	if c == nil {
		c = clock.New()
	}
	return &congestionController{
		window:   initialWindow,
		minWin:   minWindow,
		maxWin:   maxWindow,
		ssthresh: maxWindow / 2,
		rttEWMA:  time.Millisecond,
		lastLoss: c.Now(),
		clock:    c,
	}
}

// Window returns the current congestion window, in packets.
func (c *congestionController) Window() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// CanSend reports whether another packet may be sent without
// exceeding the current window.
func (c *congestionController) CanSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight < c.window
}

// OnSend records a packet entering flight.
func (c *congestionController) OnSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight++
}

// OnAck records an ACK that advanced the cumulative sequence: additive
// increase in congestion avoidance, exponential in slow start.
func (c *congestionController) OnAck() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight > 0 {
		c.inFlight--
	}
	if c.window < c.ssthresh {
		growth := c.window * 2
		if growth == 0 {
			growth = 1
		}
		c.window = minU32(growth, c.maxWin)
	} else if c.window < c.maxWin {
		c.window++
	}
}

// OnLoss records a NAK or retransmit timeout. The halving is
// rate-limited to once per RTT estimate.
func (c *congestionController) OnLoss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clock.Since(c.lastLoss) <= c.rttEWMA {
		return
	}
	c.ssthresh = maxU32(c.window/2, c.minWin)
	c.window = c.ssthresh
	c.lastLoss = c.clock.Now()
}

// UpdateRTT folds a new round-trip sample into the EWMA estimate using
// a 7/8 weight on the prior estimate.
func (c *congestionController) UpdateRTT(sample time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rttEWMA = (c.rttEWMA*7 + sample) / 8
}

func (c *congestionController) RTT() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rttEWMA
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
