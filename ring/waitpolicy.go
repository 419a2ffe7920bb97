package ring

import (
	"sync"
	"time"
)

// WaitPolicy is the strategy object a caller invokes between retries of
// a TryClaimSlots/TryConsumeBatch loop. The ring itself never blocks
// internally; WaitPolicy.Wait is called by the caller's own retry loop
// with the current iteration count so the policy can escalate (e.g.
// spin, then yield, then sleep).
type WaitPolicy interface {
	// Wait is invoked once per failed attempt. iteration starts at 0 on
	// the first retry and increments on every subsequent call from the
	// same logical wait loop.
	Wait(iteration uint64)
}

// BusySpinPolicy never yields the CPU; lowest latency, highest CPU
// usage. Suitable for dedicated cores.
type BusySpinPolicy struct{}

func (BusySpinPolicy) Wait(uint64) {}

// YieldPolicy calls runtime.Gosched() between attempts.
type YieldPolicy struct{}

func (YieldPolicy) Wait(uint64) { yieldProc() }

// SleepPolicy sleeps a fixed duration between attempts.
type SleepPolicy struct {
	Duration time.Duration
}

func (p SleepPolicy) Wait(uint64) { time.Sleep(p.Duration) }

// BlockPolicy blocks on a condition variable that the ring broadcasts
// whenever a publish or consumer advance transitions the ring from
// full/empty to non-full/non-empty, waking only on a real state
// change rather than polling. Cooperative cancellation: a waiter
// blocked in Wait can be released by calling Broadcast directly, or
// will simply time out after the policy's MaxWait if no transition
// happens within that window — this bounds how long a consumer blocks
// behind a producer that has stalled or died mid-claim.
type BlockPolicy struct {
	cond    *sync.Cond
	mu      *sync.Mutex
	MaxWait time.Duration
}

// NewBlockPolicy constructs a BlockPolicy bound to cond, which must be
// the same *sync.Cond the owning Ring broadcasts on (Ring.NotifyAll).
// maxWait bounds how long a single Wait call blocks before returning,
// to guarantee cooperative cancellation is always possible.
func NewBlockPolicy(cond *sync.Cond, maxWait time.Duration) *BlockPolicy {
	return &BlockPolicy{cond: cond, mu: cond.L.(*sync.Mutex), MaxWait: maxWait}
}

func (p *BlockPolicy) Wait(uint64) {
	p.mu.Lock()
	timer := time.AfterFunc(p.MaxWait, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	p.cond.Wait()
	p.mu.Unlock()
}
