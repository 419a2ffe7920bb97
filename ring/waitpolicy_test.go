package ring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlockPolicyWakesOnBroadcast(t *testing.T) {
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	policy := NewBlockPolicy(cond, time.Second)

	done := make(chan struct{})
	go func() {
		policy.Wait(0)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	cond.Broadcast()
	mu.Unlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Broadcast")
	}
}

func TestBlockPolicyTimesOut(t *testing.T) {
	var mu sync.Mutex
	cond := sync.NewCond(&mu)
	policy := NewBlockPolicy(cond, 20*time.Millisecond)

	start := time.Now()
	policy.Wait(0)
	assert.WithinDuration(t, start.Add(20*time.Millisecond), time.Now(), 200*time.Millisecond)
}

func TestSleepPolicyWaits(t *testing.T) {
	policy := SleepPolicy{Duration: 10 * time.Millisecond}
	start := time.Now()
	policy.Wait(0)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
