package ring

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPSCEcho(t *testing.T) {
	r, err := New[Slot8](8, 1, SPSC, BusySpinPolicy{})
	require.NoError(t, err)

	producer, err := r.RegisterProducer()
	require.NoError(t, err)
	consumer, err := r.RegisterConsumer(0)
	require.NoError(t, err)

	view, ok, err := producer.TryClaimSlots(1)
	require.NoError(t, err)
	require.True(t, ok)
	view.At(0).Value = 42
	require.NoError(t, producer.Publish(view))

	cview, ok := consumer.TryConsumeBatch(1)
	require.True(t, ok)
	require.EqualValues(t, 1, cview.Len())
	assert.EqualValues(t, 42, cview.At(0).Value)
	require.NoError(t, consumer.AdvanceConsumer(cview))

	assert.EqualValues(t, 1, r.ProducerCursor())
	got, err := r.ConsumerCursor(0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got)
}

func TestFillAndDrain(t *testing.T) {
	r, err := New[Slot8](4, 1, SPSC, BusySpinPolicy{})
	require.NoError(t, err)
	producer, err := r.RegisterProducer()
	require.NoError(t, err)
	consumer, err := r.RegisterConsumer(0)
	require.NoError(t, err)

	view, ok, err := producer.TryClaimSlots(4)
	require.NoError(t, err)
	require.True(t, ok)
	for i := uint64(0); i < 4; i++ {
		view.At(i).Value = i
	}
	require.NoError(t, producer.Publish(view))

	_, ok, err = producer.TryClaimSlots(1)
	require.NoError(t, err)
	assert.False(t, ok, "ring should be full")

	cview, ok := consumer.TryConsumeBatch(1)
	require.True(t, ok)
	require.NoError(t, consumer.AdvanceConsumer(cview))

	view2, ok, err := producer.TryClaimSlots(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 4, view2.StartSeq())
}

func TestClaimExceedingCapacityRefuses(t *testing.T) {
	r, err := New[Slot8](4, 1, SPSC, BusySpinPolicy{})
	require.NoError(t, err)
	producer, err := r.RegisterProducer()
	require.NoError(t, err)

	_, _, err = producer.TryClaimSlots(5)
	assert.ErrorIs(t, err, ErrClaimExceedsCapacity)
}

func TestClaimFullCapacityOnlySucceedsWhenEmpty(t *testing.T) {
	r, err := New[Slot8](4, 1, SPSC, BusySpinPolicy{})
	require.NoError(t, err)
	producer, err := r.RegisterProducer()
	require.NoError(t, err)

	view, ok, err := producer.TryClaimSlots(4)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, producer.Publish(view))

	_, ok, err = producer.TryClaimSlots(4)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMPSCInterleave(t *testing.T) {
	const capacity = 16
	const perProducer = 8

	r, err := New[Slot8](capacity, 1, MPSC, BusySpinPolicy{})
	require.NoError(t, err)
	consumer, err := r.RegisterConsumer(0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for p := 0; p < 2; p++ {
		producer, err := r.RegisterProducer()
		require.NoError(t, err)
		wg.Add(1)
		go func(producer *Producer[Slot8], tag uint64) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for {
					view, ok, err := producer.TryClaimSlots(1)
					require.NoError(t, err)
					if !ok {
						continue
					}
					view.At(0).Value = tag
					require.NoError(t, producer.Publish(view))
					break
				}
			}
		}(producer, uint64(p+1))
	}
	wg.Wait()

	assert.EqualValues(t, capacity, r.ProducerCursor())

	seen := 0
	tally := map[uint64]int{}
	for seen < capacity {
		view, ok := consumer.TryConsumeBatch(capacity)
		if !ok {
			continue
		}
		for i := uint64(0); i < view.Len(); i++ {
			tally[view.At(i).Value]++
		}
		seen += int(view.Len())
		require.NoError(t, consumer.AdvanceConsumer(view))
	}
	assert.Equal(t, perProducer, tally[1])
	assert.Equal(t, perProducer, tally[2])
}

func TestRegisterProducerRejectsSecondHandleOnSingleProducerRing(t *testing.T) {
	r, err := New[Slot8](4, 1, SPSC, BusySpinPolicy{})
	require.NoError(t, err)
	_, err = r.RegisterProducer()
	require.NoError(t, err)
	_, err = r.RegisterProducer()
	assert.Error(t, err)
}

func TestRegisterConsumerRejectsDuplicateID(t *testing.T) {
	r, err := New[Slot8](4, 2, SPMC, BusySpinPolicy{})
	require.NoError(t, err)
	_, err = r.RegisterConsumer(0)
	require.NoError(t, err)
	_, err = r.RegisterConsumer(0)
	assert.Error(t, err)

	_, err = r.RegisterConsumer(5)
	assert.ErrorIs(t, err, ErrConsumerIDOutOfRange)
}

func TestSPMCFanOutEachConsumerSeesEverySequence(t *testing.T) {
	r, err := New[Slot8](8, 2, SPMC, BusySpinPolicy{})
	require.NoError(t, err)
	producer, err := r.RegisterProducer()
	require.NoError(t, err)
	c0, err := r.RegisterConsumer(0)
	require.NoError(t, err)
	c1, err := r.RegisterConsumer(1)
	require.NoError(t, err)

	view, ok, err := producer.TryClaimSlots(4)
	require.NoError(t, err)
	require.True(t, ok)
	for i := uint64(0); i < 4; i++ {
		view.At(i).Value = i
	}
	require.NoError(t, producer.Publish(view))

	v0, ok := c0.TryConsumeBatch(4)
	require.True(t, ok)
	assert.EqualValues(t, 4, v0.Len())
	require.NoError(t, c0.AdvanceConsumer(v0))

	v1, ok := c1.TryConsumeBatch(4)
	require.True(t, ok)
	assert.EqualValues(t, 4, v1.Len())
	require.NoError(t, c1.AdvanceConsumer(v1))

	// the slower consumer gates producer progress: with both consumers
	// advanced to 4, a claim of a full capacity (8) fits, since
	// 4 + 8 - 4 = 8 does not exceed capacity.
	_, ok, err = producer.TryClaimSlots(8)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvalidCapacityRejected(t *testing.T) {
	_, err := New[Slot8](3, 1, SPSC, BusySpinPolicy{})
	assert.ErrorIs(t, err, ErrCapacityNotPowerOfTwo)

	_, err = New[Slot8](1, 1, SPSC, BusySpinPolicy{})
	assert.ErrorIs(t, err, ErrCapacityTooSmall)

	_, err = New[Slot8](4, 0, SPSC, BusySpinPolicy{})
	assert.ErrorIs(t, err, ErrInvalidConsumerCount)
}

func TestClaimZeroIsAllowedAndEmpty(t *testing.T) {
	r, err := New[Slot8](4, 1, SPSC, BusySpinPolicy{})
	require.NoError(t, err)
	producer, err := r.RegisterProducer()
	require.NoError(t, err)

	view, ok, err := producer.TryClaimSlots(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 0, view.Len())
	require.NoError(t, producer.Publish(view))
	assert.EqualValues(t, 0, r.ProducerCursor())
}
