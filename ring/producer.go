package ring

// Producer is a registered producer handle for a Ring. SPSC and SPMC
// rings accept exactly one; MPSC and MPMC accept any number.
type Producer[T Slot] struct {
	ring *Ring[T]
}

// RegisterProducer returns a new producer handle. For SPSC/SPMC rings,
// only one handle may ever be registered; subsequent calls fail.
func (r *Ring[T]) RegisterProducer() (*Producer[T], error) {
	if !r.mode.multiProducer() {
		if !r.producerRegistered.CompareAndSwap(false, true) {
			return nil, ErrConsumerAlreadyRegistered
		}
	}
	r.producerHandles.Add(1)
	return &Producer[T]{ring: r}, nil
}

// TryClaimSlots attempts to reserve n consecutive sequences for
// writing. On success it returns a View over those slots and true; on
// failure (insufficient free capacity) it returns false with no error
// — a full ring is an expected outcome, not a failure condition.
func (p *Producer[T]) TryClaimSlots(n uint64) (*View[T], bool, error) {
	r := p.ring
	if n == 0 {
		return &View[T]{buf: r.buffer, mask: r.mask, start: r.producerCursor.Load(), n: 0}, true, nil
	}
	if n > r.capacity {
		return nil, false, ErrClaimExceedsCapacity
	}

	if !r.mode.multiProducer() {
		cursor := r.producerCursor.LoadRelaxed()
		next := cursor + n
		gating := r.gatingCursor()
		if next-gating > r.capacity {
			return nil, false, nil
		}
		return &View[T]{buf: r.buffer, mask: r.mask, start: cursor, n: n}, true, nil
	}

	for {
		current := r.producerClaim.LoadRelaxed()
		next := current + n
		gating := r.gatingCursor()
		if next-gating > r.capacity {
			return nil, false, nil
		}
		if r.producerClaim.CompareAndSwap(current, next) {
			return &View[T]{buf: r.buffer, mask: r.mask, start: current, n: n}, true, nil
		}
	}
}

// Publish makes the slots in view visible to consumers. For a
// single-producer ring this is a simple cursor store; for a
// multi-producer ring each claimed sequence's availability bit is
// toggled independently, since publishes from concurrent producers may
// complete out of order and a consumer must only observe a contiguous
// prefix.
func (p *Producer[T]) Publish(view *View[T]) error {
	r := p.ring
	if view.n == 0 {
		return nil
	}

	if !r.mode.multiProducer() {
		end := view.start + view.n
		if end < r.producerCursor.LoadRelaxed() {
			return ErrPublishOutOfRange
		}
		r.producerCursor.Store(end)
		r.NotifyAll()
		return nil
	}

	for i := uint64(0); i < view.n; i++ {
		r.publishOne(view.start + i)
	}
	r.NotifyAll()
	return nil
}

// Peek returns a pointer to the slot at sequence seq without consuming
// it, for callers that retain published slots for random-access
// re-reads after the fact (a retransmit window re-sending an
// unacknowledged sequence, say). seq must still be within the ring:
// at or after the gating cursor and before the producer cursor.
func (p *Producer[T]) Peek(seq uint64) (*T, bool) {
	r := p.ring
	if seq < r.gatingCursor() || seq >= r.producerCursor.Load() {
		return nil, false
	}
	return &r.buffer[seq&r.mask], true
}

// publishOne toggles the availability bit for sequence, per the
// XOR-flip scheme: bit value alternates each time the ring laps over
// this slot, so "bit == expected generation flag" means published.
func (r *Ring[T]) publishOne(sequence uint64) {
	wordIdx, bitIdx := r.availabilityIndices(sequence)
	bit := uint64(1) << bitIdx
	word := &r.available[wordIdx]
	for {
		old := word.Load()
		if word.CompareAndSwap(old, old^bit) {
			return
		}
	}
}

func (r *Ring[T]) availabilityIndices(sequence uint64) (wordIdx, bitIdx uint64) {
	slotIdx := sequence & r.mask
	return slotIdx >> 6, slotIdx & 63
}

func (r *Ring[T]) availabilityFlag(sequence uint64) uint64 {
	return (sequence >> r.indexShift) & 1
}
