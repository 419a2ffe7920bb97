package ring

// Consumer is a registered consumer handle bound to one of the ring's
// consumer cursor slots. SPMC and MPMC rings fan out: every registered
// consumer independently observes every published sequence.
type Consumer[T Slot] struct {
	ring *Ring[T]
	id   int
}

// RegisterConsumer binds a handle to consumer slot id. id must be in
// [0, consumerCount) as passed to New, and may only be registered
// once.
func (r *Ring[T]) RegisterConsumer(id int) (*Consumer[T], error) {
	if id < 0 || id >= len(r.consumerCursors) {
		return nil, ErrConsumerIDOutOfRange
	}
	if !r.consumerUsed[id].CompareAndSwap(false, true) {
		return nil, ErrConsumerAlreadyRegistered
	}
	return &Consumer[T]{ring: r, id: id}, nil
}

// ID returns the consumer's registered slot index.
func (c *Consumer[T]) ID() int { return c.id }

// TryConsumeBatch returns a View over up to maxN unconsumed slots
// starting at this consumer's current cursor. A nil view with ok=false
// means nothing is currently available — the expected outcome of an
// empty ring, not an error.
func (c *Consumer[T]) TryConsumeBatch(maxN uint64) (view *View[T], ok bool) {
	r := c.ring
	cursor := r.consumerCursors[c.id].LoadRelaxed()
	published := r.visibleProducerCursor()

	available := published - cursor
	if available == 0 {
		return nil, false
	}
	n := available
	if n > maxN {
		n = maxN
	}
	if n == 0 {
		return nil, false
	}
	return &View[T]{buf: r.buffer, mask: r.mask, start: cursor, n: n}, true
}

// AdvanceConsumer marks sequences up to and including the View
// previously returned by TryConsumeBatch as consumed, releasing their
// capacity back to producers.
func (c *Consumer[T]) AdvanceConsumer(view *View[T]) error {
	if view.n == 0 {
		return nil
	}
	end := view.start + view.n
	r := c.ring
	r.consumerCursors[c.id].Store(end)
	r.NotifyAll()
	return nil
}

// AdvanceTo sets this consumer's cursor directly to seq, releasing
// capacity up to (but not including) seq. Unlike AdvanceConsumer it
// does not require a View from TryConsumeBatch — it is the right tool
// when consumption progress is reported out-of-band (a cumulative ACK
// naming the highest contiguous sequence delivered, say) rather than
// driven by locally draining the ring. seq must not move the cursor
// backwards or past the current producer cursor.
func (c *Consumer[T]) AdvanceTo(seq uint64) error {
	r := c.ring
	cursor := r.consumerCursors[c.id]
	for {
		current := cursor.Load()
		if seq <= current {
			return nil
		}
		if seq > r.producerCursor.Load() {
			return ErrPublishOutOfRange
		}
		if cursor.CompareAndSwap(current, seq) {
			r.NotifyAll()
			return nil
		}
	}
}

// visibleProducerCursor returns the highest sequence a consumer may
// read. For single-producer rings this is just the cursor; for
// multi-producer rings it must be materialized by scanning the
// availability bitmap forward from the last materialized point, since
// producers may publish out of order and only a contiguous prefix is
// safe to read.
func (r *Ring[T]) visibleProducerCursor() uint64 {
	if !r.mode.multiProducer() {
		return r.producerCursor.Load()
	}
	return r.materializeProducerCursor()
}

// materializeProducerCursor scans the availability bitmap starting
// from the last known-published sequence, advancing as far as a
// contiguous run of published bits allows, then CAS-advances the
// shared producer cursor to that point. Concurrent callers (multiple
// consumers under MPMC) converge on a monotonically non-decreasing
// value; at worst, one redundantly re-scans a range another has
// already materialized.
func (r *Ring[T]) materializeProducerCursor() uint64 {
	prev := r.producerCursor.Load()
	claimed := r.producerClaim.Load()
	if prev >= claimed {
		return prev
	}

	highest := prev
	wordIdx, bitIdx := r.availabilityIndices(highest)
	word := r.available[wordIdx].Load()

	for highest < claimed {
		flag := r.availabilityFlag(highest)
		if (word>>bitIdx)&1 != flag {
			break
		}
		highest++
		if bitIdx < 63 && highest&r.mask != 0 {
			bitIdx++
		} else {
			wordIdx, bitIdx = r.availabilityIndices(highest)
			word = r.available[wordIdx].Load()
		}
	}

	r.advanceProducerCursorTo(highest)
	return highest
}

// advanceProducerCursorTo CAS-advances the shared producer cursor to
// target if it is still behind it.
func (r *Ring[T]) advanceProducerCursorTo(target uint64) {
	for {
		current := r.producerCursor.Load()
		if current >= target {
			return
		}
		if r.producerCursor.CompareAndSwap(current, target) {
			return
		}
	}
}
