package ring

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// View is a window over n logically-consecutive slots starting at
// sequence StartSeq(). Indexing is done per-element via At rather than
// by returning a contiguous Go slice, because the underlying buffer is
// circular: a claim or consume batch that straddles the physical end
// of the array cannot be expressed as one contiguous slice. This is
// the two-segment wraparound contract expressed as an index accessor
// instead of two separate sub-slices.
type View[T Slot] struct {
	buf   []T
	mask  uint64
	start uint64
	n     uint64
}

// Len returns the number of slots in the view.
func (v *View[T]) Len() uint64 { return v.n }

// StartSeq returns the sequence of the first slot in the view.
func (v *View[T]) StartSeq() uint64 { return v.start }

// At returns a pointer to the i-th slot in the view (0 <= i < Len()).
func (v *View[T]) At(i uint64) *T {
	return &v.buf[(v.start+i)&v.mask]
}

// EndSeq returns the inclusive sequence of the last slot in the view,
// StartSeq()+Len()-1, or StartSeq() for an empty view.
func (v *View[T]) EndSeq() uint64 {
	if v.n == 0 {
		return v.start
	}
	return v.start + v.n - 1
}

// Ring is a lock-free ring buffer coordinating producers and consumers
// purely through sequence counters.
type Ring[T Slot] struct {
	buffer   []T
	capacity uint64
	mask     uint64
	mode     Mode

	producerCursor Sequence
	producerClaim  Sequence // non-nil only for multi-producer modes

	// availability bitmap for multi-producer publish contiguity, ported
	// from original_source/kaos/src/disruptor/multi.rs. One bit per
	// slot, packed into uint64 words; toggled (XOR) on publish.
	available  []atomic.Uint64
	indexShift uint64

	consumerCursors []Sequence
	consumerUsed    []atomic.Bool

	producerRegistered atomic.Bool
	producerHandles     atomic.Int64

	waitPolicy WaitPolicy

	mu   sync.Mutex
	cond *sync.Cond

	logger *zap.Logger
}

// New constructs an in-process Ring. capacity must be a power of two
// >= 2; consumerCount must be >= 1.
func New[T Slot](capacity uint64, consumerCount int, mode Mode, waitPolicy WaitPolicy, opts ...Option) (*Ring[T], error) {
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	if consumerCount < 1 {
		return nil, ErrInvalidConsumerCount
	}

	buffer := make([]T, capacity)
	producerCursor := NewSequence(0)
	consumerCursors := make([]Sequence, consumerCount)
	for i := range consumerCursors {
		consumerCursors[i] = NewSequence(0)
	}
	var producerClaim Sequence
	if mode.multiProducer() {
		producerClaim = NewSequence(0)
	}

	return NewFromParts(buffer, mode, waitPolicy, producerCursor, producerClaim, consumerCursors, opts...)
}

// NewFromParts builds a Ring over caller-supplied storage: a buffer
// and a set of Sequence implementations. This is the hook that lets
// SharedRing reuse the exact same claim/publish/consume algorithm over
// mmap-backed storage instead of heap-backed storage — only the
// Sequence and buffer implementations differ; the protocol above them
// is identical. producerClaim must be non-nil iff mode is
// multi-producer (MPSC/MPMC); len(consumerCursors) is the ring's
// consumer count.
func NewFromParts[T Slot](buffer []T, mode Mode, waitPolicy WaitPolicy, producerCursor Sequence, producerClaim Sequence, consumerCursors []Sequence, opts ...Option) (*Ring[T], error) {
	capacity := uint64(len(buffer))
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	if len(consumerCursors) < 1 {
		return nil, ErrInvalidConsumerCount
	}
	if mode.multiProducer() && producerClaim == nil {
		return nil, ErrMissingProducerClaim
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	r := &Ring[T]{
		buffer:          buffer,
		capacity:        capacity,
		mask:            capacity - 1,
		mode:            mode,
		producerCursor:  producerCursor,
		producerClaim:   producerClaim,
		consumerCursors: consumerCursors,
		consumerUsed:    make([]atomic.Bool, len(consumerCursors)),
		waitPolicy:      waitPolicy,
		logger:          cfg.logger,
	}
	r.cond = sync.NewCond(&r.mu)

	if mode.multiProducer() {
		r.indexShift = log2(capacity)
		wordCount := capacity / 64
		if wordCount == 0 {
			wordCount = 1
		}
		r.available = make([]atomic.Uint64, wordCount)
		for i := range r.available {
			r.available[i].Store(^uint64(0))
		}
	}

	return r, nil
}

func validateCapacity(capacity uint64) error {
	if capacity < 2 {
		return ErrCapacityTooSmall
	}
	if capacity&(capacity-1) != 0 {
		return ErrCapacityNotPowerOfTwo
	}
	return nil
}

func log2(n uint64) uint64 {
	var shift uint64
	for n > 1 {
		n >>= 1
		shift++
	}
	return shift
}

// Capacity returns the ring's fixed capacity.
func (r *Ring[T]) Capacity() uint64 { return r.capacity }

// Mode returns the ring's producer/consumer cardinality.
func (r *Ring[T]) Mode() Mode { return r.mode }

// ProducerCursor returns the number of sequences published so far: one
// past the highest fully-published sequence, or 0 on a fresh ring.
// For multi-producer modes the raw cursor cell is only advanced lazily
// by consumers draining the ring (see materializeProducerCursor), so
// this drives that same materialization itself rather than returning a
// stale value to a caller that never consumes.
func (r *Ring[T]) ProducerCursor() uint64 { return r.visibleProducerCursor() }

// ConsumerCursor returns consumer id's highest-consumed-plus-one
// sequence.
func (r *Ring[T]) ConsumerCursor(id int) (uint64, error) {
	if id < 0 || id >= len(r.consumerCursors) {
		return 0, ErrConsumerIDOutOfRange
	}
	return r.consumerCursors[id].Load(), nil
}

// gatingCursor returns the minimum of all consumer cursors — the
// furthest-behind consumer a producer must not lap.
func (r *Ring[T]) gatingCursor() uint64 {
	min := r.consumerCursors[0].Load()
	for _, c := range r.consumerCursors[1:] {
		if v := c.Load(); v < min {
			min = v
		}
	}
	return min
}

// NotifyAll wakes any waiters blocked in a BlockPolicy bound to this
// ring's condition variable. Called internally after every non-empty
// Publish, every non-empty AdvanceConsumer and every AdvanceTo that
// moves the cursor, so waiters wake when the cursors change rather
// than polling.
func (r *Ring[T]) NotifyAll() {
	r.mu.Lock()
	r.cond.Broadcast()
	r.mu.Unlock()
}

// Cond returns the ring's condition variable, for constructing a
// BlockPolicy bound to this ring.
func (r *Ring[T]) Cond() *sync.Cond { return r.cond }
