package sharedring

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/bugthesystem/flux/ring"
)

// mmapSequence is the cross-process ring.Sequence implementation: the
// 64-bit cursor lives at a fixed byte offset inside the mapped
// segment, directly readable/writable by sync/atomic regardless of
// which process mapped it, since both map the same physical pages.
// generation is a companion 32-bit futex word bumped on every store so
// the other side can block instead of spinning.
type mmapSequence struct {
	cell       *atomic.Uint64
	generation *uint32
}

func newMmapSequence(mem []byte, cursorOffset, generationOffset uint64) *mmapSequence {
	return &mmapSequence{
		cell:       (*atomic.Uint64)(unsafe.Pointer(&mem[cursorOffset])),
		generation: (*uint32)(unsafe.Pointer(&mem[generationOffset])),
	}
}

func (s *mmapSequence) Load() uint64        { return s.cell.Load() }
func (s *mmapSequence) LoadRelaxed() uint64 { return s.cell.Load() }

func (s *mmapSequence) Store(v uint64) {
	s.cell.Store(v)
	s.bumpAndWake()
}

func (s *mmapSequence) StoreRelaxed(v uint64) {
	s.cell.Store(v)
	s.bumpAndWake()
}

func (s *mmapSequence) CompareAndSwap(old, new uint64) bool {
	ok := s.cell.CompareAndSwap(old, new)
	if ok {
		s.bumpAndWake()
	}
	return ok
}

func (s *mmapSequence) Add(delta uint64) uint64 {
	v := s.cell.Add(delta)
	s.bumpAndWake()
	return v
}

func (s *mmapSequence) bumpAndWake() {
	atomic.AddUint32(s.generation, 1)
	_, _ = futexWake(s.generation, 1<<30)
}

func (s *mmapSequence) generationValue() uint32 { return atomic.LoadUint32(s.generation) }

// FutexBlockPolicy is a ring.WaitPolicy that blocks on a mmapSequence's
// futex word instead of spinning, for cross-process waiting where no
// in-process sync.Cond is reachable. MaxWait bounds a single Wait call
// so a caller can always re-check its own cancellation condition.
type FutexBlockPolicy struct {
	seq     *mmapSequence
	MaxWait time.Duration
}

var _ ring.WaitPolicy = (*FutexBlockPolicy)(nil)

func (p *FutexBlockPolicy) Wait(uint64) {
	gen := p.seq.generationValue()
	_ = futexWaitTimeout(p.seq.generation, gen, p.MaxWait.Nanoseconds())
}
