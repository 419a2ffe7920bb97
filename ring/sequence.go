package ring

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// SequenceUninitialized is the all-bits-set sentinel for a sequence cell
// that has never been written. No constructor in this module stores
// it: cells from New and sharedring.Create start at 0, the "nothing
// processed yet" value of the cursor convention used throughout.
const SequenceUninitialized = ^uint64(0)

// Sequence is a 64-bit atomic sequence cell padded to at least one
// full cache line to avoid false sharing between independently
// contended cursors (producer cursor, producer claim cursor, each
// consumer cursor). Implementations differ in padding source: the
// in-process ring pads to the target architecture's cache-line size,
// fixed at compile time by golang.org/x/sys/cpu; the cross-process SharedRing instead uses a
// fixed 64- or 128-byte layout recorded in its on-disk header, since
// that padding must be identical across two unrelated processes
// regardless of either one's host CPU (see sharedring/layout.go).
type Sequence interface {
	// Load performs an Acquire load.
	Load() uint64
	// LoadRelaxed performs a Relaxed load, for the single-writer fast
	// path where no other thread can be concurrently writing.
	LoadRelaxed() uint64
	// Store performs a Release store.
	Store(uint64)
	// StoreRelaxed performs a Relaxed store, for single-writer fast paths.
	StoreRelaxed(uint64)
	// CompareAndSwap performs an Acquire-on-success, Relaxed-on-failure CAS.
	CompareAndSwap(old, new uint64) bool
	// Add atomically adds delta and returns the new value (Acquire/Release).
	Add(delta uint64) uint64
}

// paddedSequence is the in-process Sequence implementation: a single
// atomic.Uint64 isolated onto its own cache line via an embedded
// cpu.CacheLinePad, exactly the idiom used in
// other_examples/YutaMiyake-goring__ring.go.
type paddedSequence struct {
	v   atomic.Uint64
	_   cpu.CacheLinePad
}

// NewSequence returns a heap-allocated, cache-line-padded Sequence
// initialized to the given value.
func NewSequence(initial uint64) Sequence {
	s := &paddedSequence{}
	s.v.Store(initial)
	return s
}

func (s *paddedSequence) Load() uint64         { return s.v.Load() }
func (s *paddedSequence) LoadRelaxed() uint64  { return s.v.Load() }
func (s *paddedSequence) Store(v uint64)       { s.v.Store(v) }
func (s *paddedSequence) StoreRelaxed(v uint64) { s.v.Store(v) }
func (s *paddedSequence) CompareAndSwap(old, new uint64) bool {
	return s.v.CompareAndSwap(old, new)
}
func (s *paddedSequence) Add(delta uint64) uint64 { return s.v.Add(delta) }
