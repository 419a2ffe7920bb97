package rudp

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// recvWindow reassembles packets into delivery order. It is a hybrid
// of a fixed-size ring indexed by seq%windowSize for the common case
// (a packet arriving within the current window) and a bounded
// overflow map for packets that arrive further ahead than the window
// can currently hold — ported from the original's
// ReliableWindowRingBuffer/HybridWindow: most traffic never touches
// the overflow path at all.
type recvWindow struct {
	windowSize uint32

	nextExpected uint32
	slots        []Packet
	present      []bool

	anyReceived bool
	highestSeen uint32

	overflow    *lru.Cache[uint32, Packet]
	overflowMax int

	// gapAge counts packets received since each missing sequence was
	// first observed as a gap (or since it was last NAK'd), so NAK
	// emission is rate-limited to once per threshold's worth of arrivals
	// instead of firing on every single packet that arrives while the
	// gap persists.
	gapAge map[uint32]int
}

func newRecvWindow(windowSize uint32, overflowMax int) (*recvWindow, error) {
	overflow, err := lru.New[uint32, Packet](overflowMax + 1)
	if err != nil {
		return nil, err
	}
	return &recvWindow{
		windowSize:  windowSize,
		slots:       make([]Packet, windowSize),
		present:     make([]bool, windowSize),
		overflow:    overflow,
		overflowMax: overflowMax,
		gapAge:      make(map[uint32]int),
	}, nil
}

// receiveOutcome describes what Receive did with an incoming packet.
type receiveOutcome int

const (
	outcomeAccepted receiveOutcome = iota
	outcomeDuplicate
	outcomeOverflowed
)

// Receive places p into the window. Every arrival, whatever its
// outcome (in-window, overflow, duplicate or rejected), ticks gapAge
// forward for any sequence still missing, which is how NAK
// rate-limiting measures time.
func (w *recvWindow) Receive(p Packet) receiveOutcome {
	for missing := range w.gapAge {
		if missing != p.Seq {
			w.gapAge[missing]++
		}
	}
	delete(w.gapAge, p.Seq)

	if !w.anyReceived || seqLess(w.highestSeen, p.Seq) {
		w.highestSeen = p.Seq
	}
	w.anyReceived = true

	if seqLess(p.Seq, w.nextExpected) {
		return outcomeDuplicate
	}
	if w.inWindow(p.Seq) {
		idx := p.Seq % w.windowSize
		if w.present[idx] {
			return outcomeDuplicate
		}
		w.slots[idx] = p
		w.present[idx] = true
		return outcomeAccepted
	}

	if w.overflow.Contains(p.Seq) {
		return outcomeDuplicate
	}
	if w.overflow.Len() >= w.overflowMax {
		return outcomeOverflowed
	}
	w.overflow.Add(p.Seq, p)
	return outcomeAccepted
}

// PopNext returns and advances past the next in-order packet if one is
// ready, checking the in-window ring first and then the overflow map
// (a packet may have landed there before the window slid far enough to
// hold it).
func (w *recvWindow) PopNext() (Packet, bool) {
	idx := w.nextExpected % w.windowSize
	if w.present[idx] {
		p := w.slots[idx]
		w.present[idx] = false
		w.nextExpected++
		return p, true
	}
	if p, ok := w.overflow.Get(w.nextExpected); ok {
		w.overflow.Remove(w.nextExpected)
		w.nextExpected++
		return p, true
	}
	return Packet{}, false
}

// DeliverInOrder drains every contiguously-available packet starting
// at nextExpected, invoking fn for each in order, and returns how many
// were delivered.
func (w *recvWindow) DeliverInOrder(fn func(Packet)) int {
	delivered := 0
	for {
		p, ok := w.PopNext()
		if !ok {
			break
		}
		fn(p)
		delivered++
	}
	return delivered
}

// CumulativeAck returns the sequence fully delivered through
// (nextExpected - 1) and true, or false if nothing has been delivered
// yet — distinct from "sequence 0 has been acked", which an unsigned
// zero value alone can't express.
func (w *recvWindow) CumulativeAck() (uint32, bool) {
	if w.nextExpected == 0 {
		return 0, false
	}
	return w.nextExpected - 1, true
}

// PendingNaks scans for contiguous gaps between nextExpected and the
// highest sequence seen in any arrival, scanning at most windowSize
// sequences, and returns [start,end] ranges whose
// gapAge has crossed threshold packets without a retransmit — i.e.
// ranges worth re-requesting now rather than waiting for more arrivals
// to age them further.
func (w *recvWindow) PendingNaks(threshold int) [][2]uint32 {
	if !w.anyReceived || !seqLess(w.nextExpected, w.highestSeen) {
		return nil
	}

	var ranges [][2]uint32
	var start uint32
	inGap := false

	span := w.highestSeen - w.nextExpected + 1
	if span > w.windowSize {
		span = w.windowSize
	}

	for i := uint32(0); i < span; i++ {
		seq := w.nextExpected + i
		missing := !w.present[seq%w.windowSize] && !w.overflow.Contains(seq)
		if missing {
			if !inGap {
				start = seq
				inGap = true
			}
			if _, ok := w.gapAge[seq]; !ok {
				w.gapAge[seq] = 0
			}
			continue
		}
		if inGap {
			if w.gapAge[start] >= threshold {
				ranges = append(ranges, [2]uint32{start, seq - 1})
			}
			inGap = false
		}
	}
	if inGap && w.gapAge[start] >= threshold {
		ranges = append(ranges, [2]uint32{start, w.nextExpected + span - 1})
	}
	return ranges
}

// ResetGapAge clears the age counter for a range just NAK'd, so the
// next NAK for it requires a fresh threshold's worth of arrivals.
func (w *recvWindow) ResetGapAge(start, end uint32) {
	for seq := start; seq != end+1; seq++ {
		w.gapAge[seq] = 0
	}
}

func (w *recvWindow) inWindow(seq uint32) bool {
	return !seqLess(seq, w.nextExpected) && seq-w.nextExpected < w.windowSize
}

// seqLess compares wire sequences with wraparound, per the usual
// serial-number-arithmetic half-range convention.
func seqLess(a, b uint32) bool {
	return int32(a-b) < 0
}
