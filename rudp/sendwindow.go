package rudp

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bugthesystem/flux/ring"
)

// sendWindow retains every sent-but-not-yet-cumulatively-acked packet
// so a NAK can be answered by resending instead of regenerating. It is
// a ring.Ring[Packet] used two ways at once: TryClaimSlots/Publish
// drives new sends exactly as any other producer would, while acks
// and retransmits use Producer.Peek/Consumer.AdvanceTo to read and
// release slots out of strict consumption order, since a NAK may name
// any sequence still in the window, not just the oldest one.
type sendWindow struct {
	core     *ring.Ring[Packet]
	producer *ring.Producer[Packet]
	consumer *ring.Consumer[Packet]

	nextSeq atomic.Uint32

	// sentAt records, per ring slot, when the packet currently occupying
	// it was last put on the wire (first send or a later retransmit) so
	// the oldest-unacked retransmit timeout can measure its age. Indexed
	// by ring sequence & mask, exactly like the slot buffer itself, so it
	// naturally recycles as the window wraps instead of growing unbounded.
	mask   uint64
	clock  clock.Clock
	sentAt []time.Time
}

func newSendWindow(capacity uint64) (*sendWindow, error) {
	core, err := ring.New[Packet](capacity, 1, ring.SPSC, ring.BusySpinPolicy{})
	if err != nil {
		return nil, err
	}
	producer, err := core.RegisterProducer()
	if err != nil {
		return nil, err
	}
	consumer, err := core.RegisterConsumer(0)
	if err != nil {
		return nil, err
	}
	return &sendWindow{
		core:     core,
		producer: producer,
		consumer: consumer,
		mask:     capacity - 1,
		clock:    clock.New(),
		sentAt:   make([]time.Time, capacity),
	}, nil
}

// SetClock injects the clock used to timestamp sends, letting a
// Transport share its own configured (and test-mockable) clock instead
// of the real wall clock defaulted to at construction.
func (w *sendWindow) SetClock(c clock.Clock) {
	if c != nil {
		w.clock = c
	}
}

// TrySend claims the next slot and publishes payload as a DATA packet.
// ok is false when the window is saturated (every slot still awaits
// ack). This can happen even after the congestion controller's CanSend
// reported true, since the controller keeps its own in-flight count
// separately from this window's cursors. Retransmits never claim
// slots; they re-read retained ones through Peek.
func (w *sendWindow) TrySend(payload []byte) (seq uint32, ok bool, err error) {
	view, claimed, err := w.producer.TryClaimSlots(1)
	if err != nil {
		return 0, false, err
	}
	if !claimed {
		return 0, false, nil
	}
	seq = w.nextSeq.Add(1) - 1
	*view.At(0) = Packet{Seq: seq, Flag: FlagData, Payload: payload}
	if err := w.producer.Publish(view); err != nil {
		return 0, false, err
	}
	w.sentAt[view.StartSeq()&w.mask] = w.clock.Now()
	return seq, true, nil
}

// Peek returns the retained packet for wire sequence seq, for
// answering a NAK by resend. ok is false once seq has fallen out of
// the window (already acked, or never sent).
func (w *sendWindow) Peek(seq uint32) (Packet, bool) {
	ringSeq, ok := w.toRingSequence(seq)
	if !ok {
		return Packet{}, false
	}
	slot, ok := w.producer.Peek(ringSeq)
	if !ok {
		return Packet{}, false
	}
	return *slot, true
}

// OnAck releases every slot through the packet carrying cumulativeSeq,
// in response to a received cumulative ACK. An ACK naming a sequence
// this window never sent (stale, reordered control traffic) is
// ignored rather than treated as an error — ACKs are idempotent hints,
// not commands the sender must honor exactly.
func (w *sendWindow) OnAck(cumulativeSeq uint32) error {
	ringSeq, ok := w.toRingSequence(cumulativeSeq)
	if !ok {
		return nil
	}
	if err := w.consumer.AdvanceTo(ringSeq + 1); err != nil {
		if errors.Is(err, ring.ErrPublishOutOfRange) {
			return nil
		}
		return err
	}
	return nil
}

// InFlight reports how many sent packets are still awaiting ack.
func (w *sendWindow) InFlight() uint64 {
	acked, _ := w.core.ConsumerCursor(0)
	return w.core.ProducerCursor() - acked
}

// OldestUnacked returns the wire sequence and last-send time of the
// oldest packet still awaiting ack, for driving a retransmit timeout.
// ok is false when nothing is currently in flight.
func (w *sendWindow) OldestUnacked() (seq uint32, sentAt time.Time, ok bool) {
	acked, _ := w.core.ConsumerCursor(0)
	if acked >= w.core.ProducerCursor() {
		return 0, time.Time{}, false
	}
	return uint32(acked), w.sentAt[acked&w.mask], true
}

// MarkSent stamps seq's slot with the current time, called after a
// retransmit so the timeout timer restarts from the resend rather than
// firing again immediately on the next check.
func (w *sendWindow) MarkSent(seq uint32) {
	ringSeq, ok := w.toRingSequence(seq)
	if !ok {
		return
	}
	w.sentAt[ringSeq&w.mask] = w.clock.Now()
}

// toRingSequence reconstructs the full 64-bit ring sequence from a
// 32-bit wire sequence by taking the high bits from the current
// producer cursor, since wire sequences wrap at 2^32 while ring
// sequences are monotonic for the life of the window (far longer than
// any single window's span of in-flight packets).
func (w *sendWindow) toRingSequence(wireSeq uint32) (uint64, bool) {
	cursor := w.core.ProducerCursor()
	candidate := (cursor &^ 0xFFFFFFFF) | uint64(wireSeq)
	if candidate > cursor {
		if candidate < (uint64(1) << 32) {
			return 0, false
		}
		candidate -= uint64(1) << 32
	}
	return candidate, true
}
