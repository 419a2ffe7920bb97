package ring

import "encoding/binary"

// Slot is the value stored in a single ring buffer cell. Every
// instantiation of Ring[T] requires T to satisfy Slot so tests and
// callers can read back the sequence tag embedded in the slot itself.
// The interface only requires the value-receiver accessor: a
// pointer-receiver SetSequence, useful on every concrete slot type
// below, would keep the value type itself out of its own method set
// and break every instantiation of Ring[T] with a non-pointer T — the
// ring's actual claim/publish/consume protocol never needs to read a
// slot's embedded tag anyway (sequencing lives entirely in the
// separate Sequence cursors), so mutating it is left as a plain method
// rather than part of the constraint.
//
// Concrete slot types are fixed-size value types (clone via normal Go
// assignment, default-construct via the zero value) and are safe to
// share across goroutines because the ring protocol, not the slot
// type, enforces exclusive access to a given index at a given time.
type Slot interface {
	// Sequence returns the slot's embedded sequence tag.
	Sequence() uint64
}

// Slot8 is an 8-byte slot: a single monotonic value. The value also
// serves as the sequence tag, matching the original Rust Slot8 where
// value doubles as both payload and sequence (see
// original_source/kaos/src/disruptor/slots.rs).
type Slot8 struct {
	Value uint64
}

func (s Slot8) Sequence() uint64     { return s.Value }
func (s *Slot8) SetSequence(v uint64) { s.Value = v }

// Slot16 is a 16-byte slot holding two uint64 values (e.g. price +
// quantity). Value1 carries the sequence tag.
type Slot16 struct {
	Value1 uint64
	Value2 uint64
}

func (s Slot16) Sequence() uint64     { return s.Value1 }
func (s *Slot16) SetSequence(v uint64) { s.Value1 = v }

// Slot32 is a 32-byte slot holding four uint64 values.
type Slot32 struct {
	Value1 uint64
	Value2 uint64
	Value3 uint64
	Value4 uint64
}

func (s Slot32) Sequence() uint64     { return s.Value1 }
func (s *Slot32) SetSequence(v uint64) { s.Value1 = v }

// Slot64 is a full cache-line-sized slot holding eight uint64 values.
type Slot64 struct {
	Values [8]uint64
}

func (s Slot64) Sequence() uint64     { return s.Values[0] }
func (s *Slot64) SetSequence(v uint64) { s.Values[0] = v }

// MaxMessagePayload is the maximum payload size carried by a
// MessageSlot128: 128 B total minus the 4+4 byte length/checksum
// header.
const MaxMessagePayload = 120

// MessageSlot128 is the variable-length message slot. Its wire-visible
// layout is `{length: u32, checksum: u32, payload: [u8; 120]}`; the
// sequence tag is carried in an additional field that sits outside
// that 128-byte wire view (see WireBytes), since the wire layout has
// no room for it and the ring protocol needs it regardless of wire
// format.
type MessageSlot128 struct {
	seq      uint64
	Length   uint32
	Checksum uint32
	Payload  [MaxMessagePayload]byte
}

func (s MessageSlot128) Sequence() uint64      { return s.seq }
func (s *MessageSlot128) SetSequence(v uint64)  { s.seq = v }

// SetData copies data into the payload (truncated to MaxMessagePayload)
// and recomputes length and checksum.
func (s *MessageSlot128) SetData(data []byte) {
	n := len(data)
	if n > MaxMessagePayload {
		n = MaxMessagePayload
	}
	copy(s.Payload[:n], data[:n])
	for i := n; i < MaxMessagePayload; i++ {
		s.Payload[i] = 0
	}
	s.Length = uint32(n)
	s.Checksum = checksumIEEE(s.Payload[:n])
}

// Data returns the slot's logical payload (length-bounded view into
// Payload).
func (s *MessageSlot128) Data() []byte {
	n := s.Length
	if n > MaxMessagePayload {
		n = MaxMessagePayload
	}
	return s.Payload[:n]
}

// VerifyChecksum reports whether the stored checksum matches the
// current payload contents.
func (s *MessageSlot128) VerifyChecksum() bool {
	return s.Checksum == checksumIEEE(s.Data())
}

// WireBytes returns the 128-byte on-wire representation of the slot:
// length, checksum, payload as little-endian integers, with no
// sequence tag.
func (s *MessageSlot128) WireBytes() [128]byte {
	var b [128]byte
	binary.LittleEndian.PutUint32(b[0:4], s.Length)
	binary.LittleEndian.PutUint32(b[4:8], s.Checksum)
	copy(b[8:], s.Payload[:])
	return b
}
