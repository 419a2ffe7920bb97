package rudp

import "encoding/binary"

// HeaderSize is the fixed 8-byte on-wire header shared by every packet
// kind: seq:u32 LE | length:u16 LE | flags:u8 | reserved:u8.
const HeaderSize = 8

// DefaultMTU is the default maximum UDP payload this package assumes;
// callers may override it with WithMTU.
const DefaultMTU = 1400

// Flag distinguishes the three packet kinds sharing the 8-byte header.
type Flag uint8

const (
	FlagData Flag = 0x00
	FlagAck  Flag = 0x01
	FlagNak  Flag = 0x02
)

func (f Flag) String() string {
	switch f {
	case FlagData:
		return "DATA"
	case FlagAck:
		return "ACK"
	case FlagNak:
		return "NAK"
	default:
		return "UNKNOWN"
	}
}

// Packet is a single on-wire unit: a DATA packet carries Payload
// directly; ACK and NAK packets repurpose the payload area for their
// control fields (see EncodeAck/EncodeNak, DecodeAck/DecodeNak).
type Packet struct {
	seq     uint64 // embedded ring.Slot sequence tag, distinct from Seq below
	Seq     uint32
	Flag    Flag
	Payload []byte
}

// Sequence satisfies ring.Slot so Packet can be stored directly in a
// ring.Ring[Packet]. SetSequence is a plain helper, not part of the
// interface (ring.Slot intentionally only requires the value-receiver
// accessor).
func (p Packet) Sequence() uint64      { return p.seq }
func (p *Packet) SetSequence(v uint64) { p.seq = v }

// Encode writes p's wire representation. DATA packets are length-
// checked against mtu; control packets ignore mtu since their payload
// is fixed-size.
func Encode(p Packet, mtu int) ([]byte, error) {
	if p.Flag == FlagData && len(p.Payload) > mtu-HeaderSize {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderSize+len(p.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], p.Seq)
	binary.LittleEndian.PutUint16(buf[4:6], uint16(len(p.Payload)))
	buf[6] = byte(p.Flag)
	buf[7] = 0
	copy(buf[HeaderSize:], p.Payload)
	return buf, nil
}

// Decode parses a wire buffer into a Packet. The returned Payload
// aliases buf; callers that retain it past the lifetime of buf must
// copy it.
func Decode(buf []byte) (Packet, error) {
	if len(buf) < HeaderSize {
		return Packet{}, ErrPacketTooShort
	}
	length := binary.LittleEndian.Uint16(buf[4:6])
	flag := Flag(buf[6])
	if flag != FlagData && flag != FlagAck && flag != FlagNak {
		return Packet{}, ErrInvalidFlag
	}
	end := HeaderSize + int(length)
	if end > len(buf) {
		return Packet{}, ErrPacketTooShort
	}
	return Packet{
		Seq:     binary.LittleEndian.Uint32(buf[0:4]),
		Flag:    flag,
		Payload: buf[HeaderSize:end],
	}, nil
}

// EncodeAck builds an ACK packet whose payload carries the cumulative
// sequence the receiver has fully delivered through.
func EncodeAck(cumulativeSeq uint32) Packet {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, cumulativeSeq)
	return Packet{Flag: FlagAck, Payload: payload}
}

// DecodeAck extracts the cumulative sequence from an ACK packet's
// payload.
func DecodeAck(p Packet) (cumulativeSeq uint32, ok bool) {
	if p.Flag != FlagAck || len(p.Payload) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(p.Payload[0:4]), true
}

// EncodeNak builds a NAK packet requesting retransmission of the
// inclusive sequence range [missingStart, missingEnd].
func EncodeNak(missingStart, missingEnd uint32) Packet {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], missingStart)
	binary.LittleEndian.PutUint32(payload[4:8], missingEnd)
	return Packet{Flag: FlagNak, Payload: payload}
}

// DecodeNak extracts the missing range from a NAK packet's payload.
func DecodeNak(p Packet) (missingStart, missingEnd uint32, ok bool) {
	if p.Flag != FlagNak || len(p.Payload) < 8 {
		return 0, 0, false
	}
	return binary.LittleEndian.Uint32(p.Payload[0:4]), binary.LittleEndian.Uint32(p.Payload[4:8]), true
}
