package sharedring

import "encoding/binary"

// Layout (little-endian throughout):
//
//	offset 0      : magic (8 B: ASCII "KAOSRING")
//	offset 8      : layout_version (u32)
//	offset 12     : slot_size (u32, must equal sizeof T)
//	offset 16     : capacity (u32)
//	offset 20     : pad_cache_line (u32: 64 or 128)
//	offset 24     : producer_generation (u32, futex word, bumped on publish)
//	offset 28     : consumer_generation (u32, futex word, bumped on advance)
//	offset 32..64 : reserved / zero
//	offset 64             : producer_cursor (padded atomic, pad_cache_line bytes)
//	offset 64+pad         : consumer_cursor  (padded atomic, pad_cache_line bytes)
//	offset 64+2*pad       : slot array (capacity x slot_size)
const (
	offsetMagic               = 0
	offsetVersion             = 8
	offsetSlotSize            = 12
	offsetCapacity            = 16
	offsetPadCacheLine        = 20
	offsetProducerGeneration  = 24
	offsetConsumerGeneration  = 28
	headerFixedSize           = 64

	// LayoutVersion is the version this build writes and expects on
	// open.
	LayoutVersion = 1
)

var magicBytes = [8]byte{'K', 'A', 'O', 'S', 'R', 'I', 'N', 'G'}

// Header is a decoded view of the fixed-size segment header.
type Header struct {
	Magic              [8]byte
	Version            uint32
	SlotSize           uint32
	Capacity           uint32
	PadCacheLine       uint32
	ProducerGeneration uint32
	ConsumerGeneration uint32
}

// segmentSize computes the total file size for capacity slots of
// slotSize bytes each, padded per padCacheLine.
func segmentSize(capacity, slotSize, padCacheLine uint64) uint64 {
	return headerFixedSize + 2*padCacheLine + capacity*slotSize
}

func producerCursorOffset(padCacheLine uint64) uint64 { return headerFixedSize }
func consumerCursorOffset(padCacheLine uint64) uint64 { return headerFixedSize + padCacheLine }
func slotArrayOffset(padCacheLine uint64) uint64       { return headerFixedSize + 2*padCacheLine }

func writeHeader(mem []byte, h Header) {
	copy(mem[offsetMagic:offsetMagic+8], h.Magic[:])
	binary.LittleEndian.PutUint32(mem[offsetVersion:], h.Version)
	binary.LittleEndian.PutUint32(mem[offsetSlotSize:], h.SlotSize)
	binary.LittleEndian.PutUint32(mem[offsetCapacity:], h.Capacity)
	binary.LittleEndian.PutUint32(mem[offsetPadCacheLine:], h.PadCacheLine)
	binary.LittleEndian.PutUint32(mem[offsetProducerGeneration:], h.ProducerGeneration)
	binary.LittleEndian.PutUint32(mem[offsetConsumerGeneration:], h.ConsumerGeneration)
}

func readHeader(mem []byte) Header {
	var h Header
	copy(h.Magic[:], mem[offsetMagic:offsetMagic+8])
	h.Version = binary.LittleEndian.Uint32(mem[offsetVersion:])
	h.SlotSize = binary.LittleEndian.Uint32(mem[offsetSlotSize:])
	h.Capacity = binary.LittleEndian.Uint32(mem[offsetCapacity:])
	h.PadCacheLine = binary.LittleEndian.Uint32(mem[offsetPadCacheLine:])
	h.ProducerGeneration = binary.LittleEndian.Uint32(mem[offsetProducerGeneration:])
	h.ConsumerGeneration = binary.LittleEndian.Uint32(mem[offsetConsumerGeneration:])
	return h
}

// validateHeader checks the header against the caller's expectations
// for slot size and, if non-zero, capacity and cache-line padding.
func validateHeader(h Header, wantSlotSize uint32, wantCapacity uint32, wantPadCacheLine uint32) error {
	if h.Magic != magicBytes {
		return ErrBadMagic
	}
	if h.Version != LayoutVersion {
		return ErrVersionMismatch
	}
	if h.SlotSize != wantSlotSize {
		return ErrSlotSizeMismatch
	}
	if wantCapacity != 0 && h.Capacity != wantCapacity {
		return ErrCapacityMismatch
	}
	if wantPadCacheLine != 0 && h.PadCacheLine != wantPadCacheLine {
		return ErrPaddingMismatch
	}
	return nil
}
