package ring

import "hash/crc32"

// checksumIEEE computes the checksum carried by MessageSlot128.
//
// SIMD/hardware-accelerated checksum variants are explicitly out of
// scope as a platform-tuning concern, so this stays on the plain
// table-driven IEEE CRC-32 from the standard library rather than
// reaching for a hardware-accelerated third-party implementation — the
// one place in this module where stdlib is the correct choice, not a
// fallback.
func checksumIEEE(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
