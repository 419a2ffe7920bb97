package sharedring

import "errors"

var (
	// ErrBadMagic is returned by Open when the file does not start with
	// the expected "KAOSRING" magic bytes.
	ErrBadMagic = errors.New("sharedring: bad magic bytes")
	// ErrVersionMismatch is returned by Open when the file's layout
	// version differs from the version this build writes.
	ErrVersionMismatch = errors.New("sharedring: layout version mismatch")
	// ErrSlotSizeMismatch is returned by Open when the file's recorded
	// slot size doesn't match sizeof(T) for the instantiated type.
	ErrSlotSizeMismatch = errors.New("sharedring: slot size mismatch")
	// ErrCapacityMismatch is returned by header validation when a
	// non-zero expected capacity disagrees with the file's recorded
	// capacity. Open takes no expected capacity, so it does not return
	// this error; it uses the capacity recorded in the file.
	ErrCapacityMismatch = errors.New("sharedring: capacity mismatch")
	// ErrPaddingMismatch is returned by Open when the file's cache-line
	// padding differs from what the opener expects.
	ErrPaddingMismatch = errors.New("sharedring: cache line padding mismatch")
	// ErrFileTooSmall is returned by Open when the file is smaller than
	// the minimum header size.
	ErrFileTooSmall = errors.New("sharedring: backing file too small for header")
	// ErrSegmentTooLarge is returned by Create when the computed segment
	// size exceeds the configured fraction of total host memory.
	ErrSegmentTooLarge = errors.New("sharedring: segment size exceeds configured memory budget")
	// ErrFutexTimeout is returned by a futex-backed wait when no wake
	// arrives before the deadline.
	ErrFutexTimeout = errors.New("sharedring: futex wait timed out")
	// ErrUnsupportedPlatform is returned by futex/mmap operations on
	// platforms without a native implementation.
	ErrUnsupportedPlatform = errors.New("sharedring: unsupported platform")
)
