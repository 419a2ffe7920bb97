package ring

import "errors"

// Construction errors.
var (
	// ErrCapacityNotPowerOfTwo is returned when a requested capacity is
	// not a power of two.
	ErrCapacityNotPowerOfTwo = errors.New("ring: capacity must be a power of two")
	// ErrCapacityTooSmall is returned when a requested capacity is below
	// the minimum of 2.
	ErrCapacityTooSmall = errors.New("ring: capacity must be >= 2")
	// ErrInvalidConsumerCount is returned when consumer_count is zero.
	ErrInvalidConsumerCount = errors.New("ring: consumer_count must be >= 1")
	// ErrInvalidCacheLine names a cache-line padding value other than 64
	// or 128. No function in this module returns it:
	// sharedring.WithCacheLine ignores such values and keeps its default.
	ErrInvalidCacheLine = errors.New("ring: cache_line must be 64 or 128")
	// ErrMissingProducerClaim is returned by NewFromParts when mode is
	// multi-producer but no producer claim sequence was supplied.
	ErrMissingProducerClaim = errors.New("ring: multi-producer mode requires a producer claim sequence")
)

// Protocol / programming errors.
var (
	// ErrClaimExceedsCapacity is returned by TryClaimSlots when n exceeds
	// the ring's capacity; this can never succeed regardless of gating.
	ErrClaimExceedsCapacity = errors.New("ring: claim size exceeds capacity")
	// ErrConsumerIDOutOfRange is returned when a consumer id is not a
	// valid index into the ring's registered consumer cursors.
	ErrConsumerIDOutOfRange = errors.New("ring: consumer id out of range")
	// ErrConsumerAlreadyRegistered is returned by RegisterConsumer when
	// the slot has already been claimed by another handle.
	ErrConsumerAlreadyRegistered = errors.New("ring: consumer id already registered")
	// ErrPublishOutOfRange is returned by Publish on a single-producer
	// ring when the view ends before the current producer cursor, and by
	// Consumer.AdvanceTo when the target lies past the producer cursor.
	// Claims are not recorded per producer, so publishing a view that was
	// never claimed is not detected.
	ErrPublishOutOfRange = errors.New("ring: publish end sequence was not claimed")
)
