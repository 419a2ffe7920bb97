package rudp

import "errors"

var (
	// ErrPacketTooShort is returned by Decode when a buffer is smaller
	// than the 8-byte wire header.
	ErrPacketTooShort = errors.New("rudp: packet shorter than header")
	// ErrPayloadTooLarge is returned by Encode when a DATA packet's
	// payload exceeds the configured MTU budget.
	ErrPayloadTooLarge = errors.New("rudp: payload exceeds mtu budget")
	// ErrInvalidFlag is returned by Decode when the flags byte does not
	// match a known packet kind.
	ErrInvalidFlag = errors.New("rudp: unrecognized packet flag")
	// ErrWindowFull is returned by the send window when the congestion
	// window is saturated. Not a fatal error: the caller retries per its
	// wait policy.
	ErrWindowFull = errors.New("rudp: send window saturated")
	// ErrClosed is returned by Send, SendBatch and Pump once Close has
	// been called.
	ErrClosed = errors.New("rudp: transport closed")
)
