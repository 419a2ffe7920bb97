package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotSequenceAccessors(t *testing.T) {
	var s8 Slot8
	s8.SetSequence(7)
	assert.EqualValues(t, 7, s8.Sequence())

	var s16 Slot16
	s16.SetSequence(9)
	assert.EqualValues(t, 9, s16.Sequence())

	var s32 Slot32
	s32.SetSequence(11)
	assert.EqualValues(t, 11, s32.Sequence())

	var s64 Slot64
	s64.SetSequence(13)
	assert.EqualValues(t, 13, s64.Sequence())
}

func TestMessageSlot128RoundTrip(t *testing.T) {
	var slot MessageSlot128
	payload := []byte("hello ring buffer")
	slot.SetData(payload)

	assert.Equal(t, payload, slot.Data())
	assert.True(t, slot.VerifyChecksum())

	wire := slot.WireBytes()
	assert.Len(t, wire, 128)

	slot.Payload[0] ^= 0xFF
	assert.False(t, slot.VerifyChecksum())
}

func TestMessageSlot128TruncatesOversizedPayload(t *testing.T) {
	var slot MessageSlot128
	oversized := make([]byte, MaxMessagePayload+50)
	for i := range oversized {
		oversized[i] = byte(i)
	}
	slot.SetData(oversized)

	require.Len(t, slot.Data(), MaxMessagePayload)
	assert.True(t, slot.VerifyChecksum())
}
