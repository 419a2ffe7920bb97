package rudp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendWindowTrySendAssignsIncreasingSequences(t *testing.T) {
	w, err := newSendWindow(8)
	require.NoError(t, err)

	seq0, ok, err := w.TrySend([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	seq1, ok, err := w.TrySend([]byte("b"))
	require.NoError(t, err)
	require.True(t, ok)

	assert.EqualValues(t, 0, seq0)
	assert.EqualValues(t, 1, seq1)
}

func TestSendWindowSaturatesAtCapacity(t *testing.T) {
	w, err := newSendWindow(2)
	require.NoError(t, err)

	_, ok, err := w.TrySend([]byte("a"))
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = w.TrySend([]byte("b"))
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = w.TrySend([]byte("c"))
	require.NoError(t, err)
	assert.False(t, ok, "window should be full until an ack frees a slot")
}

func TestSendWindowPeekAndAck(t *testing.T) {
	w, err := newSendWindow(8)
	require.NoError(t, err)

	seq, ok, err := w.TrySend([]byte("payload"))
	require.NoError(t, err)
	require.True(t, ok)

	p, ok := w.Peek(seq)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), p.Payload)

	require.NoError(t, w.OnAck(seq))
	_, ok = w.Peek(seq)
	assert.False(t, ok, "acked sequence should no longer be retained")
}

func TestSendWindowAckFreesCapacity(t *testing.T) {
	w, err := newSendWindow(2)
	require.NoError(t, err)

	seq0, _, _ := w.TrySend([]byte("a"))
	_, _, _ = w.TrySend([]byte("b"))

	require.NoError(t, w.OnAck(seq0))

	_, ok, err := w.TrySend([]byte("c"))
	require.NoError(t, err)
	assert.True(t, ok)
}
