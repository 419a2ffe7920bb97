package sharedring

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bugthesystem/flux/ring"
)

func TestCreateOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.shm")

	producerSide, err := Create[ring.Slot8](path, 1024)
	require.NoError(t, err)
	defer producerSide.Close()

	consumerSide, err := Open[ring.Slot8](path)
	require.NoError(t, err)
	defer consumerSide.Close()

	view, ok, err := producerSide.Producer().TryClaimSlots(1)
	require.NoError(t, err)
	require.True(t, ok)
	view.At(0).Value = 99
	require.NoError(t, producerSide.Producer().Publish(view))

	cview, ok := consumerSide.Consumer().TryConsumeBatch(1)
	require.True(t, ok)
	assert.EqualValues(t, 99, cview.At(0).Value)
	require.NoError(t, consumerSide.Consumer().AdvanceConsumer(cview))

	assert.EqualValues(t, 1, producerSide.ProducerCursor())
	assert.EqualValues(t, 1, consumerSide.ConsumerCursor())
}

func TestOpenRejectsSlotSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ring.shm")

	sr, err := Create[ring.Slot8](path, 64)
	require.NoError(t, err)
	defer sr.Close()

	_, err = Open[ring.Slot16](path)
	assert.ErrorIs(t, err, ErrSlotSizeMismatch)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.shm")
	require.NoError(t, writeGarbageFile(path))

	_, err := Open[ring.Slot8](path)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestCreateRejectsOversizedSegment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.shm")
	_, err := Create[ring.Slot8](path, 1<<30, WithMaxMemoryFraction(0.0000001))
	assert.ErrorIs(t, err, ErrSegmentTooLarge)
}
