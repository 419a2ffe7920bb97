package sharedring

import (
	"os"
	"unsafe"

	"github.com/google/uuid"
	"github.com/pbnjay/memory"
	"go.uber.org/zap"

	"github.com/bugthesystem/flux/ring"
)

// SharedRing is a cross-process SPSC ring buffer over a memory-mapped
// file. It wraps a ring.Ring[T] built from ring.NewFromParts with
// mmap-backed Sequence and buffer implementations, so the sequence
// protocol itself is identical to the in-process ring.
type SharedRing[T ring.Slot] struct {
	id       uuid.UUID
	path     string
	file     *os.File
	mem      []byte
	core     *ring.Ring[T]
	producer *ring.Producer[T]
	consumer *ring.Consumer[T]
}

// Create creates a new backing file at path sized for capacity slots
// of T and returns a producer-side handle. capacity must be a power of
// two >= 2.
func Create[T ring.Slot](path string, capacity uint64, opts ...Option) (*SharedRing[T], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	slotSize := uint64(unsafe.Sizeof(*new(T)))
	pad := uint64(cfg.padCacheLine)
	size := segmentSize(capacity, slotSize, pad)

	if cfg.maxMemoryFraction > 0 {
		budget := uint64(float64(memory.TotalMemory()) * cfg.maxMemoryFraction)
		if budget > 0 && size > budget {
			return nil, ErrSegmentTooLarge
		}
	}

	file, mem, err := createFile(path, size)
	if err != nil {
		return nil, err
	}

	writeHeader(mem, Header{
		Magic:        magicBytes,
		Version:      LayoutVersion,
		SlotSize:     uint32(slotSize),
		Capacity:     uint32(capacity),
		PadCacheLine: cfg.padCacheLine,
	})

	if cfg.mlock {
		if err := mlock(mem); err != nil {
			cfg.logger.Warn("sharedring: mlock failed, continuing without page pinning", zap.Error(err))
		}
	}

	sr, err := newFromMapping[T](path, file, mem, capacity, pad, cfg)
	if err != nil {
		return nil, err
	}
	cfg.logger.Info("sharedring: created segment",
		zap.String("path", path), zap.Uint64("capacity", capacity), zap.String("id", sr.id.String()))
	return sr, nil
}

// Open attaches to an existing backing file at path and returns a
// consumer-side handle. It fails if the file's magic, version, slot
// size, or padding do not match this build's expectations.
func Open[T ring.Slot](path string, opts ...Option) (*SharedRing[T], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	file, mem, err := openFile(path)
	if err != nil {
		return nil, err
	}

	slotSize := uint32(unsafe.Sizeof(*new(T)))
	hdr := readHeader(mem)
	if err := validateHeader(hdr, slotSize, 0, cfg.padCacheLine); err != nil {
		munmap(mem)
		file.Close()
		return nil, err
	}

	sr, err := newFromMapping[T](path, file, mem, uint64(hdr.Capacity), uint64(hdr.PadCacheLine), cfg)
	if err != nil {
		return nil, err
	}
	cfg.logger.Info("sharedring: opened segment",
		zap.String("path", path), zap.Uint64("capacity", uint64(hdr.Capacity)), zap.String("id", sr.id.String()))
	return sr, nil
}

// Unlink removes the backing file at path. It does not affect any
// already-open mappings.
func Unlink(path string) error {
	return os.Remove(path)
}

func newFromMapping[T ring.Slot](path string, file *os.File, mem []byte, capacity, pad uint64, cfg *config) (*SharedRing[T], error) {
	producerCursor := newMmapSequence(mem, producerCursorOffset(pad), offsetProducerGeneration)
	consumerCursor := newMmapSequence(mem, consumerCursorOffset(pad), offsetConsumerGeneration)

	slotArrayStart := slotArrayOffset(pad)
	buffer := unsafe.Slice((*T)(unsafe.Pointer(&mem[slotArrayStart])), capacity)

	// The producer blocks on the consumer cursor's generation word
	// (woken when the consumer frees space); the consumer blocks on the
	// producer cursor's generation word (woken when new data publishes).
	// The ring accepts one WaitPolicy at construction, shared by both
	// handles; the one installed here waits on the producer cursor's
	// generation word only, so it wakes when new data publishes. The
	// ring stores the policy but never invokes it itself, and
	// FutexBlockPolicy's cursor field is unexported, so code outside
	// this package cannot bind one to the consumer cursor.
	waitPolicy := &FutexBlockPolicy{seq: producerCursor, MaxWait: cfg.blockMaxWait}

	core, err := ring.NewFromParts[T](buffer, ring.SPSC, waitPolicy, producerCursor, nil, []ring.Sequence{consumerCursor})
	if err != nil {
		munmap(mem)
		file.Close()
		return nil, err
	}

	producer, err := core.RegisterProducer()
	if err != nil {
		munmap(mem)
		file.Close()
		return nil, err
	}
	consumer, err := core.RegisterConsumer(0)
	if err != nil {
		munmap(mem)
		file.Close()
		return nil, err
	}

	return &SharedRing[T]{
		id:       uuid.New(),
		path:     path,
		file:     file,
		mem:      mem,
		core:     core,
		producer: producer,
		consumer: consumer,
	}, nil
}

// ID returns a diagnostic identifier unique to this process's handle
// (not shared with the peer process's handle on the same file).
func (s *SharedRing[T]) ID() uuid.UUID { return s.id }

// Producer returns the ring's producer handle.
func (s *SharedRing[T]) Producer() *ring.Producer[T] { return s.producer }

// Consumer returns the ring's consumer handle.
func (s *SharedRing[T]) Consumer() *ring.Consumer[T] { return s.consumer }

// ProducerCursor returns the current producer cursor value.
func (s *SharedRing[T]) ProducerCursor() uint64 { return s.core.ProducerCursor() }

// ConsumerCursor returns the current consumer cursor value.
func (s *SharedRing[T]) ConsumerCursor() uint64 {
	v, _ := s.core.ConsumerCursor(0)
	return v
}

// Close unmaps the segment and closes the file descriptor. The
// backing file is left on disk; call Unlink separately to remove it.
func (s *SharedRing[T]) Close() error {
	if err := munmap(s.mem); err != nil {
		return err
	}
	return s.file.Close()
}
