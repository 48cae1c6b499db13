package streaming

import (
	"sync/atomic"
)

// BufferSize is the number of frame slots in the ring buffer.
// At 60fps 16 frames is ~267ms of slack for encoder or upload spikes.
const BufferSize = 16

// FrameRingBuffer decouples frame production from FFmpeg writes.
// Single producer (render loop), single consumer (AsyncFrameWriter).
// When full, new frames are dropped rather than blocking the render loop.
type FrameRingBuffer struct {
	frames    [BufferSize][]byte
	readIdx   atomic.Uint32
	writeIdx  atomic.Uint32
	frameSize int

	framesWritten atomic.Uint64
	framesDropped atomic.Uint64
	framesRead    atomic.Uint64
}

// NewFrameRingBuffer creates a ring buffer with pre-allocated frame slots.
func NewFrameRingBuffer(frameSize int) *FrameRingBuffer {
	rb := &FrameRingBuffer{frameSize: frameSize}
	for i := range rb.frames {
		rb.frames[i] = make([]byte, frameSize)
	}
	return rb
}

// FrameSize returns the byte length of one slot.
func (rb *FrameRingBuffer) FrameSize() int {
	return rb.frameSize
}

// TryWrite copies frame into the next free slot.
// Returns false if the buffer is full or the frame has the wrong size.
func (rb *FrameRingBuffer) TryWrite(frame []byte) bool {
	if len(frame) != rb.frameSize {
		return false
	}

	current := rb.writeIdx.Load()
	next := (current + 1) % BufferSize
	if next == rb.readIdx.Load() {
		rb.framesDropped.Add(1)
		return false
	}

	copy(rb.frames[current], frame)
	rb.writeIdx.Store(next)
	rb.framesWritten.Add(1)
	return true
}

// TryRead copies the oldest frame into dst and frees its slot.
// Returns false if the buffer is empty.
func (rb *FrameRingBuffer) TryRead(dst []byte) bool {
	current := rb.readIdx.Load()
	if current == rb.writeIdx.Load() {
		return false
	}

	// Copy before releasing the slot so the producer cannot overwrite it mid-read
	copy(dst, rb.frames[current])
	rb.readIdx.Store((current + 1) % BufferSize)
	rb.framesRead.Add(1)
	return true
}

// Available returns the number of frames waiting to be read.
func (rb *FrameRingBuffer) Available() int {
	r := rb.readIdx.Load()
	w := rb.writeIdx.Load()
	if w >= r {
		return int(w - r)
	}
	return int(BufferSize - r + w)
}

// GetStats returns buffer counters.
func (rb *FrameRingBuffer) GetStats() (written, dropped, read uint64) {
	return rb.framesWritten.Load(), rb.framesDropped.Load(), rb.framesRead.Load()
}

// Reset empties the buffer and zeroes the counters. Only call while neither
// side is running.
func (rb *FrameRingBuffer) Reset() {
	rb.readIdx.Store(0)
	rb.writeIdx.Store(0)
	rb.framesWritten.Store(0)
	rb.framesDropped.Store(0)
	rb.framesRead.Store(0)
}
