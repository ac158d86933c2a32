package audio

import (
	"encoding/binary"
	"sync"
)

// EncodeBlock converts one block of floating-point samples into signed
// 16-bit little-endian mono PCM. Samples are clamped to [-1, 1]; negative
// values scale by 32768, non-negative by 32767.
func EncodeBlock(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s < -1 {
			s = -1
		} else if s > 1 {
			s = 1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// FrameBuffer accumulates encoded PCM frames in arrival order for a single
// batch upload.
type FrameBuffer struct {
	mu     sync.Mutex
	frames [][]byte
	size   int
}

func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Append stores a copy of frame. Empty frames are ignored.
func (b *FrameBuffer) Append(frame []byte) {
	if len(frame) == 0 {
		return
	}
	copied := append([]byte(nil), frame...)
	b.mu.Lock()
	b.frames = append(b.frames, copied)
	b.size += len(copied)
	b.mu.Unlock()
}

// Bytes concatenates all frames, preserving arrival order, into one
// contiguous sample buffer.
func (b *FrameBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, 0, b.size)
	for _, f := range b.frames {
		out = append(out, f...)
	}
	return out
}

// Len returns the total number of buffered bytes.
func (b *FrameBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Frames returns how many frames were appended.
func (b *FrameBuffer) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}
