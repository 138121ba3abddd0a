package malgomixer

import (
	"errors"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"
)

// buffer moves audio between a line and the miniaudio device thread. The
// device callback is the only producer of capture buffers and the only
// consumer of playback buffers.
type buffer struct {
	ring *ringbuffer.RingBuffer
	size int
	// dropped counts bytes lost to overruns (capture) or underruns (playback).
	dropped atomic.Uint64
}

func newBuffer(size int) *buffer {
	return &buffer{ring: ringbuffer.New(size), size: size}
}

func (b *buffer) capacity() int { return b.size }

// fill stores captured audio, dropping what does not fit.
func (b *buffer) fill(in []byte) {
	n, _ := b.ring.Write(in)
	if n < len(in) {
		b.dropped.Add(uint64(len(in) - n))
	}
}

// drain hands buffered audio to the device and pads gaps with silence.
func (b *buffer) drain(out []byte) {
	n, _ := b.ring.TryRead(out)
	if n < len(out) {
		clear(out[n:])
		b.dropped.Add(uint64(len(out) - n))
	}
}

// readFull copies len(p) bytes into p once that many are buffered and
// returns 0 otherwise.
func (b *buffer) readFull(p []byte) int {
	if b.ring.Length() < len(p) {
		return 0
	}
	n, err := b.ring.TryRead(p)
	if errors.Is(err, ringbuffer.ErrAcquireLock) || errors.Is(err, ringbuffer.ErrIsEmpty) {
		return 0
	}
	return n
}

// write stores as much of p as fits and returns the byte count.
func (b *buffer) write(p []byte) int {
	n := min(len(p), b.ring.Free())
	if n == 0 {
		return 0
	}
	n, _ = b.ring.Write(p[:n])
	return n
}

func (b *buffer) reset() {
	b.ring.Reset()
	b.dropped.Store(0)
}
