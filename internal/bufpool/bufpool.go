// Copyright 2024 Matt Brandt. All Rights Reserved.

// Package bufpool provides a pooled growable byte buffer used as the
// internal buffer of pack.Reader and pack.Writer (§4.3.3, §4.4.3).
//
// It is adapted from the ByteBuffer/ByteBufferPool pattern of a columnar
// time-series blob codec in the same retrieval pack: a plain growable
// slice wrapper, pooled with sync.Pool so that repeated Reader/Writer
// construction in a busy process reuses backing arrays instead of
// reallocating them every time.
package bufpool

import "sync"

// DefaultSize and MaxThreshold bound the buffers handed out by the default
// pool: small enough that a single idle connection doesn't pin much memory,
// large enough that most Pack messages never need a reallocation.
const (
	DefaultSize  = 4 * 1024   // 4KiB
	MaxThreshold = 256 * 1024 // 256KiB
)

// Buffer is a growable byte slice with the handful of operations the codec
// needs: append, length/capacity introspection, explicit truncation, and
// in-place extension.
type Buffer struct {
	B []byte
}

// New creates a Buffer with the given starting capacity.
func New(size int) *Buffer {
	return &Buffer{B: make([]byte, 0, size)}
}

// Bytes returns the buffer's current contents.
func (b *Buffer) Bytes() []byte { return b.B }

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int { return len(b.B) }

// Cap returns the buffer's current capacity.
func (b *Buffer) Cap() int { return cap(b.B) }

// Reset empties the buffer while retaining its backing array.
func (b *Buffer) Reset() { b.B = b.B[:0] }

// Append appends data to the buffer, growing it as needed.
func (b *Buffer) Append(data []byte) { b.B = append(b.B, data...) }

// Fits reports whether n additional bytes can be appended without
// reallocating.
func (b *Buffer) Fits(n int) bool { return cap(b.B)-len(b.B) >= n }

// Grow ensures the buffer can accept at least n additional bytes without
// reallocating, doubling (capacity+n) the way the spec's writeBytes
// no-sink growth rule requires (§4.4.3): new capacity = (current
// capacity + n) * 2.
func (b *Buffer) Grow(n int) {
	if b.Fits(n) {
		return
	}
	newCap := (cap(b.B) + n) * 2
	grown := make([]byte, len(b.B), newCap)
	copy(grown, b.B)
	b.B = grown
}

// Reserve ensures the buffer's capacity is at least size, growing its
// backing array in place (without the doubling Grow applies) if not. It
// lets a caller pull a Buffer from the package pool and then top it up to a
// caller-configured size instead of discarding the pooled array.
func (b *Buffer) Reserve(size int) {
	if cap(b.B) >= size {
		return
	}
	grown := make([]byte, len(b.B), size)
	copy(grown, b.B)
	b.B = grown
}

// Pool pools Buffers of a given starting size, discarding buffers that grew
// past maxThreshold instead of returning them to the pool.
type Pool struct {
	pool         sync.Pool
	defaultSize  int
	maxThreshold int
}

// NewPool creates a Pool handing out Buffers of defaultSize, and declining
// to retain any buffer whose capacity exceeds maxThreshold.
func NewPool(defaultSize, maxThreshold int) *Pool {
	p := &Pool{defaultSize: defaultSize, maxThreshold: maxThreshold}
	p.pool.New = func() any { return New(p.defaultSize) }
	return p
}

// Get retrieves a Buffer from the pool.
func (p *Pool) Get() *Buffer {
	buf, _ := p.pool.Get().(*Buffer)
	return buf
}

// Put returns buf to the pool for reuse, unless it has grown past the
// pool's maxThreshold.
func (p *Pool) Put(buf *Buffer) {
	if buf == nil {
		return
	}
	if p.maxThreshold > 0 && buf.Cap() > p.maxThreshold {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}

var defaultPool = NewPool(DefaultSize, MaxThreshold)

// Get retrieves a Buffer from the package-level default pool.
func Get() *Buffer { return defaultPool.Get() }

// Put returns buf to the package-level default pool.
func Put(buf *Buffer) { defaultPool.Put(buf) }
