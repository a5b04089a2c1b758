// Package secure holds helpers for keeping secret material short-lived in memory.
package secure

import (
	"crypto/subtle"
	"math/big"
	"runtime"
	"sync"
)

// Buffer owns a sensitive byte slice. The owner must call Destroy on every exit
// path, normally with defer right after construction.
type Buffer struct {
	data []byte
	mu   sync.Mutex
}

// NewBuffer allocates a zeroed buffer of the given size.
func NewBuffer(size int) *Buffer {
	return &Buffer{
		data: make([]byte, size),
	}
}

// FromBytes copies data into a new Buffer. The caller keeps ownership of data.
func FromBytes(data []byte) *Buffer {
	b := &Buffer{
		data: make([]byte, len(data)),
	}
	copy(b.data, data)
	return b
}

// Take moves data into a new Buffer without copying. The caller must not use
// data afterwards.
func Take(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes exposes the underlying slice. It is only valid until Destroy.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Copy returns a copy of the contents that outlives the buffer.
func (b *Buffer) Copy() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Destroy overwrites the contents and releases the slice. Safe to call more
// than once and on a nil receiver.
func (b *Buffer) Destroy() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	Zero(b.data)
	b.data = nil
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ZeroAll zeroes every slice in bs.
func ZeroAll(bs [][]byte) {
	for _, b := range bs {
		Zero(b)
	}
}

// ZeroInt overwrites the limbs backing x and sets it to zero.
func ZeroInt(x *big.Int) {
	if x == nil {
		return
	}
	words := x.Bits()
	for i := range words {
		words[i] = 0
	}
	runtime.KeepAlive(words)
	x.SetInt64(0)
}

// ZeroInts calls ZeroInt on each element.
func ZeroInts(xs []*big.Int) {
	for _, x := range xs {
		ZeroInt(x)
	}
}

func ConstantTimeCompare(x, y []byte) bool {
	if len(x) != len(y) {
		return false
	}
	return subtle.ConstantTimeCompare(x, y) == 1
}
