// Package pool holds reusable copy buffers shared by the archive writers and
// the 7z staging step.
//
// sync.Pool caches allocated but unused objects for later reuse. Items are
// dropped during garbage collection, so it suits short-lived copy buffers
// and nothing that must persist.
package pool

import (
	"fmt"
	"sync"
)

// BufferPool hands out byte slices of one fixed size.
type BufferPool struct {
	size int64
	pool sync.Pool
}

// NewBufferPool creates a pool of size-byte buffers. size must be positive.
func NewBufferPool(size int64) *BufferPool {
	if size <= 0 {
		panic(fmt.Sprintf("buffer size %d must be positive", size))
	}
	return &BufferPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, int(size))
				return &b
			},
		},
	}
}

// Size returns the length of every buffer handed out by Get.
func (bp *BufferPool) Size() int64 {
	return bp.size
}

// Get returns a buffer of exactly Size bytes.
func (bp *BufferPool) Get() *[]byte {
	return bp.pool.Get().(*[]byte)
}

// Put returns a buffer to the pool. Buffers of a foreign capacity are dropped.
func (bp *BufferPool) Put(b *[]byte) {
	if b == nil || int64(cap(*b)) != bp.size {
		return
	}
	*b = (*b)[:bp.size]
	bp.pool.Put(b)
}
