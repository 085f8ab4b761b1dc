// Package limiter bounds the memory held by in-memory archive builds.
package limiter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrBudgetExceeded is returned when a write would exceed the memory budget.
var ErrBudgetExceeded = errors.New("memory budget exceeded")

// Memory is a byte budget shared by concurrent users. It is thread-safe.
type Memory struct {
	mu        sync.Mutex
	available int64
	capacity  int64
}

// NewMemory creates a limiter with the given capacity in bytes.
func NewMemory(limit int64) *Memory {
	return &Memory{
		available: limit,
		capacity:  limit,
	}
}

// TryAcquire reserves n bytes. It fails if the budget cannot currently hold
// n more bytes, or never could.
func (m *Memory) TryAcquire(n int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n > m.capacity || m.available < n {
		return false
	}
	m.available -= n
	return true
}

// Release returns n bytes to the budget. Available never exceeds capacity.
func (m *Memory) Release(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.available = min(m.available+n, m.capacity)
}

// Available returns the bytes currently free.
func (m *Memory) Available() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Capacity returns the total budget.
func (m *Memory) Capacity() int64 {
	return m.capacity
}

// Buffer is an in-memory byte buffer whose growth is charged against a
// Memory budget. A nil budget means unlimited. Release must be called once
// the contents are no longer needed.
type Buffer struct {
	buf    bytes.Buffer
	budget *Memory
	held   int64
}

// NewBuffer returns an empty buffer charged against budget.
func NewBuffer(budget *Memory) *Buffer {
	return &Buffer{budget: budget}
}

// Write appends p, failing with ErrBudgetExceeded when the budget has no room.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.budget != nil {
		if !b.budget.TryAcquire(int64(len(p))) {
			return 0, fmt.Errorf("%w: %d of %d bytes in use", ErrBudgetExceeded, b.budget.Capacity()-b.budget.Available(), b.budget.Capacity())
		}
		b.held += int64(len(p))
	}
	return b.buf.Write(p)
}

// WriteTo drains the buffer into w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	return b.buf.WriteTo(w)
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return b.buf.Len()
}

// Bytes returns the unread contents. The slice is only valid until Release.
func (b *Buffer) Bytes() []byte {
	return b.buf.Bytes()
}

// Release frees the contents and returns their bytes to the budget.
func (b *Buffer) Release() {
	b.buf = bytes.Buffer{}
	if b.budget != nil && b.held > 0 {
		b.budget.Release(b.held)
		b.held = 0
	}
}
