package media

import "sync"

// SharedBuffer is an owned, growable byte region backing a Block's sample
// or pixel data. EnsureCapacity reuses the retained allocation when it is
// large enough, so writing the same buffer again does not reallocate.
//
// Writers must hold WriterLock for the duration of a mutation; readers
// (renderers) only ever see a buffer between WriterLock/WriterUnlock pairs
// performed by the decoding side, so a single RWMutex is sufficient — there
// is exactly one writer (the decoder for this media type) and the
// rendering worker reads it once per render call.
type SharedBuffer struct {
	mu   sync.RWMutex
	data []byte
	size int // logical length; len(data) may be larger (retained capacity)
}

// WriterLock acquires exclusive access for mutation.
func (b *SharedBuffer) WriterLock() { b.mu.Lock() }

// WriterUnlock releases exclusive access.
func (b *SharedBuffer) WriterUnlock() { b.mu.Unlock() }

// ReaderLock acquires shared read access.
func (b *SharedBuffer) ReaderLock() { b.mu.RLock() }

// ReaderUnlock releases shared read access.
func (b *SharedBuffer) ReaderUnlock() { b.mu.RUnlock() }

// Len returns the logical size of the buffer's current content.
func (b *SharedBuffer) Len() int { return b.size }

// Bytes returns the logical content. Callers must hold ReaderLock or
// WriterLock.
func (b *SharedBuffer) Bytes() []byte { return b.data[:b.size] }

// Cap returns the retained allocation size, independent of logical length.
func (b *SharedBuffer) Cap() int { return cap(b.data) }

// EnsureCapacity grows the retained allocation to at least n bytes,
// reallocating only when the current capacity is insufficient. Callers
// must hold WriterLock. Returns false if n is not positive.
//
// This is the fix for the "InteropMemory occasionally null" defect noted
// in spec.md §9: the buffer is allocated lazily on first write and any
// frame whose size exceeds the current allocation triggers a reallocation
// here rather than being copied into undersized memory.
func (b *SharedBuffer) EnsureCapacity(n int) bool {
	if n <= 0 {
		return false
	}
	if cap(b.data) < n {
		b.data = make([]byte, n)
	} else {
		b.data = b.data[:n]
	}
	b.size = n
	return true
}

// Write copies src into the buffer, growing it if necessary. Callers must
// hold WriterLock.
func (b *SharedBuffer) Write(src []byte) bool {
	if !b.EnsureCapacity(len(src)) {
		return false
	}
	copy(b.data, src)
	return true
}

// Reset clears the logical length without releasing the allocation, so a
// later Write can reuse it.
func (b *SharedBuffer) Reset() {
	b.mu.Lock()
	b.size = 0
	b.mu.Unlock()
}
