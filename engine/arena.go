package engine

import "unsafe"

// Arena is a bump allocator for frontier levels. Memory is handed out
// monotonically and only reclaimed as a whole by Reset.
type Arena struct {
	words []uint64
	off   int
	peak  int
}

// NewArena reserves bytes of backing store (rounded down to whole words).
func NewArena(bytes int64) *Arena {
	return &Arena{words: make([]uint64, bytes/8)}
}

// Reset releases every allocation.
func (a *Arena) Reset() { a.off = 0 }

// Cap returns the arena size in bytes.
func (a *Arena) Cap() int64 { return int64(len(a.words)) * 8 }

// Used returns the bytes handed out since the last Reset.
func (a *Arena) Used() int64 { return int64(a.off) * 8 }

// Peak returns the high-water mark in bytes over the arena's lifetime.
func (a *Arena) Peak() int64 { return int64(a.peak) * 8 }

// Remaining returns the bytes still available.
func (a *Arena) Remaining() int64 { return a.Cap() - a.Used() }

// sliceBytes is the arena footprint of n elements of size bytes each.
func sliceBytes(n int, size uintptr) int64 {
	return (int64(n)*int64(size) + 7) &^ 7
}

// allocate returns a zeroed slice of n elements carved from the arena, or
// false when the arena is exhausted. T must be free of pointers and need
// at most 8-byte alignment.
func allocate[T any](a *Arena, n int) ([]T, bool) {
	if n == 0 {
		return nil, true
	}
	var zero T
	words := int(sliceBytes(n, unsafe.Sizeof(zero)) / 8)
	if a.off+words > len(a.words) {
		return nil, false
	}
	s := unsafe.Slice((*T)(unsafe.Pointer(&a.words[a.off])), n)
	a.off += words
	if a.off > a.peak {
		a.peak = a.off
	}
	clear(s)
	return s, true
}
