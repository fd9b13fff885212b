// Package memalloc provides the stack allocator the process table uses to
// back every descriptor's stack region. It is an external collaborator to
// the scheduler/IPC core, not part of it, but it is a real first-fit free
// list with coalescing rather than a stub, so process.Table.Create has
// something to actually allocate from.
package memalloc

import (
	"errors"
	"sort"
	"unsafe"
)

// ErrOutOfMemory is returned when no free block is large enough to
// satisfy a request.
var ErrOutOfMemory = errors.New("memalloc: out of memory")

// ErrZeroSize is returned when Alloc is asked for a zero-byte region.
var ErrZeroSize = errors.New("memalloc: zero size requested")

const alignment = 16

type block struct {
	offset uint32
	size   uint32
}

// Allocator is a first-fit, coalescing free-list allocator carved out of a
// single fixed-size backing arena. Instead of block headers embedded in
// the arena, the free list is tracked out-of-band as a slice of (offset,
// size) pairs, which keeps the arena itself a plain []byte and avoids
// unsafe struct overlays.
//
// Not safe for concurrent use, by design: only the goroutine currently
// holding the scheduler baton ever calls Alloc/Free (creating or exiting
// a process is not a suspension point), so no lock is needed.
type Allocator struct {
	arena []byte
	free  []block
}

// New creates an allocator over a freshly allocated arena of the given
// size, entirely free.
func New(size uint32) *Allocator {
	return &Allocator{
		arena: make([]byte, size),
		free:  []block{{offset: 0, size: size}},
	}
}

func alignUp(v uint32) uint32 {
	rem := v % alignment
	if rem == 0 {
		return v
	}
	return v + alignment - rem
}

// Alloc returns a region of at least size bytes, first-fit. The returned
// slice aliases the allocator's arena; callers must pass it back to Free
// exactly once and must not retain it afterward.
func (a *Allocator) Alloc(size uint32) ([]byte, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	need := alignUp(size)

	for i := range a.free {
		b := a.free[i]
		if b.size < need {
			continue
		}

		if b.size > need {
			a.free[i] = block{offset: b.offset + need, size: b.size - need}
		} else {
			a.free = append(a.free[:i], a.free[i+1:]...)
		}
		return a.arena[b.offset : b.offset+need : b.offset+need], nil
	}

	return nil, ErrOutOfMemory
}

// Free returns a region previously obtained from Alloc, coalescing it
// with any adjacent free blocks.
func (a *Allocator) Free(region []byte) {
	if len(region) == 0 {
		return
	}
	off := a.offsetOf(region)
	a.free = append(a.free, block{offset: off, size: uint32(cap(region))})
	a.coalesce()
}

// offsetOf recovers a region's position within the arena via pointer
// arithmetic. Safe here because the arena is a single fixed allocation
// that never grows or moves for the allocator's lifetime.
func (a *Allocator) offsetOf(region []byte) uint32 {
	base := uintptr(unsafe.Pointer(&a.arena[0]))
	ptr := uintptr(unsafe.Pointer(&region[0]))
	return uint32(ptr - base)
}

func (a *Allocator) coalesce() {
	sort.Slice(a.free, func(i, j int) bool { return a.free[i].offset < a.free[j].offset })

	merged := a.free[:0]
	for _, b := range a.free {
		if n := len(merged); n > 0 && merged[n-1].offset+merged[n-1].size == b.offset {
			merged[n-1].size += b.size
			continue
		}
		merged = append(merged, b)
	}
	a.free = merged
}

// Stats reports the total free space and the size of the single largest
// free block, mirroring memory_get_stats for the demo shell's "mem"
// command.
func (a *Allocator) Stats() (totalFree, largestBlock uint32) {
	for _, b := range a.free {
		totalFree += b.size
		if b.size > largestBlock {
			largestBlock = b.size
		}
	}
	return totalFree, largestBlock
}

// Capacity returns the size of the backing arena.
func (a *Allocator) Capacity() uint32 {
	return uint32(len(a.arena))
}
