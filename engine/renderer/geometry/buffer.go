package geometry

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/geostore/engine/containers"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
)

// Buffer is one contiguous, growable backing store for a single element kind.
// Element ranges are handed out by a free list; growth reallocates the backing
// array and copies the live contents, so slices obtained before a growth keep
// pointing at the old array and must be fetched again.
type Buffer[T any] struct {
	kind        metadata.RenderBufferType
	data        []T
	free        *containers.FreeList
	maxElements int
	generation  uint32
	growths     int
}

// NewBuffer creates a buffer with the given initial capacity. Growth is capped at maxElements.
func NewBuffer[T any](kind metadata.RenderBufferType, capacity, maxElements int) *Buffer[T] {
	return &Buffer[T]{
		kind:        kind,
		data:        make([]T, capacity),
		free:        containers.NewFreeList(capacity),
		maxElements: maxElements,
	}
}

func (b *Buffer[T]) Kind() metadata.RenderBufferType {
	return b.kind
}

func (b *Buffer[T]) Capacity() int {
	return len(b.data)
}

// Generation is bumped every time the backing array is replaced.
func (b *Buffer[T]) Generation() uint32 {
	return b.generation
}

// Growths returns how many times the buffer has been reallocated.
func (b *Buffer[T]) Growths() int {
	return b.growths
}

func (b *Buffer[T]) FreeList() *containers.FreeList {
	return b.free
}

// Data returns the whole backing array.
func (b *Buffer[T]) Data() []T {
	return b.data
}

// Slice returns the n elements starting at offset.
func (b *Buffer[T]) Slice(offset, n int) []T {
	return b.data[offset : offset+n]
}

// requiredCapacity returns the capacity needed to allocate n elements, or the
// current capacity if the free list can already serve the request.
func (b *Buffer[T]) requiredCapacity(n int) int {
	if n <= 0 || b.free.LargestFree() >= n {
		return len(b.data)
	}

	// A free range touching the end merges with the grown space.
	return len(b.data) + n - b.free.TrailingFree()
}

// CanAllocate reports whether Allocate(n) would succeed without exceeding the growth cap.
func (b *Buffer[T]) CanAllocate(n int) bool {
	return b.requiredCapacity(n) <= b.maxElements
}

// Allocate reserves n elements and returns their offset, growing the buffer if
// no free range is large enough. The buffer is unchanged on error.
func (b *Buffer[T]) Allocate(n int) (int, error) {
	if n < 0 {
		return 0, core.Precondition(core.ErrOutOfRange, "negative %s allocation of %d elements", b.kind, n)
	}

	required := b.requiredCapacity(n)
	if required > b.maxElements {
		return 0, core.Precondition(core.ErrCapacityExhausted, "%s buffer cannot grow to %d elements (limit %d)", b.kind, required, b.maxElements)
	}
	if required > len(b.data) {
		// Amortised growth: at least double, or the exact requirement if larger.
		newCapacity := len(b.data) * 2
		if newCapacity < required {
			newCapacity = required
		}
		if newCapacity > b.maxElements {
			newCapacity = b.maxElements
		}
		b.grow(newCapacity)
	}

	offset, ok := b.free.Allocate(n)
	if !ok {
		return 0, errors.AssertionFailedf("%s buffer has no room for %d elements after growing to %d", b.kind, n, len(b.data))
	}
	return offset, nil
}

// EnsureCapacity grows the buffer to exactly capacity elements if it is smaller.
func (b *Buffer[T]) EnsureCapacity(capacity int) error {
	if capacity <= len(b.data) {
		return nil
	}
	if capacity > b.maxElements {
		return core.Precondition(core.ErrCapacityExhausted, "%s buffer cannot grow to %d elements (limit %d)", b.kind, capacity, b.maxElements)
	}
	b.grow(capacity)
	return nil
}

// Reserve marks the exact range [offset, offset+n) used.
func (b *Buffer[T]) Reserve(offset, n int) error {
	if err := b.EnsureCapacity(offset + n); err != nil {
		return err
	}
	return b.free.Reserve(offset, n)
}

// Release returns [offset, offset+n) to the free list. The contents are left in place.
func (b *Buffer[T]) Release(offset, n int) error {
	return b.free.Release(offset, n)
}

// CanExtend reports whether the range [offset, offset+n) can grow to newN elements in place.
func (b *Buffer[T]) CanExtend(offset, n, newN int) bool {
	return b.free.CanExtend(offset, n, newN)
}

// TryExtend grows [offset, offset+n) to newN elements in place if the following elements are free.
func (b *Buffer[T]) TryExtend(offset, n, newN int) bool {
	return b.free.TryExtend(offset, n, newN)
}

// Shrink truncates [offset, offset+n) to newN elements and frees the tail.
func (b *Buffer[T]) Shrink(offset, n, newN int) error {
	return b.free.Shrink(offset, n, newN)
}

// Write copies data into the buffer starting at offset.
func (b *Buffer[T]) Write(offset int, data []T) {
	copy(b.data[offset:offset+len(data)], data)
}

// Clear zeroes the n elements starting at offset.
func (b *Buffer[T]) Clear(offset, n int) {
	clear(b.data[offset : offset+n])
}

// Move copies n elements from src to dst inside this buffer. The ranges may overlap.
func (b *Buffer[T]) Move(dst, src, n int) {
	copy(b.data[dst:dst+n], b.data[src:src+n])
}

// CopyFrom copies the range [offset, offset+n) from another buffer of the same layout.
func (b *Buffer[T]) CopyFrom(src *Buffer[T], offset, n int) {
	copy(b.data[offset:offset+n], src.data[offset:offset+n])
}

func (b *Buffer[T]) grow(newCapacity int) {
	grown := make([]T, newCapacity)
	copy(grown, b.data)

	core.LogDebug("%s buffer grown from %d to %d elements", b.kind, len(b.data), newCapacity)

	b.data = grown
	b.free.Grow(newCapacity)
	b.generation++
	b.growths++
}
