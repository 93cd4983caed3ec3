package containers

import (
	"github.com/cockroachdb/errors"
	"github.com/google/btree"
)

const freeListDegree = 8

// Range is a contiguous run of elements inside a buffer.
type Range struct {
	Offset int
	Length int
}

// End returns the first element offset past the range.
func (r Range) End() int {
	return r.Offset + r.Length
}

func rangeLess(a, b Range) bool {
	return a.Offset < b.Offset
}

// FreeList tracks the free element ranges of a buffer of a given capacity.
// Free ranges are kept in an ordered set keyed by offset and are always fully
// coalesced: no two free ranges touch, and no free range is empty.
//
// The used space is the complement of the free ranges; FreeList does not
// remember individual allocations, callers pass offset and length back on release.
type FreeList struct {
	capacity  int
	freeTotal int
	free      *btree.BTreeG[Range]
}

// NewFreeList creates a free list whose whole capacity is free.
func NewFreeList(capacity int) *FreeList {
	fl := &FreeList{
		free: btree.NewG[Range](freeListDegree, rangeLess),
	}
	fl.Grow(capacity)
	return fl
}

func (fl *FreeList) Capacity() int {
	return fl.capacity
}

func (fl *FreeList) FreeElements() int {
	return fl.freeTotal
}

func (fl *FreeList) UsedElements() int {
	return fl.capacity - fl.freeTotal
}

// FreeRangeCount returns the number of disjoint free ranges, a measure of fragmentation.
func (fl *FreeList) FreeRangeCount() int {
	return fl.free.Len()
}

// Allocate returns the offset of the first free range that can hold size
// elements and marks it used. A size of zero always succeeds at offset 0
// without consuming anything. ok is false if no free range is large enough.
func (fl *FreeList) Allocate(size int) (offset int, ok bool) {
	if size <= 0 {
		return 0, true
	}

	var found Range
	fl.free.Ascend(func(r Range) bool {
		if r.Length >= size {
			found = r
			ok = true
			return false
		}
		return true
	})
	if !ok {
		return 0, false
	}

	fl.free.Delete(found)
	if found.Length > size {
		fl.free.ReplaceOrInsert(Range{Offset: found.Offset + size, Length: found.Length - size})
	}
	fl.freeTotal -= size
	return found.Offset, true
}

// Reserve marks the exact range [offset, offset+size) used. The range must lie
// entirely within one free range.
func (fl *FreeList) Reserve(offset, size int) error {
	if size <= 0 {
		return nil
	}

	container, ok := fl.containing(offset)
	if !ok || container.End() < offset+size {
		return errors.AssertionFailedf("reserve [%d, %d) is not free", offset, offset+size)
	}

	fl.free.Delete(container)
	if head := offset - container.Offset; head > 0 {
		fl.free.ReplaceOrInsert(Range{Offset: container.Offset, Length: head})
	}
	if tail := container.End() - (offset + size); tail > 0 {
		fl.free.ReplaceOrInsert(Range{Offset: offset + size, Length: tail})
	}
	fl.freeTotal -= size
	return nil
}

// Release returns [offset, offset+size) to the free space, merging it with the
// free ranges directly before and after it.
func (fl *FreeList) Release(offset, size int) error {
	if size <= 0 {
		return nil
	}
	if offset < 0 || offset+size > fl.capacity {
		return errors.AssertionFailedf("release [%d, %d) outside capacity %d", offset, offset+size, fl.capacity)
	}

	released := Range{Offset: offset, Length: size}

	prev, hasPrev := fl.predecessor(offset)
	if hasPrev && prev.End() > offset {
		return errors.AssertionFailedf("release [%d, %d) overlaps free range [%d, %d)", offset, released.End(), prev.Offset, prev.End())
	}
	next, hasNext := fl.successor(offset)
	if hasNext && next.Offset < released.End() {
		return errors.AssertionFailedf("release [%d, %d) overlaps free range [%d, %d)", offset, released.End(), next.Offset, next.End())
	}

	if hasPrev && prev.End() == offset {
		fl.free.Delete(prev)
		released = Range{Offset: prev.Offset, Length: prev.Length + released.Length}
	}
	if hasNext && next.Offset == offset+size {
		fl.free.Delete(next)
		released.Length += next.Length
	}
	fl.free.ReplaceOrInsert(released)
	fl.freeTotal += size
	return nil
}

// CanExtend reports whether TryExtend would succeed, without changing anything.
func (fl *FreeList) CanExtend(offset, size, newSize int) bool {
	extra := newSize - size
	if extra <= 0 {
		return true
	}
	next, ok := fl.free.Get(Range{Offset: offset + size})
	return ok && next.Length >= extra
}

// TrailingFree returns the length of the free range ending at the capacity, if any.
func (fl *FreeList) TrailingFree() int {
	if last, ok := fl.free.Max(); ok && last.End() == fl.capacity {
		return last.Length
	}
	return 0
}

// TryExtend grows the used range [offset, offset+size) to newSize elements in
// place if the elements directly after it are free. It reports whether it did.
func (fl *FreeList) TryExtend(offset, size, newSize int) bool {
	if !fl.CanExtend(offset, size, newSize) {
		return false
	}
	extra := newSize - size
	if extra <= 0 {
		return true
	}

	next, _ := fl.free.Get(Range{Offset: offset + size})

	fl.free.Delete(next)
	if rest := next.Length - extra; rest > 0 {
		fl.free.ReplaceOrInsert(Range{Offset: next.Offset + extra, Length: rest})
	}
	fl.freeTotal -= extra
	return true
}

// Shrink truncates the used range [offset, offset+size) to newSize elements,
// releasing the tail.
func (fl *FreeList) Shrink(offset, size, newSize int) error {
	if newSize < 0 || newSize > size {
		return errors.AssertionFailedf("cannot shrink %d elements to %d", size, newSize)
	}
	return fl.Release(offset+newSize, size-newSize)
}

// Grow extends the managed capacity. The new elements are free.
func (fl *FreeList) Grow(newCapacity int) {
	if newCapacity <= fl.capacity {
		return
	}

	added := Range{Offset: fl.capacity, Length: newCapacity - fl.capacity}
	if last, ok := fl.free.Max(); ok && last.End() == fl.capacity {
		fl.free.Delete(last)
		added = Range{Offset: last.Offset, Length: last.Length + added.Length}
	}
	fl.free.ReplaceOrInsert(added)
	fl.freeTotal += newCapacity - fl.capacity
	fl.capacity = newCapacity
}

// LargestFree returns the length of the largest free range.
func (fl *FreeList) LargestFree() int {
	largest := 0
	fl.free.Ascend(func(r Range) bool {
		if r.Length > largest {
			largest = r.Length
		}
		return true
	})
	return largest
}

// Ranges returns the free ranges in offset order.
func (fl *FreeList) Ranges() []Range {
	ranges := make([]Range, 0, fl.free.Len())
	fl.free.Ascend(func(r Range) bool {
		ranges = append(ranges, r)
		return true
	})
	return ranges
}

// Equal reports whether both lists describe the same capacity and free space.
func (fl *FreeList) Equal(other *FreeList) bool {
	if fl.capacity != other.capacity || fl.freeTotal != other.freeTotal || fl.free.Len() != other.free.Len() {
		return false
	}
	a, b := fl.Ranges(), other.Ranges()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Validate checks the ordering, coalescing and accounting invariants.
func (fl *FreeList) Validate() error {
	var err error
	prevEnd := -1
	total := 0
	fl.free.Ascend(func(r Range) bool {
		switch {
		case r.Length <= 0:
			err = errors.AssertionFailedf("empty free range at offset %d", r.Offset)
		case r.Offset < 0 || r.End() > fl.capacity:
			err = errors.AssertionFailedf("free range [%d, %d) outside capacity %d", r.Offset, r.End(), fl.capacity)
		case r.Offset <= prevEnd:
			err = errors.AssertionFailedf("free range at offset %d touches or overlaps the previous one ending at %d", r.Offset, prevEnd)
		}
		prevEnd = r.End()
		total += r.Length
		return err == nil
	})
	if err != nil {
		return err
	}
	if total != fl.freeTotal {
		return errors.AssertionFailedf("free ranges sum to %d elements, accounting says %d", total, fl.freeTotal)
	}
	return nil
}

// containing returns the free range holding offset, if any.
func (fl *FreeList) containing(offset int) (Range, bool) {
	var found Range
	ok := false
	fl.free.DescendLessOrEqual(Range{Offset: offset}, func(r Range) bool {
		if r.End() > offset {
			found = r
			ok = true
		}
		return false
	})
	return found, ok
}

// predecessor returns the free range with the greatest offset not above offset.
// A range starting exactly at offset is returned too, callers treat it as an overlap.
func (fl *FreeList) predecessor(offset int) (Range, bool) {
	var found Range
	ok := false
	fl.free.DescendLessOrEqual(Range{Offset: offset}, func(r Range) bool {
		found = r
		ok = true
		return false
	})
	return found, ok
}

// successor returns the free range with the smallest offset above offset.
func (fl *FreeList) successor(offset int) (Range, bool) {
	var found Range
	ok := false
	fl.free.AscendGreaterOrEqual(Range{Offset: offset + 1}, func(r Range) bool {
		found = r
		ok = true
		return false
	})
	return found, ok
}
