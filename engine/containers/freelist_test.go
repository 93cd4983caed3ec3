package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestFreeListFirstFit(t *testing.T) {
	fl := NewFreeList(100)

	a, ok := fl.Allocate(10)
	require.True(t, ok)
	b, ok := fl.Allocate(20)
	require.True(t, ok)
	c, ok := fl.Allocate(30)
	require.True(t, ok)
	assert.Equal(t, []int{0, 10, 30}, []int{a, b, c})

	require.NoError(t, fl.Release(a, 10))

	// Too big for the hole at 0, goes to the tail.
	d, ok := fl.Allocate(15)
	require.True(t, ok)
	assert.Equal(t, 60, d)

	// Fits the hole at 0.
	e, ok := fl.Allocate(5)
	require.True(t, ok)
	assert.Equal(t, 0, e)

	require.NoError(t, fl.Validate())
	assert.Equal(t, 70, fl.UsedElements())
}

func TestFreeListZeroSize(t *testing.T) {
	fl := NewFreeList(10)

	off, ok := fl.Allocate(0)
	assert.True(t, ok)
	assert.Equal(t, 0, off)
	assert.Equal(t, 10, fl.FreeElements())
	assert.NoError(t, fl.Release(0, 0))
	assert.Equal(t, 1, fl.FreeRangeCount())
}

func TestFreeListExactFitLeavesNoFragment(t *testing.T) {
	fl := NewFreeList(32)

	_, ok := fl.Allocate(32)
	require.True(t, ok)
	assert.Equal(t, 0, fl.FreeRangeCount())
	assert.Equal(t, 0, fl.FreeElements())

	_, ok = fl.Allocate(1)
	assert.False(t, ok)
	require.NoError(t, fl.Validate())
}

func TestFreeListReleaseCoalescesBothNeighbours(t *testing.T) {
	fl := NewFreeList(30)

	for i := 0; i < 3; i++ {
		_, ok := fl.Allocate(10)
		require.True(t, ok)
	}

	require.NoError(t, fl.Release(0, 10))
	require.NoError(t, fl.Release(20, 10))
	assert.Equal(t, 2, fl.FreeRangeCount())

	require.NoError(t, fl.Release(10, 10))
	assert.Equal(t, []Range{{Offset: 0, Length: 30}}, fl.Ranges())
	require.NoError(t, fl.Validate())
}

func TestFreeListRejectsDoubleRelease(t *testing.T) {
	fl := NewFreeList(20)

	off, ok := fl.Allocate(10)
	require.True(t, ok)
	require.NoError(t, fl.Release(off, 10))

	assert.Error(t, fl.Release(off, 10))
	assert.Error(t, fl.Release(5, 10))
	assert.Error(t, fl.Release(15, 10))
	require.NoError(t, fl.Validate())
}

func TestFreeListReserve(t *testing.T) {
	fl := NewFreeList(50)

	require.NoError(t, fl.Reserve(10, 5))
	assert.Equal(t, []Range{{Offset: 0, Length: 10}, {Offset: 15, Length: 35}}, fl.Ranges())

	assert.Error(t, fl.Reserve(12, 2))
	assert.Error(t, fl.Reserve(8, 4))

	require.NoError(t, fl.Reserve(0, 10))
	assert.Equal(t, []Range{{Offset: 15, Length: 35}}, fl.Ranges())
	require.NoError(t, fl.Validate())
}

func TestFreeListExtendAndShrink(t *testing.T) {
	fl := NewFreeList(40)

	a, _ := fl.Allocate(10)
	b, _ := fl.Allocate(10)
	require.NoError(t, fl.Release(b, 10))

	assert.True(t, fl.TryExtend(a, 10, 25))
	assert.Equal(t, []Range{{Offset: 25, Length: 15}}, fl.Ranges())

	assert.False(t, fl.TryExtend(a, 25, 50))

	require.NoError(t, fl.Shrink(a, 25, 5))
	assert.Equal(t, []Range{{Offset: 5, Length: 35}}, fl.Ranges())
	assert.Error(t, fl.Shrink(a, 5, 6))
	require.NoError(t, fl.Validate())
}

func TestFreeListGrowMergesTail(t *testing.T) {
	fl := NewFreeList(10)

	_, ok := fl.Allocate(4)
	require.True(t, ok)

	fl.Grow(20)
	assert.Equal(t, []Range{{Offset: 4, Length: 16}}, fl.Ranges())

	_, ok = fl.Allocate(16)
	require.True(t, ok)
	fl.Grow(25)
	assert.Equal(t, []Range{{Offset: 20, Length: 5}}, fl.Ranges())

	fl.Grow(5)
	assert.Equal(t, 25, fl.Capacity())
	require.NoError(t, fl.Validate())
}

func TestFreeListRandomisedStaysCoalesced(t *testing.T) {
	rnd := rand.New(rand.NewSource(17))
	fl := NewFreeList(1024)
	mirror := NewFreeList(1024)

	type alloc struct{ offset, size int }
	var live []alloc

	for i := 0; i < 5000; i++ {
		if len(live) > 0 && rnd.Intn(3) == 0 {
			idx := rnd.Intn(len(live))
			a := live[idx]
			live = append(live[:idx], live[idx+1:]...)
			require.NoError(t, fl.Release(a.offset, a.size))
			require.NoError(t, mirror.Release(a.offset, a.size))
			continue
		}

		size := 1 + rnd.Intn(64)
		off, ok := fl.Allocate(size)
		if !ok {
			fl.Grow(fl.Capacity() * 2)
			mirror.Grow(mirror.Capacity() * 2)
			off, ok = fl.Allocate(size)
			require.True(t, ok)
		}
		require.NoError(t, mirror.Reserve(off, size))
		live = append(live, alloc{off, size})
	}

	require.NoError(t, fl.Validate())
	assert.True(t, fl.Equal(mirror))

	used := 0
	for _, a := range live {
		used += a.size
	}
	assert.Equal(t, used, fl.UsedElements())

	for _, a := range live {
		require.NoError(t, fl.Release(a.offset, a.size))
	}
	assert.Equal(t, []Range{{Offset: 0, Length: fl.Capacity()}}, fl.Ranges())
}
