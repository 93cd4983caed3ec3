package fence

import (
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/geostore/engine/containers"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
)

// DefaultTimelineDepth is the number of outstanding fences a timeline holds
// before its queue grows.
const DefaultTimelineDepth = 4

// Timeline hands out fences in submission order and completes them in the
// same order as the consumer reports finished frames. Fence n completes on the
// n-th call to Signal, whether that call comes before or after the fence was
// created.
//
// CreateSyncObject is called by the producer, Signal by the consumer; both are
// safe to call concurrently.
type Timeline struct {
	mu        sync.Mutex
	issued    uint64
	completed uint64
	pending   *containers.RingQueue[*Fence]
}

func NewTimeline(depth int) *Timeline {
	if depth <= 0 {
		depth = DefaultTimelineDepth
	}
	return &Timeline{
		pending: containers.NewRingQueue[*Fence](depth),
	}
}

// CreateSyncObject issues the next fence of the timeline.
func (t *Timeline) CreateSyncObject() metadata.SyncObject {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.issued++
	f := newFence(t.issued)
	if t.completed >= f.value {
		f.Signal()
		return f
	}

	if err := t.pending.Enqueue(f); err != nil {
		t.grow()
		if err := t.pending.Enqueue(f); err != nil {
			core.LogError("fence timeline could not queue fence %d: %s", f.value, err)
		}
	}
	return f
}

// Signal marks the oldest unfinished frame as completed.
func (t *Timeline) Signal() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	for !t.pending.IsEmpty() {
		f, _ := t.pending.Peek()
		if f.value > t.completed {
			break
		}
		_, _ = t.pending.Dequeue()
		f.Signal()
	}
}

// Issued returns the value of the last fence handed out.
func (t *Timeline) Issued() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.issued
}

// Completed returns the number of Signal calls so far.
func (t *Timeline) Completed() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Pending returns the number of fences waiting to be signalled.
func (t *Timeline) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.Len()
}

func (t *Timeline) grow() {
	grown := containers.NewRingQueue[*Fence](t.pending.Len() * 2)
	for !t.pending.IsEmpty() {
		f, _ := t.pending.Dequeue()
		_ = grown.Enqueue(f)
	}
	core.LogDebug("fence timeline queue grown to %d", grown.Len()*2)
	t.pending = grown
}

// NullProvider hands out nil sync objects, which the store treats as already
// completed, and counts how often it was asked.
type NullProvider struct {
	invocations atomic.Int64
}

func (p *NullProvider) CreateSyncObject() metadata.SyncObject {
	p.invocations.Add(1)
	return nil
}

func (p *NullProvider) Invocations() int {
	return int(p.invocations.Load())
}

func (p *NullProvider) Reset() {
	p.invocations.Store(0)
}
