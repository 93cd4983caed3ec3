package geometry

import (
	"time"

	"github.com/spaghettifunk/geostore/engine/containers"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/math"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
	"golang.org/x/exp/slices"
)

// FrameState is the lifecycle state of one frame buffer copy.
type FrameState int

const (
	// FrameStateIdle: not current and not waited on by the consumer.
	FrameStateIdle FrameState = iota
	// FrameStateWritable: the current copy, safe to write.
	FrameStateWritable
	// FrameStateInFlight: submitted, a sync object guards it.
	FrameStateInFlight
)

func (s FrameState) String() string {
	switch s {
	case FrameStateIdle:
		return "Idle"
	case FrameStateWritable:
		return "Writable"
	case FrameStateInFlight:
		return "InFlight"
	default:
		return "Unknown"
	}
}

// frameBuffer is one of the mirrored copies of the backing buffers. All copies
// share the same allocation layout; element writes only ever land in the
// current copy and are recorded in the pending logs of the others.
type frameBuffer struct {
	vertices   *Buffer[math.Vertex3D]
	indices    *Buffer[uint32]
	syncObject metadata.SyncObject
	state      FrameState

	pendingVertices []containers.Range
	pendingIndices  []containers.Range
}

func newFrameBuffer(config Config) *frameBuffer {
	return &frameBuffer{
		vertices: NewBuffer[math.Vertex3D](metadata.RENDERBUFFER_TYPE_VERTEX, config.InitialVertexCapacity, config.MaxVertices),
		indices:  NewBuffer[uint32](metadata.RENDERBUFFER_TYPE_INDEX, config.InitialIndexCapacity, config.MaxIndices),
		state:    FrameStateIdle,
	}
}

// markVertices records a vertex range written in another copy.
func (fb *frameBuffer) markVertices(offset, n int) {
	if n > 0 {
		fb.pendingVertices = append(fb.pendingVertices, containers.Range{Offset: offset, Length: n})
	}
}

// markIndices records an index range written in another copy.
func (fb *frameBuffer) markIndices(offset, n int) {
	if n > 0 {
		fb.pendingIndices = append(fb.pendingIndices, containers.Range{Offset: offset, Length: n})
	}
}

// waitForConsumer blocks until the sync object issued for this copy has
// completed and returns how long it waited.
func (fb *frameBuffer) waitForConsumer(clock *core.Clock) time.Duration {
	so := fb.syncObject
	fb.syncObject = nil
	if so == nil || so.HasCompleted() {
		return 0
	}

	clock.Start()
	so.WaitUntilCompleted()
	clock.Update()
	clock.Stop()
	return clock.Elapsed()
}

// syncFrom copies every range written since this copy was last current from
// source, which must be complete.
func (fb *frameBuffer) syncFrom(source *frameBuffer) (vertices, indices int) {
	for _, r := range coalesce(fb.pendingVertices) {
		fb.vertices.CopyFrom(source.vertices, r.Offset, r.Length)
		vertices += r.Length
	}
	for _, r := range coalesce(fb.pendingIndices) {
		fb.indices.CopyFrom(source.indices, r.Offset, r.Length)
		indices += r.Length
	}
	fb.pendingVertices = fb.pendingVertices[:0]
	fb.pendingIndices = fb.pendingIndices[:0]
	return vertices, indices
}

// coalesce sorts ranges in place and merges overlapping or touching ones.
func coalesce(ranges []containers.Range) []containers.Range {
	if len(ranges) < 2 {
		return ranges
	}
	slices.SortFunc(ranges, func(a, b containers.Range) int {
		return a.Offset - b.Offset
	})

	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Offset <= last.End() {
			if r.End() > last.End() {
				last.Length = r.End() - last.Offset
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
