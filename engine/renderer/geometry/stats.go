package geometry

import (
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spaghettifunk/geostore/engine/containers"
)

// BufferStats describes one backing buffer of the current frame copy.
type BufferStats struct {
	Capacity       int
	UsedElements   int
	FreeElements   int
	FreeRanges     int
	LargestFree    int
	Growths        int
	LiveElements   int
	ReservedMargin int
}

// Stats is a snapshot of the store's occupancy and frame counters.
type Stats struct {
	Slots            int
	FrameBuffers     int
	CurrentFrame     int
	Frames           uint64
	Relocations      int
	FenceWaits       int
	FenceStalls      int
	AverageFenceWait time.Duration
	Vertices         BufferStats
	Indices          BufferStats
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"slots=%d frames=%d (buffer %d/%d) vertices=%d/%d (%d free ranges, %d growths) indices=%d/%d (%d free ranges, %d growths) relocations=%d fence waits=%d (avg %s, %d stalls)",
		s.Slots, s.Frames, s.CurrentFrame, s.FrameBuffers,
		s.Vertices.UsedElements, s.Vertices.Capacity, s.Vertices.FreeRanges, s.Vertices.Growths,
		s.Indices.UsedElements, s.Indices.Capacity, s.Indices.FreeRanges, s.Indices.Growths,
		s.Relocations, s.FenceWaits, s.AverageFenceWait, s.FenceStalls,
	)
}

// Stats collects the current statistics.
func (s *Store) Stats() Stats {
	cur := s.frames[s.current]
	stats := Stats{
		Slots:        s.slots.Len(),
		FrameBuffers: len(s.frames),
		CurrentFrame: s.current,
		Frames:       s.frameCount,
		Relocations:  s.relocations,
		FenceWaits:   s.fenceWaits,
		FenceStalls:  s.fenceStalls,
		Vertices:     bufferStats(cur.vertices.FreeList(), cur.vertices.Growths()),
		Indices:      bufferStats(cur.indices.FreeList(), cur.indices.Growths()),
	}
	if s.fenceWaits > 0 {
		stats.AverageFenceWait = s.totalFenceWait / time.Duration(s.fenceWaits)
	}

	s.slots.Each(func(_, _ uint32, info *slotInfo) {
		stats.Vertices.LiveElements += info.vertexCount
		stats.Indices.LiveElements += info.indexCount
	})
	stats.Vertices.ReservedMargin = stats.Vertices.UsedElements - stats.Vertices.LiveElements
	stats.Indices.ReservedMargin = stats.Indices.UsedElements - stats.Indices.LiveElements
	return stats
}

func bufferStats(fl *containers.FreeList, growths int) BufferStats {
	return BufferStats{
		Capacity:     fl.Capacity(),
		UsedElements: fl.UsedElements(),
		FreeElements: fl.FreeElements(),
		FreeRanges:   fl.FreeRangeCount(),
		LargestFree:  fl.LargestFree(),
		Growths:      growths,
	}
}

// WriteDetailedMap writes the layout of the store as JSON: the buffer totals,
// every live slot and the free ranges of both buffers.
func (s *Store) WriteDetailedMap(w io.Writer) error {
	stats := s.Stats()

	json := jwriter.NewStreamingWriter(w, 1024)
	root := json.Object()
	root.Name("Id").String(s.id.String())
	root.Name("Frames").Int(int(stats.Frames))
	root.Name("CurrentFrameBuffer").Int(stats.CurrentFrame)
	root.Name("FrameBufferCount").Int(stats.FrameBuffers)
	root.Name("Relocations").Int(stats.Relocations)

	writeBufferMap(root.Name("Vertices"), stats.Vertices, s.frames[s.current].vertices.FreeList())
	writeBufferMap(root.Name("Indices"), stats.Indices, s.frames[s.current].indices.FreeList())

	slots := root.Name("Slots").Array()
	s.slots.Each(func(id, generation uint32, info *slotInfo) {
		slot := json.Object()
		slot.Name("Index").Int(int(id))
		slot.Name("Generation").Int(int(generation))
		slot.Name("VertexOffset").Int(info.vertexOffset)
		slot.Name("VertexCapacity").Int(info.vertexCapacity)
		slot.Name("VertexCount").Int(info.vertexCount)
		slot.Name("IndexOffset").Int(info.indexOffset)
		slot.Name("IndexCapacity").Int(info.indexCapacity)
		slot.Name("IndexCount").Int(info.indexCount)
		slot.End()
	})
	slots.End()
	root.End()

	if err := json.Flush(); err != nil {
		return errors.Wrap(err, "writing geometry store map")
	}
	return errors.Wrap(json.Error(), "writing geometry store map")
}

func writeBufferMap(json *jwriter.Writer, stats BufferStats, fl *containers.FreeList) {
	obj := json.Object()
	obj.Name("Capacity").Int(stats.Capacity)
	obj.Name("UsedElements").Int(stats.UsedElements)
	obj.Name("LiveElements").Int(stats.LiveElements)
	obj.Name("Growths").Int(stats.Growths)
	obj.Name("LargestFree").Int(stats.LargestFree)

	ranges := obj.Name("FreeRanges").Array()
	for _, r := range fl.Ranges() {
		free := json.Object()
		free.Name("Offset").Int(r.Offset)
		free.Name("Length").Int(r.Length)
		free.End()
	}
	ranges.End()
	obj.End()
}
