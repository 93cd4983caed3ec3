package software

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/renderer/fence"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
)

// ErrNotRunning is returned by Submit before Initialize or after Shutdown.
var ErrNotRunning = errors.New("software backend is not running")

// Backend plays the GPU on a goroutine. Every submitted packet is read in
// full: each draw call's indices are resolved against the frame copy's vertex
// buffer and hashed. When the packet is done the frame's fence on the timeline
// is signalled, releasing the copy back to the producer.
type Backend struct {
	timeline  *fence.Timeline
	workDelay time.Duration
	depth     int

	mu      sync.Mutex
	packets chan *metadata.RenderPacket
	running bool
	wg      sync.WaitGroup

	frames       atomic.Uint64
	drawCalls    atomic.Uint64
	mismatches   atomic.Uint64
	lastChecksum atomic.Uint64
}

// New creates a backend whose queue holds up to depth packets. workDelay is
// slept once per packet to simulate a slow consumer.
func New(depth int, workDelay time.Duration) *Backend {
	if depth <= 0 {
		depth = 1
	}
	return &Backend{
		timeline:  fence.NewTimeline(depth),
		workDelay: workDelay,
		depth:     depth,
	}
}

func (b *Backend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return nil
	}
	b.packets = make(chan *metadata.RenderPacket, b.depth)
	b.running = true

	b.wg.Add(1)
	go b.consume(ctx, b.packets)

	core.LogDebug("software backend started, queue depth %d, work delay %s", b.depth, b.workDelay)
	return nil
}

// Shutdown stops accepting packets and waits for the queued ones to be consumed.
func (b *Backend) Shutdown() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	b.running = false
	close(b.packets)
	b.mu.Unlock()

	b.wg.Wait()
	core.LogDebug("software backend stopped after %d frames", b.frames.Load())
	return nil
}

func (b *Backend) SyncObjectProvider() metadata.SyncObjectProvider {
	return b.timeline
}

// Submit queues a packet, blocking while the queue is full.
func (b *Backend) Submit(packet *metadata.RenderPacket) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return ErrNotRunning
	}
	b.packets <- packet
	return nil
}

func (b *Backend) Frames() uint64 {
	return b.frames.Load()
}

func (b *Backend) DrawCalls() uint64 {
	return b.drawCalls.Load()
}

// Mismatches counts packets whose checksum differed from the one taken at submission.
func (b *Backend) Mismatches() uint64 {
	return b.mismatches.Load()
}

func (b *Backend) LastChecksum() uint64 {
	return b.lastChecksum.Load()
}

func (b *Backend) consume(ctx context.Context, packets <-chan *metadata.RenderPacket) {
	defer b.wg.Done()

	for packet := range packets {
		// Once cancelled, frames are released unread so the producer never stalls.
		if ctx.Err() == nil {
			b.render(packet)
		}
		b.frames.Add(1)
		b.timeline.Signal()
	}
}

func (b *Backend) render(packet *metadata.RenderPacket) {
	if b.workDelay > 0 {
		time.Sleep(b.workDelay)
	}

	sum := packet.Checksum()
	b.lastChecksum.Store(sum)
	b.drawCalls.Add(uint64(len(packet.DrawCalls)))

	if packet.ExpectedChecksum != 0 && sum != packet.ExpectedChecksum {
		b.mismatches.Add(1)
		core.LogError("frame %d (copy %d): checksum mismatch, expected %x got %x",
			packet.Frame, packet.FrameBuffer, packet.ExpectedChecksum, sum)
	}
}
