package renderer

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/renderer/geometry"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
)

// Renderer owns the geometry store and feeds its current frame copy to a backend.
//
// A frame is BeginFrame, any number of store updates, Draw for every visible
// slot, then DrawFrame.
type Renderer struct {
	backend RendererBackend
	store   *geometry.Store
	frame   uint64

	// Checksums makes every packet carry the checksum the consumer must reproduce.
	Checksums bool
}

// New initializes the backend and creates a store wired to its sync objects.
func New(ctx context.Context, backend RendererBackend, config geometry.Config) (*Renderer, error) {
	if err := backend.Initialize(ctx); err != nil {
		core.LogError(err.Error())
		return nil, errors.Wrap(err, "initializing renderer backend")
	}
	return &Renderer{
		backend: backend,
		store:   geometry.NewStore(backend.SyncObjectProvider(), config),
	}, nil
}

func (r *Renderer) Store() *geometry.Store {
	return r.store
}

func (r *Renderer) Frame() uint64 {
	return r.frame
}

// BeginFrame waits for the next frame copy and returns a packet to fill.
func (r *Renderer) BeginFrame(deltaTime float64) *metadata.RenderPacket {
	r.store.OnFrameStart()
	r.frame++
	return &metadata.RenderPacket{
		Frame:       r.frame,
		DeltaTime:   deltaTime,
		FrameBuffer: r.store.CurrentFrameBuffer(),
	}
}

// Draw appends a draw call for the slot as it currently stands.
func (r *Renderer) Draw(packet *metadata.RenderPacket, slot metadata.Slot, geometryType metadata.GeometryType) error {
	params, err := r.store.GetRenderParameters(slot)
	if err != nil {
		return err
	}
	packet.DrawCalls = append(packet.DrawCalls, metadata.DrawCall{
		Slot:       slot,
		Type:       geometryType,
		Parameters: params,
	})
	return nil
}

// DrawFrame hands the packet to the backend and closes the frame. The frame
// is left open if the backend refuses the packet.
func (r *Renderer) DrawFrame(packet *metadata.RenderPacket) error {
	if r.Checksums {
		packet.ExpectedChecksum = packet.Checksum()
	}
	if err := r.backend.Submit(packet); err != nil {
		core.LogError("RendererDrawFrame failed: %s", err)
		return err
	}
	r.store.OnFrameFinished()
	return nil
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}
