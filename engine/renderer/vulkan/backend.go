package vulkan

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
)

// VulkanRenderer is a headless backend. Packets are checked on the host; the
// device only supplies the fences the geometry store waits on.
type VulkanRenderer struct {
	appName        string
	framesInFlight int
	FrameNumber    uint64

	context  *VulkanContext
	provider *FenceProvider
}

func New(appName string, framesInFlight int) *VulkanRenderer {
	return &VulkanRenderer{
		appName:        appName,
		framesInFlight: framesInFlight,
	}
}

func (vr *VulkanRenderer) Initialize(ctx context.Context) error {
	vkContext, err := NewHeadlessContext(vr.appName)
	if err != nil {
		return errors.Wrap(err, "vulkan backend")
	}
	vr.context = vkContext
	vr.provider = NewFenceProvider(vkContext, vr.framesInFlight)

	core.LogInfo("Vulkan renderer initialized successfully on '%s'.", vkContext.Device.Name)
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	if vr.provider != nil {
		vr.provider.Destroy()
		vr.provider = nil
	}
	if vr.context != nil {
		vr.context.Destroy()
		vr.context = nil
	}
	core.LogInfo("Vulkan renderer shut down.")
	return nil
}

func (vr *VulkanRenderer) SyncObjectProvider() metadata.SyncObjectProvider {
	if vr.provider == nil {
		return nil
	}
	return vr.provider
}

// Submit checks that every draw call stays inside its slot.
func (vr *VulkanRenderer) Submit(packet *metadata.RenderPacket) error {
	if vr.context == nil {
		return errors.New("vulkan backend is not initialized")
	}
	vr.FrameNumber++
	for _, dc := range packet.DrawCalls {
		if err := CheckDrawCall(dc); err != nil {
			return errors.Wrapf(err, "frame %d", packet.Frame)
		}
	}
	return nil
}

// CheckDrawCall reports indices that address vertices outside the draw call's slot.
func CheckDrawCall(dc metadata.DrawCall) error {
	rp := dc.Parameters
	if int(rp.FirstVertex)+int(rp.VertexCount) > len(rp.BufferStart) || int(rp.FirstIndex)+int(rp.IndexCount) > len(rp.IndexBuffer) {
		return core.Precondition(core.ErrOutOfRange, "slot %d: parameters exceed the bound buffers", dc.Slot.Index())
	}
	for i, idx := range rp.Indices() {
		if idx >= rp.VertexCount {
			return core.Precondition(core.ErrOutOfRange, "slot %d: index %d at %d addresses past %d vertices",
				dc.Slot.Index(), idx, i, rp.VertexCount)
		}
	}
	return nil
}
