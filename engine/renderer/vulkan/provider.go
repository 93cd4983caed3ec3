package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/geostore/engine/containers"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
)

// FenceProvider issues one device fence per frame by submitting an empty batch
// to the queue; the fence signals once all previously submitted work is done.
//
// At most framesInFlight fences are outstanding. The geometry store has waited
// on and dropped a fence by the time framesInFlight newer ones were issued, so
// older fences are reset and reused.
type FenceProvider struct {
	context        *VulkanContext
	framesInFlight int
	issued         *containers.RingQueue[*VulkanFence]
}

func NewFenceProvider(context *VulkanContext, framesInFlight int) *FenceProvider {
	if framesInFlight <= 0 {
		framesInFlight = 1
	}
	return &FenceProvider{
		context:        context,
		framesInFlight: framesInFlight,
		issued:         containers.NewRingQueue[*VulkanFence](framesInFlight),
	}
}

// CreateSyncObject returns a fence signalled when the queue drains. A nil
// sync object is returned if the device refuses the submission, which the
// store treats as complete.
func (p *FenceProvider) CreateSyncObject() metadata.SyncObject {
	fence, err := p.nextFence()
	if err != nil {
		core.LogError("vulkan fence provider: %s", err)
		return nil
	}

	if res := vk.QueueSubmit(p.context.Device.Queue, 0, nil, fence.Handle); res != vk.Success {
		core.LogError("vulkan fence provider: empty submit failed: %s", VulkanResultString(res, true))
		fence.FenceDestroy()
		return nil
	}

	if err := p.issued.Enqueue(fence); err != nil {
		core.LogError("vulkan fence provider: %s", err)
	}
	return fence
}

// Destroy waits for every outstanding fence and destroys them.
func (p *FenceProvider) Destroy() {
	for !p.issued.IsEmpty() {
		fence, _ := p.issued.Dequeue()
		fence.WaitUntilCompleted()
		fence.FenceDestroy()
	}
}

func (p *FenceProvider) nextFence() (*VulkanFence, error) {
	if !p.issued.IsFull() {
		return NewFence(p.context, false)
	}

	oldest, _ := p.issued.Dequeue()
	oldest.WaitUntilCompleted()
	if err := oldest.FenceReset(); err != nil {
		oldest.FenceDestroy()
		return NewFence(p.context, false)
	}
	return oldest, nil
}
