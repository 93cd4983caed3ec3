package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/geostore/engine/core"
)

// VulkanFence wraps a device fence as a geometry store sync object.
type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool

	context *VulkanContext
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
		context:    context,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		return nil, errors.Newf("failed to create fence: %s", VulkanResultString(res, true))
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) FenceDestroy() {
	if vf.Handle != nil {
		vk.DestroyFence(vf.context.Device.LogicalDevice, vf.Handle, vf.context.Allocator)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

// FenceWait waits up to timeoutNs and reports whether the fence is signalled.
func (vf *VulkanFence) FenceWait(timeoutNs uint64) bool {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return true
	}

	result := vk.WaitForFences(vf.context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return true
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	default:
		core.LogError("vk_fence_wait - %s", VulkanResultString(result, false))
	}
	return false
}

func (vf *VulkanFence) FenceReset() error {
	if vf.IsSignaled {
		if res := vk.ResetFences(vf.context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
			return errors.Newf("failed to reset fence: %s", VulkanResultString(res, true))
		}
		vf.IsSignaled = false
	}
	return nil
}

// HasCompleted polls the fence status without blocking.
func (vf *VulkanFence) HasCompleted() bool {
	if vf.IsSignaled {
		return true
	}
	if vk.GetFenceStatus(vf.context.Device.LogicalDevice, vf.Handle) == vk.Success {
		vf.IsSignaled = true
	}
	return vf.IsSignaled
}

// WaitUntilCompleted blocks without a timeout. A lost device ends the wait
// with an error log instead of blocking forever.
func (vf *VulkanFence) WaitUntilCompleted() {
	for !vf.FenceWait(math.MaxUint64) {
		if vk.GetFenceStatus(vf.context.Device.LogicalDevice, vf.Handle) == vk.ErrorDeviceLost {
			core.LogError("vk_fence_wait - device lost, giving up on fence")
			vf.IsSignaled = true
			return
		}
	}
}
