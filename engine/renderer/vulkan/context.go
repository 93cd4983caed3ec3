package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/geostore/engine/core"
)

// VulkanContext owns a headless instance and device. Nothing is presented:
// the device is only used to submit empty batches whose completion signals
// the fences handed to the geometry store.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	Device *VulkanDevice
}

// NewHeadlessContext loads the Vulkan loader, creates an instance and picks
// the first device with a usable queue.
func NewHeadlessContext(appName string) (*VulkanContext, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, errors.Wrap(err, "loading the Vulkan loader")
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing vk")
	}

	// TODO: custom allocator.
	context := &VulkanContext{
		Allocator: nil,
		Device:    &VulkanDevice{},
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("geostore"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	if res := vk.CreateInstance(&createInfo, context.Allocator, &context.Instance); res != vk.Success {
		return nil, errors.Newf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
	}
	if err := vk.InitInstance(context.Instance); err != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		return nil, errors.Wrap(err, "initializing the Vulkan instance")
	}
	core.LogInfo("Vulkan Instance created.")

	if err := DeviceCreate(context); err != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		return nil, err
	}
	return context, nil
}

// Destroy waits for the device to go idle and releases the device and instance.
func (vc *VulkanContext) Destroy() {
	if vc.Device != nil && vc.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vc.Device.LogicalDevice)
	}
	DeviceDestroy(vc)

	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}
