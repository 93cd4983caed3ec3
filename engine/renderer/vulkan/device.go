package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/geostore/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	// QueueFamilyIndex is the family the submit queue was taken from.
	QueueFamilyIndex uint32
	Queue            vk.Queue

	Properties vk.PhysicalDeviceProperties
	Name       string
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	var queuePriority float32 = 1.0
	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: context.Device.QueueFamilyIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{queuePriority},
	}}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),
		PQueueCreateInfos:    queueCreateInfos,
		// Deprecated and ignored, so pass nothing.
		EnabledLayerCount:   0,
		PpEnabledLayerNames: nil,
	}

	if res := vk.CreateDevice(
		context.Device.PhysicalDevice,
		&deviceCreateInfo,
		context.Allocator,
		&context.Device.LogicalDevice); res != vk.Success {
		return errors.Newf("failed to create logical device: %s", VulkanResultString(res, true))
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(
		context.Device.LogicalDevice,
		context.Device.QueueFamilyIndex,
		0,
		&context.Device.Queue)
	core.LogInfo("Queue obtained.")
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	if context.Device == nil {
		return
	}
	context.Device.Queue = nil

	// Destroy logical device
	if context.Device.LogicalDevice != nil {
		core.LogDebug("Destroying logical device...")
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
}

// SelectPhysicalDevice picks the first device exposing a queue that accepts
// submissions: graphics, compute or transfer.
func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32 = 0
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return errors.Newf("failed to enumerate physical devices: %s", VulkanResultString(res, true))
	}
	if physicalDeviceCount == 0 {
		return errors.New("no devices which support Vulkan were found")
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return errors.Newf("failed to enumerate physical devices: %s", VulkanResultString(res, true))
	}

	for i := 0; i < int(physicalDeviceCount); i++ {
		familyIndex, ok := findSubmitQueueFamily(physicalDevices[i])
		if !ok {
			continue
		}

		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(physicalDevices[i], &properties)
		properties.Deref()

		end := FindFirstZeroInByteArray(properties.DeviceName[:])
		context.Device.PhysicalDevice = physicalDevices[i]
		context.Device.QueueFamilyIndex = familyIndex
		context.Device.Properties = properties
		context.Device.Name = vk.ToString(properties.DeviceName[:end+1])

		core.LogInfo("Selected device: '%s', queue family %d", context.Device.Name, familyIndex)
		return nil
	}
	return errors.New("no physical device has a queue that accepts submissions")
}

func findSubmitQueueFamily(device vk.PhysicalDevice) (uint32, bool) {
	var queueFamilyCount uint32 = 0
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	wanted := vk.QueueFlags(vk.QueueGraphicsBit) | vk.QueueFlags(vk.QueueComputeBit) | vk.QueueFlags(vk.QueueTransferBit)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueCount > 0 && queueFamilies[i].QueueFlags&wanted != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}
