package vulkan

import (
	vk "github.com/goki/vulkan"
)

type resultText struct {
	name     string
	extended string
}

// Only the results fence, queue and device creation calls can return.
var resultTexts = map[vk.Result]resultText{
	vk.Success:                   {"VK_SUCCESS", "Command successfully completed"},
	vk.NotReady:                  {"VK_NOT_READY", "A fence or query has not yet completed"},
	vk.Timeout:                   {"VK_TIMEOUT", "A wait operation has not completed in the specified time"},
	vk.ErrorOutOfHostMemory:      {"VK_ERROR_OUT_OF_HOST_MEMORY", "A host memory allocation has failed."},
	vk.ErrorOutOfDeviceMemory:    {"VK_ERROR_OUT_OF_DEVICE_MEMORY", "A device memory allocation has failed."},
	vk.ErrorInitializationFailed: {"VK_ERROR_INITIALIZATION_FAILED", "Initialization of an object could not be completed for implementation-specific reasons."},
	vk.ErrorDeviceLost:           {"VK_ERROR_DEVICE_LOST", "The logical or physical device has been lost."},
	vk.ErrorLayerNotPresent:      {"VK_ERROR_LAYER_NOT_PRESENT", "A requested layer is not present or could not be loaded."},
	vk.ErrorExtensionNotPresent:  {"VK_ERROR_EXTENSION_NOT_PRESENT", "A requested extension is not supported."},
	vk.ErrorFeatureNotPresent:    {"VK_ERROR_FEATURE_NOT_PRESENT", "A requested feature is not supported."},
	vk.ErrorIncompatibleDriver:   {"VK_ERROR_INCOMPATIBLE_DRIVER", "The requested version of Vulkan is not supported by the driver."},
	vk.ErrorTooManyObjects:       {"VK_ERROR_TOO_MANY_OBJECTS", "Too many objects of the type have already been created."},
	vk.ErrorUnknown:              {"VK_ERROR_UNKNOWN", "An unknown error has occurred."},
}

func VulkanResultString(result vk.Result, getExtended bool) string {
	text, ok := resultTexts[result]
	if !ok {
		text = resultTexts[vk.ErrorUnknown]
	}
	return ConditionalOperator(!getExtended, text.name, text.name+" "+text.extended)
}

func VulkanResultIsSuccess(result vk.Result) bool {
	switch result {
	case vk.Success, vk.NotReady, vk.Timeout, vk.EventSet, vk.EventReset, vk.Incomplete:
		return true
	default:
		return false
	}
}

func ConditionalOperator(condition bool, res1, res2 string) string {
	if condition {
		return res1
	}
	return res2
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func FindFirstZeroInByteArray(arr []byte) int {
	end := len(arr) - 1
	for i, b := range arr {
		if b == 0 {
			end = i
			break
		}
	}
	return end
}
