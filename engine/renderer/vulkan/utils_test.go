package vulkan

import (
	stdmath "math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/math"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
)

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_TIMEOUT", VulkanResultString(vk.Timeout, false))
	assert.Equal(t, "VK_ERROR_DEVICE_LOST The logical or physical device has been lost.", VulkanResultString(vk.ErrorDeviceLost, true))
	assert.Equal(t, "VK_ERROR_UNKNOWN", VulkanResultString(vk.ErrorOutOfDate, false))
}

func TestVulkanResultIsSuccess(t *testing.T) {
	assert.True(t, VulkanResultIsSuccess(vk.Success))
	assert.True(t, VulkanResultIsSuccess(vk.Timeout))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorDeviceLost))
}

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "geostore\x00", VulkanSafeString("geostore"))
	assert.Equal(t, "geostore\x00", VulkanSafeString("geostore\x00"))
}

func TestFindFirstZeroInByteArray(t *testing.T) {
	assert.Equal(t, 3, FindFirstZeroInByteArray([]byte{'g', 'p', 'u', 0, 0}))
	assert.Equal(t, 2, FindFirstZeroInByteArray([]byte{'g', 'p', 'u'}))
}

func TestCheckDrawCall(t *testing.T) {
	dc := metadata.DrawCall{
		Slot: metadata.NewSlot(1, 0),
		Parameters: metadata.RenderParameters{
			BufferStart: make([]math.Vertex3D, 8),
			FirstVertex: 4,
			IndexBuffer: []uint32{0, 1, 2, 3},
			IndexCount:  4,
			VertexCount: 4,
		},
	}
	assert.NoError(t, CheckDrawCall(dc))

	dc.Parameters.IndexBuffer[3] = 4
	assert.ErrorIs(t, CheckDrawCall(dc), core.ErrOutOfRange)

	dc.Parameters.IndexBuffer[3] = 0
	dc.Parameters.VertexCount = 5
	assert.ErrorIs(t, CheckDrawCall(dc), core.ErrOutOfRange)
}

func TestCheckDrawCallRejectsWrappingWindow(t *testing.T) {
	// FirstVertex+VertexCount wraps to 2 in 32 bits.
	dc := metadata.DrawCall{
		Slot: metadata.NewSlot(2, 0),
		Parameters: metadata.RenderParameters{
			BufferStart: make([]math.Vertex3D, 8),
			FirstVertex: stdmath.MaxUint32 - 1,
			IndexBuffer: []uint32{0, 1, 2},
			IndexCount:  3,
			VertexCount: 4,
		},
	}
	assert.ErrorIs(t, CheckDrawCall(dc), core.ErrOutOfRange)

	dc.Parameters.FirstVertex = 0
	dc.Parameters.FirstIndex = stdmath.MaxUint32 - 1
	assert.ErrorIs(t, CheckDrawCall(dc), core.ErrOutOfRange)
}
