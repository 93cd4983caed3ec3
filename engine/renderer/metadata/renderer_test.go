package metadata

import (
	"testing"

	gmath "github.com/spaghettifunk/geostore/engine/math"
	"github.com/stretchr/testify/assert"
)

func TestRenderPacketChecksum(t *testing.T) {
	vertices := []gmath.Vertex3D{
		{Position: gmath.NewVec3(9, 9, 9)},
		{Position: gmath.NewVec3(0, 0, 0)},
		{Position: gmath.NewVec3(1, 0, 0)},
		{Position: gmath.NewVec3(0, 1, 0)},
	}
	packet := RenderPacket{DrawCalls: []DrawCall{{
		Slot: NewSlot(3, 1),
		Parameters: RenderParameters{
			BufferStart: vertices,
			FirstVertex: 1,
			IndexBuffer: []uint32{0, 1, 2},
			IndexCount:  3,
			VertexCount: 3,
		},
	}}}

	sum := packet.Checksum()
	assert.Equal(t, sum, packet.Checksum())

	// Vertices outside the slot do not contribute.
	vertices[0].Position.X = 42
	assert.Equal(t, sum, packet.Checksum())

	vertices[2].Position.X = 2
	assert.NotEqual(t, sum, packet.Checksum())

	empty := RenderPacket{}
	assert.NotZero(t, empty.Checksum())
}

func TestRenderParametersGlobalIndices(t *testing.T) {
	rp := RenderParameters{
		FirstVertex: 10,
		IndexBuffer: []uint32{7, 0, 1, 2, 7},
		FirstIndex:  1,
		IndexCount:  3,
		VertexCount: 3,
	}
	assert.Equal(t, []uint32{0, 1, 2}, rp.Indices())
	assert.Equal(t, []uint32{10, 11, 12}, rp.GlobalIndices())
}

func TestSlotHandle(t *testing.T) {
	s := NewSlot(5, 7)
	assert.Equal(t, uint32(5), s.Index())
	assert.Equal(t, uint32(7), s.Generation())
}
