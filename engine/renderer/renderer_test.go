package renderer

import (
	"context"
	"testing"
	"time"

	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/math"
	"github.com/spaghettifunk/geostore/engine/renderer/geometry"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
	"github.com/spaghettifunk/geostore/engine/renderer/software"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func quad(seed float32, size int) ([]math.Vertex3D, []uint32) {
	vertices := make([]math.Vertex3D, size)
	for i := range vertices {
		f := seed + float32(i)
		vertices[i].Position = math.NewVec3(f, -f, f*0.5)
		vertices[i].Texcoord = math.NewVec2(f, 1-f)
	}
	indices := make([]uint32, 0, 3*size)
	for i := 0; i < size; i++ {
		indices = append(indices, uint32(i), uint32((i+1)%size), uint32((i+2)%size))
	}
	return vertices, indices
}

func TestRendererOverlapsConsumer(t *testing.T) {
	backend := software.New(2, 200*time.Microsecond)
	r, err := New(context.Background(), backend, geometry.Config{
		InitialVertexCapacity: 64,
		InitialIndexCapacity:  64,
		Validate:              true,
	})
	require.NoError(t, err)
	r.Checksums = true

	rnd := rand.New(rand.NewSource(5))
	var slots []metadata.Slot
	for frame := 0; frame < 60; frame++ {
		packet := r.BeginFrame(1.0 / 60)
		assert.Equal(t, uint64(frame+1), packet.Frame)
		assert.Equal(t, r.Store().CurrentFrameBuffer(), packet.FrameBuffer)

		if len(slots) < 8 {
			size := 3 + rnd.Intn(40)
			slot, err := r.Store().AllocateSlot(size, 3*size)
			require.NoError(t, err)
			slots = append(slots, slot)
		}
		for _, slot := range slots {
			size := 3 + rnd.Intn(60)
			vertices, indices := quad(float32(frame), size)
			require.NoError(t, r.Store().UpdateData(slot, vertices, indices))
			require.NoError(t, r.Draw(packet, slot, metadata.GeometryTypeTriangles))
		}
		if rnd.Intn(4) == 0 {
			victim := rnd.Intn(len(slots))
			require.NoError(t, r.Store().DeallocateSlot(slots[victim]))
			slots = append(slots[:victim], slots[victim+1:]...)
		}
		require.NoError(t, r.DrawFrame(packet))
	}
	require.NoError(t, r.Shutdown())

	assert.Equal(t, uint64(60), backend.Frames())
	assert.Zero(t, backend.Mismatches())
	assert.Equal(t, uint64(60), r.Frame())
}

func TestRendererDrawRejectsStaleSlot(t *testing.T) {
	backend := software.New(1, 0)
	r, err := New(context.Background(), backend, geometry.Config{})
	require.NoError(t, err)
	defer r.Shutdown()

	packet := r.BeginFrame(0)
	slot, err := r.Store().AllocateSlot(3, 3)
	require.NoError(t, err)
	require.NoError(t, r.Store().DeallocateSlot(slot))

	assert.ErrorIs(t, r.Draw(packet, slot, metadata.GeometryTypePoints), core.ErrInvalidSlot)
	assert.Empty(t, packet.DrawCalls)
	require.NoError(t, r.DrawFrame(packet))
}

func TestParseRendererType(t *testing.T) {
	typ, err := ParseRendererType("Vulkan")
	require.NoError(t, err)
	assert.Equal(t, Vulkan, typ)

	typ, err = ParseRendererType("")
	require.NoError(t, err)
	assert.Equal(t, Software, typ)

	_, err = ParseRendererType("metal")
	assert.ErrorIs(t, err, core.ErrUnknown)
}
