package systems

import (
	"testing"

	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/math"
	"github.com/spaghettifunk/geostore/engine/renderer/fence"
	"github.com/spaghettifunk/geostore/engine/renderer/geometry"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePlaneConfig(t *testing.T) {
	config := GeometrySystemGeneratePlaneConfig(4, 2, 2, 3, 1, 1, "floor")

	assert.Equal(t, "floor", config.Name)
	// Quads share the vertices on their common edges.
	assert.Len(t, config.Vertices, (2+1)*(3+1))
	assert.Len(t, config.Indices, 2*3*6)
	for _, idx := range config.Indices {
		assert.Less(t, int(idx), len(config.Vertices))
	}
	for _, v := range config.Vertices {
		assert.GreaterOrEqual(t, v.Position.X, float32(-2.0001))
		assert.LessOrEqual(t, v.Position.X, float32(2.0001))
		assert.GreaterOrEqual(t, v.Position.Y, float32(-1.0001))
		assert.LessOrEqual(t, v.Position.Y, float32(1.0001))
	}
	assert.Equal(t, math.NewVec3(2, 1, 0), config.Extents.Max)
}

func TestGeneratePlaneConfigDefaults(t *testing.T) {
	config := GeometrySystemGeneratePlaneConfig(0, 0, 0, 0, 0, 0, "")
	assert.Equal(t, metadata.DefaultGeometryName, config.Name)
	assert.Len(t, config.Vertices, 4)
	assert.Len(t, config.Indices, 6)
}

func TestGenerateCubeConfig(t *testing.T) {
	config := GeometrySystemGenerateCubeConfig(2, 4, 6, 1, 1, "box")

	assert.Len(t, config.Vertices, 24)
	assert.Len(t, config.Indices, 36)
	assert.Equal(t, math.NewVec3(-1, -2, -3), config.Extents.Min)
	assert.Equal(t, math.NewVec3(1, 2, 3), config.Extents.Max)

	// Every face lies on the plane its normal points at.
	for f := 0; f < 6; f++ {
		face := config.Vertices[f*4 : f*4+4]
		n := face[0].Normal
		for _, v := range face {
			assert.Equal(t, n, v.Normal)
			d := v.Position.X*n.X + v.Position.Y*n.Y + v.Position.Z*n.Z
			expected := config.Extents.Max.X*kabs(n.X) + config.Extents.Max.Y*kabs(n.Y) + config.Extents.Max.Z*kabs(n.Z)
			assert.Equal(t, expected, d)
		}
	}
}

func kabs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func TestGenerateVertexArray(t *testing.T) {
	points := []math.Vec3{
		math.NewVec3(0, 0, 0),
		math.NewVec3(1, 2, 0),
		math.NewVec3(-1, 1, 3),
		math.NewVec3(2, -1, 1),
	}
	colour := math.NewVec4(1, 0, 0, 1)

	lines := GenerateVertexArray(points, metadata.GeometryTypeLines, colour, "path")
	require.NotNil(t, lines)
	assert.Equal(t, []uint32{0, 1, 1, 2, 2, 3}, lines.Indices)
	assert.Equal(t, colour, lines.Vertices[2].Colour)
	assert.Equal(t, math.NewVec3(-1, -1, 0), lines.Extents.Min)
	assert.Equal(t, math.NewVec3(2, 2, 3), lines.Extents.Max)
	assert.Equal(t, math.NewVec3(0.5, 0.5, 1.5), lines.Center)

	pts := GenerateVertexArray(points, metadata.GeometryTypePoints, colour, "")
	require.NotNil(t, pts)
	assert.Equal(t, []uint32{0, 1, 2, 3}, pts.Indices)

	single := GenerateVertexArray(points[:1], metadata.GeometryTypeLines, colour, "")
	require.NotNil(t, single)
	assert.Empty(t, single.Indices)

	assert.Nil(t, GenerateVertexArray(points, metadata.GeometryTypeTriangles, colour, ""))
}

func TestRenderableLifecycle(t *testing.T) {
	store := geometry.NewStore(&fence.NullProvider{}, geometry.Config{InitialVertexCapacity: 16, InitialIndexCapacity: 16})
	store.OnFrameStart()

	r := NewRenderable()
	assert.False(t, r.IsResident())

	cube := GeometrySystemGenerateCubeConfig(1, 1, 1, 1, 1, "")
	require.NoError(t, r.Update(store, cube))
	require.True(t, r.IsResident())

	rp, err := store.GetRenderParameters(r.Slot())
	require.NoError(t, err)
	assert.Equal(t, cube.Indices, rp.Indices())
	assert.Equal(t, cube.Vertices, rp.Vertices())

	slot := r.Slot()
	line := GenerateVertexArray([]math.Vec3{math.NewVec3(0, 0, 0), math.NewVec3(1, 1, 1)}, metadata.GeometryTypeLines, math.NewVec4(1, 1, 1, 1), "")
	require.NoError(t, r.Update(store, line))
	assert.Equal(t, slot, r.Slot())
	assert.Equal(t, metadata.GeometryTypeLines, r.Type)

	rp, err = store.GetRenderParameters(r.Slot())
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, rp.Indices())

	require.NoError(t, r.Clear(store))
	assert.False(t, r.IsResident())
	require.NoError(t, r.Clear(store))

	_, err = store.GetRenderParameters(slot)
	assert.ErrorIs(t, err, core.ErrInvalidSlot)
	store.OnFrameFinished()
}
