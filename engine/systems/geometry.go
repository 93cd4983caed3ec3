package systems

import (
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/math"
	"github.com/spaghettifunk/geostore/engine/renderer/geometry"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
)

/**
 * @brief Generates configuration for plane geometries given the provided parameters.
 * Vertices on the edges shared by neighbouring segments are merged.
 *
 * @param width The overall width of the plane. Must be non-zero.
 * @param height The overall height of the plane. Must be non-zero.
 * @param xSegmentCount The number of segments along the x-axis in the plane. Must be non-zero.
 * @param ySegmentCount The number of segments along the y-axis in the plane. Must be non-zero.
 * @param tileX The number of times the texture should tile across the plane on the x-axis. Must be non-zero.
 * @param tileY The number of times the texture should tile across the plane on the y-axis. Must be non-zero.
 * @param name The name of the generated geometry.
 */
func GeometrySystemGeneratePlaneConfig(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32, name string) *metadata.GeometryConfig {
	width = nonZero("width", width)
	height = nonZero("height", height)
	tileX = nonZero("tileX", tileX)
	tileY = nonZero("tileY", tileY)
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if ySegmentCount < 1 {
		core.LogWarn("ySegmentCount must be a positive number. Defaulting to one.")
		ySegmentCount = 1
	}

	segments := xSegmentCount * ySegmentCount
	config := &metadata.GeometryConfig{
		Type:     metadata.GeometryTypeTriangles,
		Vertices: make([]math.Vertex3D, segments*4),
		Indices:  make([]uint32, segments*6),
		Name:     geometryName(name),
	}

	segWidth := width / float32(xSegmentCount)
	segHeight := height / float32(ySegmentCount)
	halfWidth := width * 0.5
	halfHeight := height * 0.5
	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := float32(x)*segWidth - halfWidth
			minY := float32(y)*segHeight - halfHeight
			maxX := minX + segWidth
			maxY := minY + segHeight
			minU := float32(x) / float32(xSegmentCount) * tileX
			minV := float32(y) / float32(ySegmentCount) * tileY
			maxU := float32(x+1) / float32(xSegmentCount) * tileX
			maxV := float32(y+1) / float32(ySegmentCount) * tileY

			vOffset := (y*xSegmentCount + x) * 4
			quad := config.Vertices[vOffset : vOffset+4]
			quad[0].Position, quad[0].Texcoord = math.NewVec3(minX, minY, 0), math.NewVec2(minU, minV)
			quad[1].Position, quad[1].Texcoord = math.NewVec3(maxX, maxY, 0), math.NewVec2(maxU, maxV)
			quad[2].Position, quad[2].Texcoord = math.NewVec3(minX, maxY, 0), math.NewVec2(minU, maxV)
			quad[3].Position, quad[3].Texcoord = math.NewVec3(maxX, minY, 0), math.NewVec2(maxU, minV)
			for i := range quad {
				quad[i].Normal = math.NewVec3(0, 0, 1)
			}

			iOffset := (y*xSegmentCount + x) * 6
			writeQuadIndices(config.Indices[iOffset:iOffset+6], vOffset)
		}
	}

	config.Extents = math.Extents3D{
		Min: math.NewVec3(-halfWidth, -halfHeight, 0),
		Max: math.NewVec3(halfWidth, halfHeight, 0),
	}
	config.Vertices = math.GeometryDeduplicateVertices(config.Vertices, config.Indices)
	return config
}

// cubeFace lists a face's normal and its four corners as signs of the half
// extents. Faces are front, back, left, right, bottom, top.
type cubeFace struct {
	normal  math.Vec3
	corners [4][3]float32
}

var cubeFaces = [6]cubeFace{
	{math.NewVec3(0, 0, 1), [4][3]float32{{-1, -1, 1}, {1, 1, 1}, {-1, 1, 1}, {1, -1, 1}}},
	{math.NewVec3(0, 0, -1), [4][3]float32{{1, -1, -1}, {-1, 1, -1}, {1, 1, -1}, {-1, -1, -1}}},
	{math.NewVec3(-1, 0, 0), [4][3]float32{{-1, -1, -1}, {-1, 1, 1}, {-1, 1, -1}, {-1, -1, 1}}},
	{math.NewVec3(1, 0, 0), [4][3]float32{{1, -1, 1}, {1, 1, -1}, {1, 1, 1}, {1, -1, -1}}},
	{math.NewVec3(0, -1, 0), [4][3]float32{{1, -1, 1}, {-1, -1, -1}, {1, -1, -1}, {-1, -1, 1}}},
	{math.NewVec3(0, 1, 0), [4][3]float32{{-1, 1, 1}, {1, 1, -1}, {-1, 1, -1}, {1, 1, 1}}},
}

func GeometrySystemGenerateCubeConfig(width, height, depth, tileX, tileY float32, name string) *metadata.GeometryConfig {
	width = nonZero("width", width)
	height = nonZero("height", height)
	depth = nonZero("depth", depth)
	tileX = nonZero("tileX", tileX)
	tileY = nonZero("tileY", tileY)

	half := math.NewVec3(width*0.5, height*0.5, depth*0.5)
	config := &metadata.GeometryConfig{
		Type:     metadata.GeometryTypeTriangles,
		Vertices: make([]math.Vertex3D, 4*len(cubeFaces)),
		Indices:  make([]uint32, 6*len(cubeFaces)),
		Extents:  math.Extents3D{Min: math.NewVec3(-half.X, -half.Y, -half.Z), Max: half},
		// Always the origin since min/max of each axis are -/+ half of the size.
		Center: math.NewVec3(0, 0, 0),
		Name:   geometryName(name),
	}

	uvs := [4]math.Vec2{
		math.NewVec2(0, 0),
		math.NewVec2(tileX, tileY),
		math.NewVec2(0, tileY),
		math.NewVec2(tileX, 0),
	}
	for f, face := range cubeFaces {
		vOffset := uint32(f * 4)
		for c, corner := range face.corners {
			v := &config.Vertices[int(vOffset)+c]
			v.Position = math.NewVec3(corner[0]*half.X, corner[1]*half.Y, corner[2]*half.Z)
			v.Normal = face.normal
			v.Texcoord = uvs[c]
		}
		writeQuadIndices(config.Indices[f*6:f*6+6], vOffset)
	}
	return config
}

// GenerateVertexArray wraps a point list as line strip or point geometry in
// the given colour. Triangles are not supported.
func GenerateVertexArray(points []math.Vec3, geometryType metadata.GeometryType, colour math.Vec4, name string) *metadata.GeometryConfig {
	config := &metadata.GeometryConfig{
		Type:     geometryType,
		Vertices: make([]math.Vertex3D, len(points)),
		Name:     geometryName(name),
	}
	for i, p := range points {
		config.Vertices[i] = math.Vertex3D{Position: p, Colour: colour}
	}

	switch geometryType {
	case metadata.GeometryTypeLines:
		// One segment between each pair of consecutive points.
		for i := 1; i < len(points); i++ {
			config.Indices = append(config.Indices, uint32(i-1), uint32(i))
		}
	case metadata.GeometryTypePoints:
		config.Indices = make([]uint32, len(points))
		for i := range config.Indices {
			config.Indices[i] = uint32(i)
		}
	default:
		core.LogWarn("vertex arrays render as lines or points, not %s", geometryType)
		return nil
	}

	if len(points) > 0 {
		extents := math.NewExtents3D(points[0])
		for _, p := range points[1:] {
			extents = extents.Include(p)
		}
		config.Extents = extents
		config.Center = extents.Center()
	}
	return config
}

// Renderable keeps one geometry config resident in a store slot. The slot is
// allocated on the first Update and reused afterwards; the store resizes it
// when the config changes size.
type Renderable struct {
	Type metadata.GeometryType
	slot metadata.Slot
}

func NewRenderable() *Renderable {
	return &Renderable{slot: metadata.InvalidSlot}
}

func (r *Renderable) Slot() metadata.Slot {
	return r.slot
}

func (r *Renderable) IsResident() bool {
	return r.slot != metadata.InvalidSlot
}

// Update uploads the config, allocating a slot first if needed.
func (r *Renderable) Update(store *geometry.Store, config *metadata.GeometryConfig) error {
	if !r.IsResident() {
		slot, err := store.AllocateSlot(len(config.Vertices), len(config.Indices))
		if err != nil {
			return err
		}
		r.slot = slot
	}
	r.Type = config.Type
	return store.UpdateData(r.slot, config.Vertices, config.Indices)
}

// Clear releases the slot.
func (r *Renderable) Clear(store *geometry.Store) error {
	if !r.IsResident() {
		return nil
	}
	err := store.DeallocateSlot(r.slot)
	r.slot = metadata.InvalidSlot
	return err
}

func writeQuadIndices(indices []uint32, vOffset uint32) {
	indices[0] = vOffset + 0
	indices[1] = vOffset + 1
	indices[2] = vOffset + 2
	indices[3] = vOffset + 0
	indices[4] = vOffset + 3
	indices[5] = vOffset + 1
}

func nonZero(name string, v float32) float32 {
	if v == 0 {
		core.LogWarn("%s must be nonzero. Defaulting to one.", name)
		return 1
	}
	return v
}

func geometryName(name string) string {
	if len(name) > 0 {
		return name
	}
	return metadata.DefaultGeometryName
}
