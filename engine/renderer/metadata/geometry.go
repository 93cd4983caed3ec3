package metadata

import (
	"math"

	gmath "github.com/spaghettifunk/geostore/engine/math"
)

/** @brief The name of the default geometry. */
const DefaultGeometryName string = "default"

/**
 * @brief Opaque handle naming one vertex+index allocation inside a geometry store.
 * The low 32 bits index the store's slot table, the high 32 bits carry the
 * generation of that table entry.
 */
type Slot uint64

/** @brief A handle that never names a live allocation. */
const InvalidSlot Slot = math.MaxUint64

func NewSlot(index, generation uint32) Slot {
	return Slot(uint64(generation)<<32 | uint64(index))
}

/** @brief The slot table index. */
func (s Slot) Index() uint32 {
	return uint32(s)
}

/** @brief The slot table generation. */
func (s Slot) Generation() uint32 {
	return uint32(s >> 32)
}

/** @brief The primitive topology an index list describes. */
type GeometryType int

const (
	GeometryTypeTriangles GeometryType = iota
	GeometryTypeLines
	GeometryTypePoints
)

func (g GeometryType) String() string {
	switch g {
	case GeometryTypeTriangles:
		return "Triangles"
	case GeometryTypeLines:
		return "Lines"
	case GeometryTypePoints:
		return "Points"
	default:
		return "Unknown"
	}
}

/**
 * @brief Represents the configuration for a geometry.
 */
type GeometryConfig struct {
	/** @brief The primitive type of the index list. */
	Type GeometryType
	/** @brief An array of Vertices. */
	Vertices []gmath.Vertex3D
	/** @brief An array of Indices, local to Vertices. */
	Indices []uint32

	Center  gmath.Vec3
	Extents gmath.Extents3D

	/** @brief The Name of the geometry. */
	Name string
}

/**
 * @brief A read-only view of one slot in the current frame's buffer copy,
 * everything a draw call needs. Valid until the next frame start or buffer growth.
 */
type RenderParameters struct {
	/** @brief The whole vertex buffer of the current frame copy. */
	BufferStart []gmath.Vertex3D
	/** @brief Offset of the slot's first vertex in BufferStart. Local indices are relative to it. */
	FirstVertex uint32
	/** @brief The whole index buffer of the current frame copy. */
	IndexBuffer []uint32
	/** @brief Offset of the slot's first index in IndexBuffer. */
	FirstIndex uint32
	/** @brief Number of live indices. */
	IndexCount uint32
	/** @brief Number of live vertices. */
	VertexCount uint32
}

/** @brief The slot's live indices, still local to FirstVertex. */
func (rp RenderParameters) Indices() []uint32 {
	return rp.IndexBuffer[rp.FirstIndex : rp.FirstIndex+rp.IndexCount]
}

/** @brief The slot's live vertices. */
func (rp RenderParameters) Vertices() []gmath.Vertex3D {
	return rp.BufferStart[rp.FirstVertex : rp.FirstVertex+rp.VertexCount]
}

/** @brief Resolves a local index to the vertex it addresses. */
func (rp RenderParameters) Vertex(localIndex uint32) gmath.Vertex3D {
	return rp.BufferStart[rp.FirstVertex+localIndex]
}

/**
 * @brief Returns a copy of the live indices translated to absolute vertex buffer
 * positions, for backends that cannot apply a base vertex.
 */
func (rp RenderParameters) GlobalIndices() []uint32 {
	local := rp.Indices()
	global := make([]uint32, len(local))
	for i, idx := range local {
		global[i] = idx + rp.FirstVertex
	}
	return global
}
