package metadata

import "math"

type RenderBufferType int

const (
	/** @brief Buffer is use is unknown. Default, but usually invalid. */
	RENDERBUFFER_TYPE_UNKNOWN RenderBufferType = iota
	/** @brief Buffer is used for vertex data. */
	RENDERBUFFER_TYPE_VERTEX
	/** @brief Buffer is used for index data. */
	RENDERBUFFER_TYPE_INDEX
)

func (t RenderBufferType) String() string {
	switch t {
	case RENDERBUFFER_TYPE_VERTEX:
		return "vertex"
	case RENDERBUFFER_TYPE_INDEX:
		return "index"
	default:
		return "unknown"
	}
}

/**
 * @brief One draw call: the slot and the parameters captured for the current frame.
 */
type DrawCall struct {
	Slot       Slot
	Type       GeometryType
	Parameters RenderParameters
}

/**
 * @brief A structure which is generated by the application and sent once
 * to the renderer to render a given frame.
 */
type RenderPacket struct {
	/** @brief Sequence number of the frame. */
	Frame     uint64
	DeltaTime float64
	/** @brief The frame copy the draw calls read from. */
	FrameBuffer int
	DrawCalls   []DrawCall
	/** @brief Checksum of the draw calls taken when the packet was built. Zero skips the check. */
	ExpectedChecksum uint64
}

const (
	checksumOffset uint64 = 14695981039346656037
	checksumPrime  uint64 = 1099511628211
)

/**
 * @brief FNV-1a over every vertex reached through the draw calls' indices.
 * Producer and consumer compute it independently; a mismatch means the
 * consumer read a frame copy that changed under it.
 */
func (p *RenderPacket) Checksum() uint64 {
	h := checksumOffset
	mix := func(v uint32) {
		h ^= uint64(v)
		h *= checksumPrime
	}
	for _, dc := range p.DrawCalls {
		mix(dc.Slot.Index())
		for _, idx := range dc.Parameters.Indices() {
			if idx >= dc.Parameters.VertexCount {
				// Dangling index: hash the index itself, reading it could leave the slot.
				mix(idx)
				continue
			}
			v := dc.Parameters.Vertex(idx)
			mix(math.Float32bits(v.Position.X))
			mix(math.Float32bits(v.Position.Y))
			mix(math.Float32bits(v.Position.Z))
			mix(math.Float32bits(v.Texcoord.X))
			mix(math.Float32bits(v.Texcoord.Y))
		}
	}
	return h
}
