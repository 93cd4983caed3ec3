package geometry

import (
	"math"
	"time"
)

const (
	// DefaultFrameBufferCount is the default buffering depth (double buffering).
	DefaultFrameBufferCount = 2

	// DefaultInitialVertexCapacity is the vertex capacity of a fresh store.
	DefaultInitialVertexCapacity = 1 << 14

	// DefaultInitialIndexCapacity is the index capacity of a fresh store.
	DefaultInitialIndexCapacity = 1 << 16

	// DefaultFenceStallWarningMS is the fence wait after which a warning is logged.
	DefaultFenceStallWarningMS = 100

	// MaxElements is the largest element count a buffer may address with 32 bit indices.
	MaxElements = math.MaxUint32
)

// Config holds the tunables of a Store. Zero values select the defaults.
type Config struct {
	// FrameBufferCount is the number of mirrored buffer copies rotated per frame.
	FrameBufferCount int `toml:"frame_buffer_count"`

	// InitialVertexCapacity and InitialIndexCapacity size the backing buffers up front.
	InitialVertexCapacity int `toml:"initial_vertex_capacity"`
	InitialIndexCapacity  int `toml:"initial_index_capacity"`

	// MaxVertices and MaxIndices cap buffer growth. Defaults to MaxElements.
	MaxVertices int `toml:"max_vertices"`
	MaxIndices  int `toml:"max_indices"`

	// FenceStallWarningMS is the fence wait in milliseconds after which a warning is logged.
	FenceStallWarningMS int `toml:"fence_stall_warning_ms"`

	// Validate enables the consistency checks run at every frame start and on index uploads.
	Validate bool `toml:"validate"`
}

// WithDefaults returns a copy of the config with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.FrameBufferCount <= 0 {
		c.FrameBufferCount = DefaultFrameBufferCount
	}
	if c.InitialVertexCapacity < 0 {
		c.InitialVertexCapacity = 0
	} else if c.InitialVertexCapacity == 0 {
		c.InitialVertexCapacity = DefaultInitialVertexCapacity
	}
	if c.InitialIndexCapacity < 0 {
		c.InitialIndexCapacity = 0
	} else if c.InitialIndexCapacity == 0 {
		c.InitialIndexCapacity = DefaultInitialIndexCapacity
	}
	if c.MaxVertices <= 0 || c.MaxVertices > MaxElements {
		c.MaxVertices = MaxElements
	}
	if c.MaxIndices <= 0 || c.MaxIndices > MaxElements {
		c.MaxIndices = MaxElements
	}
	if c.InitialVertexCapacity > c.MaxVertices {
		c.InitialVertexCapacity = c.MaxVertices
	}
	if c.InitialIndexCapacity > c.MaxIndices {
		c.InitialIndexCapacity = c.MaxIndices
	}
	if c.FenceStallWarningMS <= 0 {
		c.FenceStallWarningMS = DefaultFenceStallWarningMS
	}
	return c
}

func (c Config) fenceStallWarning() time.Duration {
	return time.Duration(c.FenceStallWarningMS) * time.Millisecond
}
