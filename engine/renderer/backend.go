package renderer

import (
	"context"
	"strings"
	"time"

	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
	"github.com/spaghettifunk/geostore/engine/renderer/software"
	"github.com/spaghettifunk/geostore/engine/renderer/vulkan"
)

// RendererBackend consumes render packets and tells the geometry store when
// it is done with a frame copy through the sync objects it provides.
type RendererBackend interface {
	Initialize(ctx context.Context) error
	Shutdown() error
	// SyncObjectProvider is queried once, after Initialize.
	SyncObjectProvider() metadata.SyncObjectProvider
	Submit(packet *metadata.RenderPacket) error
}

type RendererType uint8

const (
	Software RendererType = iota
	Vulkan
)

func (t RendererType) String() string {
	switch t {
	case Software:
		return "software"
	case Vulkan:
		return "vulkan"
	default:
		return "unknown"
	}
}

func ParseRendererType(name string) (RendererType, error) {
	switch strings.ToLower(name) {
	case "", "software":
		return Software, nil
	case "vulkan":
		return Vulkan, nil
	default:
		return Software, core.Precondition(core.ErrUnknown, "unknown renderer backend %q", name)
	}
}

// BackendConfig selects and sizes a backend.
type BackendConfig struct {
	Type           RendererType
	AppName        string
	FramesInFlight int
	// WorkDelay slows the software consumer down by this much per frame.
	WorkDelay time.Duration
}

func NewBackend(config BackendConfig) RendererBackend {
	switch config.Type {
	case Vulkan:
		return vulkan.New(config.AppName, config.FramesInFlight)
	default:
		return software.New(config.FramesInFlight, config.WorkDelay)
	}
}
