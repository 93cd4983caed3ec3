package engine

import (
	"github.com/spaghettifunk/geostore/engine/renderer"
	"github.com/spaghettifunk/geostore/engine/renderer/metadata"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Renderer is set by the engine during Initialize.
	Renderer     *renderer.Renderer
	State        interface{}
	FnBoot       Boot
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnShutdown   Shutdown
}

type Boot func() error
type Initialize func() error

// Update runs after the frame has started; store writes belong here.
type Update func(deltaTime float64) error

// Render adds the frame's draw calls to the packet.
type Render func(packet *metadata.RenderPacket, deltaTime float64) error
type Shutdown func() error
