package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/geostore/engine/config"
	"github.com/spaghettifunk/geostore/engine/core"
	"github.com/spaghettifunk/geostore/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	switch s {
	case EngineStageUninitialized:
		return "uninitialized"
	case EngineStageBooting:
		return "booting"
	case EngineStageBootComplete:
		return "boot complete"
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	default:
		return "unknown"
	}
}

// Engine drives the frame loop: start a frame on the store, let the game
// update and draw, submit the packet, repeat.
type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool

	ctx     context.Context
	cancel  context.CancelFunc
	backend renderer.RendererBackend
	render  *renderer.Renderer
	watcher *config.Watcher

	clock    *core.Clock
	metrics  *core.FrameMetrics
	lastTime time.Duration
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		return nil, errors.New("game has no application configuration")
	}
	if g.FnUpdate == nil || g.FnRender == nil {
		return nil, errors.New("game must provide update and render functions")
	}
	e := &Engine{
		currentStage: EngineStageBooting,
		gameInstance: g,
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
	}

	// Configs built by hand skip the loader's defaulting.
	g.ApplicationConfig.Config = g.ApplicationConfig.Config.WithDefaults()
	appConfig := &g.ApplicationConfig.Config.Application
	core.SetLogLevel(appConfig.LogLevel)

	if g.FnBoot != nil {
		if err := g.FnBoot(); err != nil {
			core.LogError("game boot failed: %s", err)
			return nil, err
		}
	}
	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Initialize(ctx context.Context) error {
	e.currentStage = EngineStageInitializing
	e.ctx, e.cancel = context.WithCancel(ctx)

	c := e.gameInstance.ApplicationConfig.Config
	rendererType, err := renderer.ParseRendererType(c.Application.Renderer)
	if err != nil {
		return err
	}
	e.backend = renderer.NewBackend(renderer.BackendConfig{
		Type:           rendererType,
		AppName:        c.Application.Name,
		FramesInFlight: c.Store.FrameBufferCount,
		WorkDelay:      c.WorkDelay(),
	})

	r, err := renderer.New(e.ctx, e.backend, c.Store)
	if err != nil {
		return err
	}
	r.Checksums = c.Application.Checksums
	e.render = r
	e.gameInstance.Renderer = r

	if path := e.gameInstance.ApplicationConfig.ConfigPath; path != "" {
		w, err := config.NewWatcher(path)
		if err != nil {
			// Running without reloads is fine.
			core.LogWarn("not watching %s: %s", path, err)
		} else {
			e.watcher = w
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	core.LogInfo("engine initialized with the %s renderer, %d frame buffers", rendererType, c.Store.FrameBufferCount)
	e.currentStage = EngineStageInitialized
	return nil
}

// Run loops until Stop is called, the context ends or the configured frame
// count is reached.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return errors.Newf("engine cannot run from stage %s", e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)

	soak := e.gameInstance.ApplicationConfig.Config.Soak
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() && e.ctx.Err() == nil {
		if soak.Frames > 0 && e.render.Frame() >= uint64(soak.Frames) {
			break
		}
		e.applyConfigUpdates()

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := (currentTime - e.lastTime).Seconds()

		packet := e.render.BeginFrame(delta)

		if err := e.gameInstance.FnUpdate(delta); err != nil {
			core.LogError("Game update failed, shutting down: %s", err)
			e.isRunning.Store(false)
			return err
		}

		// Call the game's render routine.
		if err := e.gameInstance.FnRender(packet, delta); err != nil {
			core.LogError("Game render failed, shutting down: %s", err)
			e.isRunning.Store(false)
			return err
		}

		if err := e.render.DrawFrame(packet); err != nil {
			e.isRunning.Store(false)
			return err
		}

		e.clock.Update()
		e.metrics.Update(e.clock.Elapsed()-currentTime, e.render.Store().LastFenceWait())
		if soak.StatsEvery > 0 && packet.Frame%uint64(soak.StatsEvery) == 0 {
			core.LogInfo("frame %d: %.2fms avg, %.2fms fence wait, %.0f fps | %s",
				packet.Frame, e.metrics.FrameTime(), e.metrics.FenceWaitTime(), e.metrics.FPSValue(), e.render.Store().Stats())
		}

		// Update last time
		e.lastTime = currentTime
	}
	e.isRunning.Store(false)
	return nil
}

// Stop makes Run return after the current frame. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var err error
	if e.gameInstance.FnShutdown != nil {
		err = e.gameInstance.FnShutdown()
	}
	if e.render != nil {
		core.LogInfo("final store statistics: %s", e.render.Store().Stats())
		err = errors.CombineErrors(err, e.render.Shutdown())
	}
	if e.watcher != nil {
		err = errors.CombineErrors(err, e.watcher.Close())
	}
	if e.cancel != nil {
		e.cancel()
	}
	return err
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Backend() renderer.RendererBackend {
	return e.backend
}

func (e *Engine) Metrics() *core.FrameMetrics {
	return e.metrics
}

// applyConfigUpdates takes the fields of a reloaded configuration that are
// safe to change between frames.
func (e *Engine) applyConfigUpdates() {
	if e.watcher == nil {
		return
	}
	select {
	case c := <-e.watcher.Updates():
		current := &e.gameInstance.ApplicationConfig.Config
		current.Application.LogLevel = c.Application.LogLevel
		current.Store.Validate = c.Store.Validate
		core.SetLogLevel(c.Application.LogLevel)
		e.render.Store().SetValidation(c.Store.Validate)
	default:
	}
}
