package engine

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spaghettifunk/nou/engine/assets"
	"github.com/spaghettifunk/nou/engine/core"
	"github.com/spaghettifunk/nou/engine/platform"
	"github.com/spaghettifunk/nou/engine/renderer"
	"github.com/spaghettifunk/nou/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything has been released
	EngineStageStopped
)

var _ vulkan.Window = (*platform.Platform)(nil)

// Engine owns the window, the backend and the scene for the lifetime of the process.
type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool

	platform *platform.Platform
	backend  *vulkan.Backend
	renderer *renderer.Renderer
	watcher  *assets.ShaderWatcher
	registry *core.Registry

	clock    *core.Clock
	metrics  *core.FrameMetrics
	lastTime float64

	camera vulkan.Camera
	scene  []*sceneBatch
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game without an application config")
	}
	if g.FnScene == nil {
		return nil, errors.New("game does not describe a scene")
	}
	if err := g.ApplicationConfig.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		platform:     platform.New(),
		registry:     core.NewRegistry(),
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		camera:       vulkan.DefaultCamera(),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	config := e.gameInstance.ApplicationConfig

	if err := core.SetLogLevel(config.Log.Level); err != nil {
		return err
	}

	if err := e.platform.Startup(config.Window.Title,
		config.Window.PosX,
		config.Window.PosY,
		config.Window.Width,
		config.Window.Height); err != nil {
		return err
	}

	backend, err := vulkan.NewBackend(e.platform, config.backendConfig())
	if err != nil {
		return errors.Wrap(err, "initialize the Vulkan backend")
	}
	e.backend = backend
	e.renderer = renderer.New(backend)

	if config.Shaders.HotReload {
		watcher, err := assets.NewShaderWatcher(config.Shaders.Vertex, config.Shaders.Fragment)
		if err != nil {
			// Rendering works without it.
			core.LogWarn("Shader hot reload disabled: %s", err)
		} else {
			e.watcher = watcher
		}
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized.")
	return nil
}

// Run drives the frame loop until the window closes or ctx is cancelled. Any
// frame error stops the loop and is returned.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return errors.New("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		select {
		case <-ctx.Done():
			core.LogInfo("Shutdown requested, leaving the frame loop.")
			e.isRunning = false
			continue
		default:
		}

		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := platform.GetAbsoluteTime()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				e.isRunning = false
				return errors.Wrap(err, "game update failed")
			}
		}

		if e.scene == nil {
			if err := e.buildScene(); err != nil {
				e.isRunning = false
				return err
			}
		}
		e.reloadShaders()

		if err := e.renderer.DrawFrame(delta, e.drawScene); err != nil {
			e.isRunning = false
			return err
		}

		frameElapsedTime := platform.GetAbsoluteTime() - frameStartTime
		e.metrics.Update(frameElapsedTime)
		e.backend.SetFrameTime(e.metrics.FrameTime())

		if e.renderer.Frames()%600 == 0 {
			fps, frameTime := e.metrics.Frame()
			core.LogDebug("FPS: %5.1f (%4.1fms)", fps, frameTime)
		}

		// Update last time
		e.lastTime = currentTime
	}

	return nil
}

// Shutdown releases everything in reverse order of creation. It is safe to
// call after a failed Initialize.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageStopped {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	if e.backend != nil {
		if err := e.backend.WaitIdle(); err != nil {
			core.LogWarn("Device did not go idle: %s", err)
		}
	}
	e.destroyScene(e.scene)
	e.scene = nil

	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			core.LogWarn("Closing the shader watcher: %s", err)
		}
		e.watcher = nil
	}

	if e.backend != nil {
		e.backend.Shutdown()
		e.backend = nil
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}

	if leaked := e.registry.Live(); len(leaked) > 0 {
		core.LogWarn("%d resources were never released: %v", len(leaked), leaked)
	}
	e.currentStage = EngineStageStopped
	core.LogInfo("Engine stopped.")
	return nil
}

func (e *Engine) release(id uuid.UUID) {
	if err := e.registry.Release(id); err != nil {
		core.LogWarn("%s", err)
	}
}

// GetFramebufferSize returns the width and height (in this order)
// of the application framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.platform.FramebufferSize()
}
