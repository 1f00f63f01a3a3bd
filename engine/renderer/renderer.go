package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/nou/engine/core"
	"github.com/spaghettifunk/nou/engine/renderer/vulkan"
)

// FrameBackend is what the frontend needs from a graphics backend to run one frame.
type FrameBackend interface {
	OnFrameStart() error
	OnFrameEnd() error
	CurrentCommandContext() *vulkan.CommandContext
	CurrentImageIndex() uint32
}

// SceneDrawer records the scene into the open frame.
type SceneDrawer func(frame *vulkan.CommandContext, elapsed float64) error

type Renderer struct {
	backend FrameBackend
	frames  uint64
}

func New(backend FrameBackend) *Renderer {
	return &Renderer{backend: backend}
}

// DrawFrame starts a frame, lets draw record into it and submits it. An error
// at any step abandons the frame.
func (r *Renderer) DrawFrame(elapsed float64, draw SceneDrawer) error {
	if err := r.backend.OnFrameStart(); err != nil {
		core.LogError("RendererBeginFrame failed: %s", err)
		return errors.Wrap(err, "begin frame")
	}

	frame := r.backend.CurrentCommandContext()
	if frame == nil {
		return errors.New("backend started a frame without a command context")
	}
	if draw != nil {
		if err := draw(frame, elapsed); err != nil {
			return errors.Wrapf(err, "draw frame %d", r.frames)
		}
	}

	if err := r.backend.OnFrameEnd(); err != nil {
		core.LogError("RendererEndFrame failed. Application shutting down...")
		return errors.Wrap(err, "end frame")
	}
	r.frames++
	return nil
}

// Frames is the number of frames submitted so far.
func (r *Renderer) Frames() uint64 {
	return r.frames
}
