package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// Startup preconditions. Any of these ends the process.
	ErrNoSuitableDevice            = errors.New("no physical device meets the requirements")
	ErrSurfaceCreation             = errors.New("failed to create the presentation surface")
	ErrAllocationFailure           = errors.New("no memory type satisfies the requested properties")
	ErrShaderMissing               = errors.New("shader bytecode missing or empty")
	ErrUnsupportedLayoutTransition = errors.New("unsupported image layout transition")

	ErrNotHostVisible     = errors.New("buffer memory is not host visible")
	ErrSharedMaterial     = errors.New("material used by more than one batch in a frame")
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrDeviceLost         = errors.New("device lost")
	ErrUnknown            = errors.New("unknown")
)
