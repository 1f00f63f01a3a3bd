package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

// Window is what the backend needs from the window system.
type Window interface {
	InstanceProcAddress() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (width, height uint32)
}

type BackendConfig struct {
	ApplicationName string
	Validation      bool
	FramesInFlight  uint32
	PresentMode     vk.PresentMode
	// Draw the frame time bar, with a bar spanning the window at FrameBudgetMs.
	Overlay       bool
	FrameBudgetMs float64
}

// Backend owns every device level object and drives the frame loop.
type Backend struct {
	config BackendConfig
	window Window

	instance     *Instance
	surface      vk.Surface
	device       *DeviceContext
	swapchain    *Swapchain
	scheduler    *FrameScheduler
	targets      *FrameTargets
	descriptors  *DescriptorAllocator
	compositor   *Compositor

	release ReleaseStack
	frame   *CommandContext
}

// NewBackend builds the instance, surface, device, swapchain, frame
// scheduler, render passes, framebuffers and descriptor allocator in that
// order. A failure unwinds whatever was already built.
func NewBackend(window Window, config BackendConfig) (*Backend, error) {
	b := &Backend{
		config: config,
		window: window,
	}
	if err := b.initialize(); err != nil {
		b.release.Unwind(nil)
		return nil, err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return b, nil
}

func (b *Backend) initialize() error {
	instance, err := NewInstance(b.window.InstanceProcAddress(), InstanceConfig{
		ApplicationName: b.config.ApplicationName,
		Extensions:      b.window.RequiredInstanceExtensions(),
		Validation:      b.config.Validation,
	})
	if err != nil {
		return err
	}
	b.instance = instance
	b.release.Push("instance", b.instance.Destroy)

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := b.window.CreateSurface(instance.Handle)
	if err != nil {
		return errors.Mark(errors.Wrap(err, "create window surface"), core.ErrSurfaceCreation)
	}
	b.surface = surface
	b.release.Push("surface", func() {
		vk.DestroySurface(b.instance.Handle, b.surface, nil)
		b.surface = vk.NullSurface
	})
	core.LogDebug("Vulkan surface created.")

	// Device creation
	device, err := NewDeviceContext(instance.Handle, surface, nil)
	if err != nil {
		return err
	}
	b.device = device
	b.release.Push("device", b.device.Destroy)

	// Swapchain
	width, height := b.window.FramebufferSize()
	swapchain, err := CreateSwapchain(device.Device, surface, device.Physical.SwapchainSupport, device.Physical.QueueFamilies, SwapchainConfig{
		DesiredFormat:      defaultSurfaceFormat,
		DesiredPresentMode: b.config.PresentMode,
		Width:              width,
		Height:             height,
	})
	if err != nil {
		return err
	}
	b.swapchain = swapchain
	b.release.Push("swapchain", b.swapchain.Destroy)

	// Sync objects and command buffers.
	scheduler, err := NewFrameScheduler(device.Device, swapchain, device.CommandPool, device.GraphicsQueue, device.PresentQueue, b.config.FramesInFlight)
	if err != nil {
		return err
	}
	b.scheduler = scheduler
	b.release.Push("frame scheduler", b.scheduler.Destroy)

	// Render passes and swapchain framebuffers.
	targets, err := NewFrameTargets(b, swapchain.Views, b.config.Overlay, b.config.FrameBudgetMs)
	if err != nil {
		return err
	}
	b.targets = targets
	b.release.Push("frame targets", b.targets.Destroy)

	descriptors, err := NewDescriptorAllocator(b, VULKAN_MAX_MATERIAL_COUNT)
	if err != nil {
		return err
	}
	b.descriptors = descriptors
	b.release.Push("descriptor allocator", b.descriptors.Destroy)

	b.compositor = NewCompositor(targets.RenderPass, targets.Framebuffers, nil)
	if targets.Overlay != nil {
		b.compositor.SetOverlay(targets.Overlay)
	}
	return nil
}

var _ Context = (*Backend)(nil)

func (b *Backend) Device() Device { return b.device.Device }
func (b *Backend) PhysicalDevice() *PhysicalDevice { return b.device.Physical }
func (b *Backend) CommandPool() vk.CommandPool { return b.device.CommandPool }
func (b *Backend) GraphicsQueue() vk.Queue { return b.device.GraphicsQueue }
func (b *Backend) SwapchainFormat() vk.Format { return b.swapchain.ImageFormat.Format }
func (b *Backend) SurfaceExtent() vk.Extent2D { return b.swapchain.Extent }
func (b *Backend) FramesInFlight() uint32 { return b.scheduler.SlotCount() }

func (b *Backend) RenderPass() *RenderPass { return b.targets.RenderPass }
func (b *Backend) Descriptors() *DescriptorAllocator { return b.descriptors }
func (b *Backend) Compositor() *Compositor { return b.compositor }
func (b *Backend) CurrentCommandContext() *CommandContext { return b.frame }

func (b *Backend) CurrentImageIndex() uint32 {
	return b.scheduler.ImageIndex()
}

// SetFrameTime feeds the overlay, if there is one.
func (b *Backend) SetFrameTime(ms float64) {
	if b.targets != nil && b.targets.Overlay != nil {
		b.targets.Overlay.SetFrameTime(ms)
	}
}

func (b *Backend) OnFrameStart() error {
	frame, err := b.scheduler.BeginFrame()
	if err != nil {
		b.frame = nil
		return err
	}
	b.frame = frame
	return nil
}

func (b *Backend) OnFrameEnd() error {
	if b.frame == nil {
		return errors.New("frame ended without being started")
	}
	b.frame = nil
	return b.scheduler.EndFrame()
}

// WaitIdle blocks until the device has finished all submitted work.
func (b *Backend) WaitIdle() error {
	return check(b.device.Device.WaitIdle(), "wait device idle")
}

// Shutdown waits for the GPU and destroys everything in reverse order of creation.
func (b *Backend) Shutdown() {
	if b.device != nil && b.device.Device != nil {
		if err := b.WaitIdle(); err != nil {
			core.LogWarn("Shutting down without an idle device: %s", err)
		}
	}
	b.release.Unwind(func(name string) {
		core.LogDebug("Destroying %s...", name)
	})
}
