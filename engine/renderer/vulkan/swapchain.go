package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
	nmath "github.com/spaghettifunk/nou/engine/math"
)

// Surfaces that let the application pick the extent report this width.
const undefinedExtent uint32 = 0xFFFFFFFF

var defaultSurfaceFormat = vk.SurfaceFormat{
	Format:     vk.FormatB8g8r8a8Srgb,
	ColorSpace: vk.ColorSpaceSrgbNonlinear,
}

type SwapchainConfig struct {
	DesiredFormat      vk.SurfaceFormat
	DesiredPresentMode vk.PresentMode
	// Window size in pixels, used when the surface does not dictate an extent.
	Width, Height uint32
}

// Swapchain owns the presentable images and their views. It is created and
// destroyed as a unit.
type Swapchain struct {
	Handle      vk.Swapchain
	Images      []vk.Image
	Views       []vk.ImageView
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D

	device  Device
	surface vk.Surface
	queues  VulkanPhysicalDeviceQueueFamilyInfo
	config  SwapchainConfig
}

// ChooseImageCount asks for one image more than the minimum so the driver
// never blocks us, without exceeding the maximum. A maximum of 0 means unbounded.
func ChooseImageCount(capabilities vk.SurfaceCapabilities) uint32 {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

// ChooseSurfaceFormat returns desired when the surface supports it, the first reported format otherwise.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat, desired vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == desired.Format && format.ColorSpace == desired.ColorSpace {
			return format
		}
	}
	if len(formats) == 0 {
		return desired
	}
	return formats[0]
}

// ChoosePresentMode returns desired when available. FIFO is always supported.
func ChoosePresentMode(modes []vk.PresentMode, desired vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == desired {
			return mode
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent uses the surface extent unless the surface leaves the choice to
// us, in which case the window size is clamped into the supported range.
func ChooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != undefinedExtent {
		return capabilities.CurrentExtent
	}
	min := capabilities.MinImageExtent
	max := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  nmath.Clamp(width, min.Width, max.Width),
		Height: nmath.Clamp(height, min.Height, max.Height),
	}
}

func CreateSwapchain(device Device, surface vk.Surface, support VulkanSwapchainSupportInfo, queues VulkanPhysicalDeviceQueueFamilyInfo, config SwapchainConfig) (*Swapchain, error) {
	swapchain := &Swapchain{
		device:  device,
		surface: surface,
		queues:  queues,
		config:  config,
	}
	if err := swapchain.create(support); err != nil {
		swapchain.Destroy()
		return nil, err
	}
	return swapchain, nil
}

// Recreate tears down the chain and its views and builds them again from
// fresh surface support information.
func (s *Swapchain) Recreate(support VulkanSwapchainSupportInfo, width, height uint32) error {
	if err := check(s.device.WaitIdle(), "wait device idle before swapchain recreation"); err != nil {
		return err
	}
	s.Destroy()
	s.config.Width = width
	s.config.Height = height
	if err := s.create(support); err != nil {
		s.Destroy()
		return err
	}
	return nil
}

func (s *Swapchain) ImageCount() uint32 {
	return uint32(len(s.Images))
}

func (s *Swapchain) create(support VulkanSwapchainSupportInfo) error {
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return errors.New("surface reports no formats or present modes")
	}

	s.ImageFormat = ChooseSurfaceFormat(support.Formats, s.config.DesiredFormat)
	s.PresentMode = ChoosePresentMode(support.PresentModes, s.config.DesiredPresentMode)
	s.Extent = ChooseExtent(support.Capabilities, s.config.Width, s.config.Height)
	imageCount := ChooseImageCount(support.Capabilities)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.surface,
		MinImageCount:    imageCount,
		ImageFormat:      s.ImageFormat.Format,
		ImageColorSpace:  s.ImageFormat.ColorSpace,
		ImageExtent:      s.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      s.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	// Setup the queue family indices
	if s.queues.Distinct() {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			s.queues.GraphicsFamilyIndex,
			s.queues.PresentFamilyIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	handle, res := s.device.CreateSwapchain(&swapchainCreateInfo)
	if err := check(res, "create swapchain"); err != nil {
		return err
	}
	s.Handle = handle

	images, res := s.device.GetSwapchainImages(s.Handle)
	if err := check(res, "get swapchain images"); err != nil {
		return err
	}
	s.Images = images

	// Views
	s.Views = make([]vk.ImageView, 0, len(images))
	for _, image := range images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.ImageFormat.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		view, res := s.device.CreateImageView(&viewInfo)
		if err := check(res, "create swapchain image view"); err != nil {
			return err
		}
		s.Views = append(s.Views, view)
	}

	core.LogInfo("Swapchain created successfully: %d images, %dx%d.", len(s.Images), s.Extent.Width, s.Extent.Height)
	return nil
}

// Destroy releases the views and the chain. The images belong to the chain.
func (s *Swapchain) Destroy() {
	for _, view := range s.Views {
		s.device.DestroyImageView(view)
	}
	s.Views = nil
	s.Images = nil
	if s.Handle != vk.NullSwapchain {
		s.device.DestroySwapchain(s.Handle)
		s.Handle = vk.NullSwapchain
	}
}

// AcquireNextImage returns the index of the next presentable image and
// signals imageAvailable once the image can be written.
func (s *Swapchain) AcquireNextImage(timeoutNs uint64, imageAvailable vk.Semaphore) (uint32, error) {
	index, result := s.device.AcquireNextImage(s.Handle, timeoutNs, imageAvailable)
	switch result {
	case vk.Success:
		return index, nil
	case vk.Suboptimal:
		core.LogDebug("Swapchain is suboptimal, continuing.")
		return index, nil
	case vk.ErrorOutOfDate:
		return 0, errors.Wrap(core.ErrSwapchainOutOfDate, "acquire next image")
	}
	return 0, check(result, "acquire next image")
}

// Present returns the image to the swapchain once renderFinished signals.
func (s *Swapchain) Present(presentQueue vk.Queue, renderFinished vk.Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	result := s.device.QueuePresent(presentQueue, &presentInfo)
	switch result {
	case vk.Success:
		return nil
	case vk.Suboptimal:
		core.LogDebug("Swapchain is suboptimal, continuing.")
		return nil
	case vk.ErrorOutOfDate:
		return errors.Wrap(core.ErrSwapchainOutOfDate, "present")
	}
	return check(result, "present swapchain image")
}
