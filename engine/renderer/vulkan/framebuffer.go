package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

// FramebufferSet holds one framebuffer per swapchain image view. Every
// framebuffer shares a single depth image.
type FramebufferSet struct {
	Framebuffers []vk.Framebuffer
	Depth        *GPUImage
	Extent       vk.Extent2D

	device Device
}

// NewFramebufferSet creates a framebuffer for each view against renderPass.
// With withDepth a depth image of the device depth format is created and
// attached as the second attachment.
func NewFramebufferSet(ctx Context, renderPass *RenderPass, views []vk.ImageView, extent vk.Extent2D, withDepth bool) (*FramebufferSet, error) {
	set := &FramebufferSet{
		Framebuffers: make([]vk.Framebuffer, 0, len(views)),
		Extent:       extent,
		device:       ctx.Device(),
	}

	if withDepth {
		depth, err := AllocateImage(ctx, ImageConfig{
			Width:      extent.Width,
			Height:     extent.Height,
			Format:     ctx.PhysicalDevice().DepthFormat,
			Tiling:     vk.ImageTilingOptimal,
			Usage:      vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			Properties: deviceLocal,
			ViewAspect: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		})
		if err != nil {
			return nil, err
		}
		set.Depth = depth
	}

	for i, view := range views {
		attachments := []vk.ImageView{view}
		if set.Depth != nil {
			attachments = append(attachments, set.Depth.View)
		}

		framebufferCreateInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      renderPass.Handle,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           extent.Width,
			Height:          extent.Height,
			Layers:          1,
		}
		framebuffer, res := set.device.CreateFramebuffer(&framebufferCreateInfo)
		if err := check(res, "create framebuffer %d", i); err != nil {
			set.Destroy()
			return nil, err
		}
		set.Framebuffers = append(set.Framebuffers, framebuffer)
	}

	core.LogDebug("Created %d framebuffers of %dx%d.", len(set.Framebuffers), extent.Width, extent.Height)
	return set, nil
}

func (s *FramebufferSet) Len() int {
	return len(s.Framebuffers)
}

// At returns the framebuffer of the given swapchain image.
func (s *FramebufferSet) At(imageIndex uint32) vk.Framebuffer {
	return s.Framebuffers[imageIndex]
}

func (s *FramebufferSet) Destroy() {
	for _, framebuffer := range s.Framebuffers {
		s.device.DestroyFramebuffer(framebuffer)
	}
	s.Framebuffers = nil
	if s.Depth != nil {
		s.Depth.Destroy()
		s.Depth = nil
	}
}
