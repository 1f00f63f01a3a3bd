package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

// FrameTargets are the passes a frame renders into and their framebuffers.
// With an overlay the main pass leaves the color attachment in
// ColorAttachmentOptimal and the overlay pass presents it.
type FrameTargets struct {
	RenderPass   *RenderPass
	Framebuffers *FramebufferSet
	Overlay      *FrameTimeOverlay
}

// NewFrameTargets builds the main pass and, when overlay is set, the frame
// time overlay after it. An overlay that cannot be built is logged and the
// main pass is rebuilt to present on its own.
func NewFrameTargets(ctx Context, views []vk.ImageView, overlay bool, budgetMs float64) (*FrameTargets, error) {
	targets, err := newMainTargets(ctx, views, overlay)
	if err != nil || !overlay {
		return targets, err
	}

	frameTime, err := NewFrameTimeOverlay(ctx, views, budgetMs)
	if err != nil {
		core.LogWarn("Frame time overlay disabled: %s", err)
		targets.Destroy()
		return newMainTargets(ctx, views, false)
	}
	targets.Overlay = frameTime
	return targets, nil
}

func newMainTargets(ctx Context, views []vk.ImageView, hasNextPass bool) (*FrameTargets, error) {
	config := DefaultRenderPassConfig(ctx.SwapchainFormat(), ctx.PhysicalDevice().DepthFormat)
	config.HasNextPass = hasNextPass
	renderPass, err := NewRenderPass(ctx, config)
	if err != nil {
		return nil, err
	}
	framebuffers, err := NewFramebufferSet(ctx, renderPass, views, ctx.SurfaceExtent(), true)
	if err != nil {
		renderPass.Destroy()
		return nil, err
	}
	return &FrameTargets{
		RenderPass:   renderPass,
		Framebuffers: framebuffers,
	}, nil
}

func (t *FrameTargets) Destroy() {
	if t.Overlay != nil {
		t.Overlay.Destroy()
		t.Overlay = nil
	}
	if t.Framebuffers != nil {
		t.Framebuffers.Destroy()
		t.Framebuffers = nil
	}
	if t.RenderPass != nil {
		t.RenderPass.Destroy()
		t.RenderPass = nil
	}
}
