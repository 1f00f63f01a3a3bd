package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
	nmath "github.com/spaghettifunk/nou/engine/math"
)

// Overlay records its own pass on top of the finished scene.
type Overlay interface {
	Record(frame *CommandContext) error
	Destroy()
}

const frameTimeBarHeight uint32 = 6

var (
	frameTimeBarColor     = [4]float32{0.1, 0.9, 0.2, 1.0}
	frameTimeBarOverColor = [4]float32{0.9, 0.1, 0.1, 1.0}
)

// FrameTimeOverlay draws a bar along the bottom edge whose width is the
// average frame time relative to a budget. The bar turns red over budget.
type FrameTimeOverlay struct {
	renderPass   *RenderPass
	framebuffers *FramebufferSet
	device       Device

	budgetMs    float64
	frameTimeMs float64
}

func NewFrameTimeOverlay(ctx Context, views []vk.ImageView, budgetMs float64) (*FrameTimeOverlay, error) {
	config := RenderPassConfig{
		ColorFormat:    ctx.SwapchainFormat(),
		DepthFormat:    vk.FormatUndefined,
		HasPrevPass:    true,
		PrevPassLayout: vk.ImageLayoutColorAttachmentOptimal,
	}
	renderPass, err := NewRenderPass(ctx, config)
	if err != nil {
		return nil, err
	}
	framebuffers, err := NewFramebufferSet(ctx, renderPass, views, ctx.SurfaceExtent(), false)
	if err != nil {
		renderPass.Destroy()
		return nil, err
	}
	core.LogDebug("Frame time overlay created with a %.2fms budget.", budgetMs)
	return &FrameTimeOverlay{
		renderPass:   renderPass,
		framebuffers: framebuffers,
		device:       ctx.Device(),
		budgetMs:     budgetMs,
	}, nil
}

// SetFrameTime updates the value shown by the next recorded frame.
func (o *FrameTimeOverlay) SetFrameTime(ms float64) {
	o.frameTimeMs = ms
}

// barRect is the area cleared for the current frame time.
func (o *FrameTimeOverlay) barRect(extent vk.Extent2D) (vk.Rect2D, [4]float32) {
	color := frameTimeBarColor
	ratio := 0.0
	if o.budgetMs > 0 {
		ratio = o.frameTimeMs / o.budgetMs
	}
	if ratio > 1 {
		color = frameTimeBarOverColor
	}
	width := uint32(nmath.Clamp(ratio, 0, 1) * float64(extent.Width))
	height := nmath.Clamp(frameTimeBarHeight, 0, extent.Height)
	return vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: int32(extent.Height - height)},
		Extent: vk.Extent2D{Width: width, Height: height},
	}, color
}

func (o *FrameTimeOverlay) Record(frame *CommandContext) error {
	extent := o.framebuffers.Extent
	rect, color := o.barRect(extent)

	o.renderPass.Begin(frame.CommandBuffer, o.framebuffers.At(frame.ImageIndex), extent)
	if rect.Extent.Width > 0 && rect.Extent.Height > 0 {
		attachment := vk.ClearAttachment{
			AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
			ColorAttachment: 0,
			ClearValue:      vk.NewClearValue(color[:]),
		}
		o.device.CmdClearAttachments(frame.CommandBuffer.Handle,
			[]vk.ClearAttachment{attachment},
			[]vk.ClearRect{{Rect: rect, BaseArrayLayer: 0, LayerCount: 1}})
	}
	o.renderPass.End(frame.CommandBuffer)
	return nil
}

func (o *FrameTimeOverlay) Destroy() {
	if o.framebuffers != nil {
		o.framebuffers.Destroy()
		o.framebuffers = nil
	}
	if o.renderPass != nil {
		o.renderPass.Destroy()
		o.renderPass = nil
	}
}
