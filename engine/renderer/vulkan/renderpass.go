package vulkan

import (
	vk "github.com/goki/vulkan"
)

type RenderPassConfig struct {
	ColorFormat vk.Format
	// No depth attachment when undefined.
	DepthFormat vk.Format
	// Load the color attachment written by an earlier pass instead of clearing it.
	HasPrevPass bool
	// Layout the previous pass left the color attachment in.
	PrevPassLayout vk.ImageLayout
	// Leave the color attachment ready for a later pass instead of presenting it.
	HasNextPass bool

	ClearColor [4]float32
	Depth      float32
	Stencil    uint32
}

// DefaultRenderPassConfig is the single forward pass: clear to the default
// color, depth 1.0, present at the end.
func DefaultRenderPassConfig(colorFormat, depthFormat vk.Format) RenderPassConfig {
	return RenderPassConfig{
		ColorFormat: colorFormat,
		DepthFormat: depthFormat,
		ClearColor:  defaultClearColor,
		Depth:       1.0,
		Stencil:     0,
	}
}

type RenderPass struct {
	Handle vk.RenderPass
	Config RenderPassConfig

	device Device
}

func (c RenderPassConfig) hasDepth() bool {
	return c.DepthFormat != vk.FormatUndefined
}

func (c RenderPassConfig) colorAttachment() vk.AttachmentDescription {
	colorAttachment := vk.AttachmentDescription{
		Format:         c.ColorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		// Do not expect any particular layout before render pass starts.
		InitialLayout: vk.ImageLayoutUndefined,
		// Transitioned to after the render pass.
		FinalLayout: vk.ImageLayoutPresentSrc,
	}
	if c.HasPrevPass {
		// An unset PrevPassLayout means the previous pass presented.
		colorAttachment.LoadOp = vk.AttachmentLoadOpLoad
		colorAttachment.InitialLayout = c.PrevPassLayout
		if colorAttachment.InitialLayout == vk.ImageLayoutUndefined {
			colorAttachment.InitialLayout = vk.ImageLayoutPresentSrc
		}
	}
	if c.HasNextPass {
		colorAttachment.FinalLayout = vk.ImageLayoutColorAttachmentOptimal
	}
	return colorAttachment
}

// NewRenderPass creates a single subpass render pass with a color attachment
// and, when a depth format is configured, a depth attachment.
func NewRenderPass(ctx Context, config RenderPassConfig) (*RenderPass, error) {
	attachmentDescriptions := []vk.AttachmentDescription{config.colorAttachment()}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0, // Attachment description array index
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}

	// Depth attachment, if there is one
	if config.hasDepth() {
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         config.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	device := ctx.Device()
	handle, res := device.CreateRenderPass(&renderPassCreateInfo)
	if err := check(res, "create render pass"); err != nil {
		return nil, err
	}
	return &RenderPass{
		Handle: handle,
		Config: config,
		device: device,
	}, nil
}

func (rp *RenderPass) Destroy() {
	if rp.Handle != vk.NullRenderPass {
		rp.device.DestroyRenderPass(rp.Handle)
		rp.Handle = vk.NullRenderPass
	}
}

// ClearValues returns the color clear value followed by the depth one when
// the pass has a depth attachment.
func (rp *RenderPass) ClearValues() []vk.ClearValue {
	color := rp.Config.ClearColor
	clearValues := []vk.ClearValue{vk.NewClearValue(color[:])}
	if rp.Config.hasDepth() {
		clearValues = append(clearValues, vk.NewClearDepthStencil(rp.Config.Depth, rp.Config.Stencil))
	}
	return clearValues
}

// Begin starts the pass on framebuffer over the full extent.
func (rp *RenderPass) Begin(cmd *VulkanCommandBuffer, framebuffer vk.Framebuffer, extent vk.Extent2D) {
	clearValues := rp.ClearValues()
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	rp.device.CmdBeginRenderPass(cmd.Handle, &beginInfo)
	cmd.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (rp *RenderPass) End(cmd *VulkanCommandBuffer) {
	rp.device.CmdEndRenderPass(cmd.Handle)
	cmd.State = COMMAND_BUFFER_STATE_RECORDING
}
