package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

// GPUImage is a 2D image with one mip level, its memory and a view over it.
type GPUImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format

	device Device
}

type ImageConfig struct {
	Width, Height uint32
	Format        vk.Format
	Tiling        vk.ImageTiling
	Usage         vk.ImageUsageFlags
	Properties    vk.MemoryPropertyFlags
	// Aspect of the view. No view is created when zero.
	ViewAspect vk.ImageAspectFlags
}

// AllocateImage creates an image, backs it with memory of a matching type and
// optionally creates a view over it.
func AllocateImage(ctx Context, config ImageConfig) (*GPUImage, error) {
	device := ctx.Device()

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  config.Width,
			Height: config.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        config.Format,
		Tiling:        config.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         config.Usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}

	handle, res := device.CreateImage(&imageCreateInfo)
	if err := check(res, "create %dx%d image", config.Width, config.Height); err != nil {
		return nil, err
	}
	image := &GPUImage{
		Handle: handle,
		Width:  config.Width,
		Height: config.Height,
		Format: config.Format,
		device: device,
	}

	requirements := device.ImageMemoryRequirements(handle)
	memoryType, err := FindMemoryIndex(ctx.PhysicalDevice(), requirements.MemoryTypeBits, config.Properties)
	if err != nil {
		image.Destroy()
		return nil, err
	}

	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	memory, res := device.AllocateMemory(&memoryAllocateInfo)
	if err := check(res, "allocate image memory"); err != nil {
		image.Destroy()
		return nil, err
	}
	image.Memory = memory

	if err := check(device.BindImageMemory(handle, memory, 0), "bind image memory"); err != nil {
		image.Destroy()
		return nil, err
	}

	if config.ViewAspect != 0 {
		if err := image.createView(config.ViewAspect); err != nil {
			image.Destroy()
			return nil, err
		}
	}
	return image, nil
}

func (i *GPUImage) createView(aspect vk.ImageAspectFlags) error {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   i.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	view, res := i.device.CreateImageView(&viewCreateInfo)
	if err := check(res, "create image view"); err != nil {
		return err
	}
	i.View = view
	return nil
}

func (i *GPUImage) Destroy() {
	if i.device == nil {
		return
	}
	if i.View != vk.NullImageView {
		i.device.DestroyImageView(i.View)
		i.View = vk.NullImageView
	}
	if i.Memory != vk.NullDeviceMemory {
		i.device.FreeMemory(i.Memory)
		i.Memory = vk.NullDeviceMemory
	}
	if i.Handle != vk.NullImage {
		i.device.DestroyImage(i.Handle)
		i.Handle = vk.NullImage
	}
}

type layoutTransition struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

// transitionMasks knows the two transitions a texture upload needs.
func transitionMasks(oldLayout, newLayout vk.ImageLayout) (layoutTransition, error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		// Don't care what stage the pipeline is in at the start.
		return layoutTransition{
			srcAccess: 0,
			dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		// From a copying stage to the fragment stage.
		return layoutTransition{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	}
	return layoutTransition{}, errors.Wrapf(core.ErrUnsupportedLayoutTransition, "layout %d to %d", oldLayout, newLayout)
}

// TransitionImageLayout records a barrier moving the color aspect of image between layouts.
func (i *GPUImage) TransitionImageLayout(cmd *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout) error {
	masks, err := transitionMasks(oldLayout, newLayout)
	if err != nil {
		core.LogError("unsupported layout transition")
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               i.Handle,
		SrcAccessMask:       masks.srcAccess,
		DstAccessMask:       masks.dstAccess,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	i.device.CmdPipelineBarrier(cmd.Handle, masks.srcStage, masks.dstStage, nil, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// CopyBufferToImage records a copy of the whole buffer into the image, which
// must be in the transfer destination layout.
func (i *GPUImage) CopyBufferToImage(cmd *VulkanCommandBuffer, buffer *GPUBuffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  i.Width,
			Height: i.Height,
			Depth:  1,
		},
	}
	i.device.CmdCopyBufferToImage(cmd.Handle, buffer.Handle, i.Handle, vk.ImageLayoutTransferDstOptimal, []vk.BufferImageCopy{region})
}

// UploadImage creates a sampled RGBA8 image from tightly packed pixels and
// leaves it in the shader read only layout.
func UploadImage(ctx Context, width, height uint32, pixels []byte) (*GPUImage, error) {
	if expected := int(width) * int(height) * 4; len(pixels) != expected {
		return nil, errors.Newf("image of %dx%d needs %d bytes, got %d", width, height, expected, len(pixels))
	}

	staging, err := newStagingBuffer(ctx, vk.DeviceSize(len(pixels)), vk.BufferUsageTransferSrcBit)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()
	if err := staging.Write(0, pixels); err != nil {
		return nil, err
	}

	image, err := AllocateImage(ctx, ImageConfig{
		Width:      width,
		Height:     height,
		Format:     vk.FormatR8g8b8a8Srgb,
		Tiling:     vk.ImageTilingOptimal,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		Properties: deviceLocal,
		ViewAspect: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		return nil, err
	}

	if err := SubmitOneShot(ctx, func(cmd *VulkanCommandBuffer) error {
		if err := image.TransitionImageLayout(cmd, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
			return err
		}
		image.CopyBufferToImage(cmd, staging)
		return image.TransitionImageLayout(cmd, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	}); err != nil {
		image.Destroy()
		return nil, err
	}
	return image, nil
}

// NewSampler creates the linear, repeating sampler used for material textures.
func NewSampler(ctx Context) (vk.Sampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0.0,
		MinLod:                  0.0,
		MaxLod:                  0.0,
	}
	if ctx.PhysicalDevice().SamplerAnisotropy {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = 16
	}
	sampler, res := ctx.Device().CreateSampler(&samplerInfo)
	if err := check(res, "create texture sampler"); err != nil {
		return vk.NullSampler, err
	}
	return sampler, nil
}
