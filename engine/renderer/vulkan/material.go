package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/nou/engine/core"
	nmath "github.com/spaghettifunk/nou/engine/math"
)

// UniformBlock is the per draw uniform data read by the vertex stage at binding 0.
// Matrices are column major, as the shaders expect.
type UniformBlock struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

const uniformBlockSize = uint64(unsafe.Sizeof(UniformBlock{}))

// Bytes returns the block laid out as std140 mat4s.
func (u UniformBlock) Bytes() []byte {
	out := make([]byte, 0, uniformBlockSize)
	out = putFloats(out, u.Model[:]...)
	out = putFloats(out, u.View[:]...)
	out = putFloats(out, u.Projection[:]...)
	return out
}

// UniformStride is the size of one frame slot's uniform region, rounded up to
// the device's dynamic offset alignment.
func UniformStride(minAlignment uint64) uint64 {
	return nmath.AlignUp(uniformBlockSize, minAlignment)
}

// Texture is an uploaded image and the sampler used to read it.
type Texture struct {
	Image   *GPUImage
	Sampler vk.Sampler
}

func NewTexture(ctx Context, width, height uint32, pixels []byte) (*Texture, error) {
	image, err := UploadImage(ctx, width, height, pixels)
	if err != nil {
		return nil, err
	}
	sampler, err := NewSampler(ctx)
	if err != nil {
		image.Destroy()
		return nil, err
	}
	return &Texture{Image: image, Sampler: sampler}, nil
}

func (t *Texture) Destroy(device Device) {
	if t.Sampler != vk.NullSampler {
		device.DestroySampler(t.Sampler)
		t.Sampler = vk.NullSampler
	}
	if t.Image != nil {
		t.Image.Destroy()
		t.Image = nil
	}
}

type MaterialConfig struct {
	Name string
	// SPIR-V code of the two stages.
	VertexCode   []byte
	FragmentCode []byte
	// Optional. The material samples it at binding 1.
	Texture *Texture
}

// Material is a graphics pipeline plus the descriptor set and uniform
// storage it draws with. Uniforms live in one device local buffer holding a
// region per frame slot, written through a host visible staging twin.
type Material struct {
	ID   uuid.UUID
	Name string

	Pipeline            *VulkanPipeline
	DescriptorSetLayout vk.DescriptorSetLayout
	DescriptorSet       vk.DescriptorSet
	Stages              []*ShaderStage

	Uniforms        *GPUBuffer
	UniformsStaging *GPUBuffer
	UniformStride   uint64
	Slots           uint32

	Texture *Texture

	renderPass  *RenderPass
	descriptors *DescriptorAllocator
	extent      vk.Extent2D
	device      Device
}

func NewMaterial(ctx Context, renderPass *RenderPass, descriptors *DescriptorAllocator, config MaterialConfig) (*Material, error) {
	m := &Material{
		ID:            uuid.New(),
		Name:          config.Name,
		Texture:       config.Texture,
		Slots:         ctx.FramesInFlight(),
		UniformStride: UniformStride(ctx.PhysicalDevice().MinUniformBufferOffsetAlignment),
		renderPass:    renderPass,
		descriptors:   descriptors,
		extent:        ctx.SurfaceExtent(),
		device:        ctx.Device(),
	}

	if err := m.create(ctx, config); err != nil {
		m.Destroy()
		return nil, errors.Wrapf(err, "create material %q", config.Name)
	}
	core.LogDebug("Material '%s' created with uniform stride %d.", m.Name, m.UniformStride)
	return m, nil
}

func (m *Material) create(ctx Context, config MaterialConfig) error {
	var err error
	if m.Stages, err = loadStages(m.device, config.VertexCode, config.FragmentCode); err != nil {
		return err
	}

	if m.DescriptorSetLayout, err = newMaterialSetLayout(m.device, m.Texture != nil); err != nil {
		return err
	}

	if err := m.createPipeline(); err != nil {
		return err
	}

	uniformSize := vk.DeviceSize(m.UniformStride * uint64(m.Slots))
	m.Uniforms, err = AllocateBuffer(ctx, uniformSize,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit), deviceLocal)
	if err != nil {
		return err
	}
	m.UniformsStaging, err = AllocateBuffer(ctx, uniformSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisibleCoherent)
	if err != nil {
		return err
	}

	if m.DescriptorSet, err = m.descriptors.Allocate(m.DescriptorSetLayout); err != nil {
		return err
	}
	m.writeDescriptors()
	return nil
}

func loadStages(device Device, vertexCode, fragmentCode []byte) ([]*ShaderStage, error) {
	vertex, err := NewShaderStage(device, vertexCode, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, errors.Wrap(err, "vertex stage")
	}
	fragment, err := NewShaderStage(device, fragmentCode, vk.ShaderStageFragmentBit)
	if err != nil {
		vertex.Destroy(device)
		return nil, errors.Wrap(err, "fragment stage")
	}
	return []*ShaderStage{vertex, fragment}, nil
}

func (m *Material) createPipeline() error {
	stages := make([]vk.PipelineShaderStageCreateInfo, len(m.Stages))
	for i, stage := range m.Stages {
		stages[i] = stage.ShaderStageCreateInfo
	}
	config := DefaultPipelineConfig(m.renderPass, m.extent)
	config.Stages = stages
	config.DescriptorSetLayouts = []vk.DescriptorSetLayout{m.DescriptorSetLayout}

	pipeline, err := NewGraphicsPipeline(m.device, &config)
	if err != nil {
		return err
	}
	m.Pipeline = pipeline
	return nil
}

func (m *Material) writeDescriptors() {
	writes := []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          m.DescriptorSet,
		DstBinding:      UNIFORM_BINDING,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
		DescriptorCount: 1,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: m.Uniforms.Handle,
			Offset: 0,
			// One slot's region, the dynamic offset picks which.
			Range: vk.DeviceSize(uniformBlockSize),
		}},
	}}
	if m.Texture != nil {
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          m.DescriptorSet,
			DstBinding:      SAMPLER_BINDING,
			DstArrayElement: 0,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				ImageView:   m.Texture.Image.View,
				Sampler:     m.Texture.Sampler,
			}},
		})
	}
	m.device.UpdateDescriptorSets(writes)
}

func (m *Material) slotOffset(slot uint32) vk.DeviceSize {
	return vk.DeviceSize(uint64(slot) * m.UniformStride)
}

// UpdateUniforms writes block into the staging region of slot and records the
// copy into the device local buffer followed by a barrier for the vertex
// stage. It must be recorded outside of a render pass, after the slot's fence
// has signaled.
func (m *Material) UpdateUniforms(cmd *VulkanCommandBuffer, slot uint32, block UniformBlock) error {
	if slot >= m.Slots {
		return errors.Newf("frame slot %d out of range for %d slots", slot, m.Slots)
	}
	offset := m.slotOffset(slot)
	if err := m.UniformsStaging.Write(offset, block.Bytes()); err != nil {
		return err
	}
	size := vk.DeviceSize(uniformBlockSize)
	m.UniformsStaging.RecordCopy(cmd, m.Uniforms, offset, offset, size)

	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		DstAccessMask:       vk.AccessFlags(vk.AccessUniformReadBit),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              m.Uniforms.Handle,
		Offset:              offset,
		Size:                size,
	}
	m.device.CmdPipelineBarrier(cmd.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit),
		[]vk.BufferMemoryBarrier{barrier}, nil)
	return nil
}

// Bind binds the pipeline and the descriptor set with the dynamic offset of slot.
func (m *Material) Bind(cmd *VulkanCommandBuffer, slot uint32) {
	m.Pipeline.Bind(m.device, cmd)
	m.device.CmdBindDescriptorSets(cmd.Handle, m.Pipeline.PipelineLayout,
		[]vk.DescriptorSet{m.DescriptorSet}, []uint32{uint32(m.slotOffset(slot))})
}

// ReloadShaders rebuilds the shader modules and the pipeline from new code.
// The device must be idle. On failure the previous pipeline is kept.
func (m *Material) ReloadShaders(vertexCode, fragmentCode []byte) error {
	stages, err := loadStages(m.device, vertexCode, fragmentCode)
	if err != nil {
		return errors.Wrapf(err, "reload shaders of material %q", m.Name)
	}
	oldStages, oldPipeline := m.Stages, m.Pipeline
	m.Stages = stages
	if err := m.createPipeline(); err != nil {
		for _, stage := range stages {
			stage.Destroy(m.device)
		}
		m.Stages, m.Pipeline = oldStages, oldPipeline
		return errors.Wrapf(err, "reload shaders of material %q", m.Name)
	}
	for _, stage := range oldStages {
		stage.Destroy(m.device)
	}
	if oldPipeline != nil {
		oldPipeline.Destroy(m.device)
	}
	core.LogInfo("Material '%s' shaders reloaded.", m.Name)
	return nil
}

// Destroy releases everything the material created. The texture is owned by
// the material once configured. The GPU must be done with it.
func (m *Material) Destroy() {
	if m.device == nil {
		return
	}
	if m.DescriptorSet != nil {
		if err := m.descriptors.Free(m.DescriptorSet); err != nil {
			core.LogWarn("failed to free descriptor set of material '%s': %s", m.Name, err)
		}
		m.DescriptorSet = nil
	}
	if m.Pipeline != nil {
		m.Pipeline.Destroy(m.device)
		m.Pipeline = nil
	}
	if m.DescriptorSetLayout != nil {
		m.device.DestroyDescriptorSetLayout(m.DescriptorSetLayout)
		m.DescriptorSetLayout = nil
	}
	for _, stage := range m.Stages {
		stage.Destroy(m.device)
	}
	m.Stages = nil
	if m.Uniforms != nil {
		m.Uniforms.Destroy()
		m.Uniforms = nil
	}
	if m.UniformsStaging != nil {
		m.UniformsStaging.Destroy()
		m.UniformsStaging = nil
	}
	if m.Texture != nil {
		m.Texture.Destroy(m.device)
		m.Texture = nil
	}
	m.device = nil
}
