package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

/**
 * @brief Hands out descriptor sets for every material from one shared pool.
 * Sets may be freed individually.
 */
type DescriptorAllocator struct {
	Pool vk.DescriptorPool
	/** @brief The number of sets currently allocated from the pool. */
	allocated uint32
	maxSets   uint32

	device Device
}

func NewDescriptorAllocator(ctx Context, maxSets uint32) (*DescriptorAllocator, error) {
	if maxSets == 0 {
		maxSets = VULKAN_MAX_MATERIAL_COUNT
	}

	poolSizes := []vk.DescriptorPoolSize{
		{
			// Per material uniform buffer, addressed with a dynamic offset per frame slot.
			Type:            vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: maxSets,
		},
		{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: maxSets,
		},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       maxSets,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
	}

	device := ctx.Device()
	pool, res := device.CreateDescriptorPool(&poolInfo)
	if err := check(res, "create descriptor pool for %d sets", maxSets); err != nil {
		return nil, err
	}
	return &DescriptorAllocator{
		Pool:    pool,
		maxSets: maxSets,
		device:  device,
	}, nil
}

// Allocate returns a new set of the given layout.
func (a *DescriptorAllocator) Allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	if a.allocated >= a.maxSets {
		return nil, errors.Wrapf(core.ErrAllocationFailure, "descriptor pool exhausted at %d sets", a.maxSets)
	}
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     a.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	set, res := a.device.AllocateDescriptorSet(&allocateInfo)
	if err := check(res, "allocate descriptor set"); err != nil {
		return nil, err
	}
	a.allocated++
	return set, nil
}

// Free returns set to the pool. The set must not be in use by the GPU.
func (a *DescriptorAllocator) Free(set vk.DescriptorSet) error {
	if set == nil {
		return nil
	}
	if err := check(a.device.FreeDescriptorSets(a.Pool, []vk.DescriptorSet{set}), "free descriptor set"); err != nil {
		return err
	}
	a.allocated--
	return nil
}

// Allocated is the number of sets handed out and not yet freed.
func (a *DescriptorAllocator) Allocated() uint32 {
	return a.allocated
}

func (a *DescriptorAllocator) Destroy() {
	if a.Pool != nil {
		a.device.DestroyDescriptorPool(a.Pool)
		a.Pool = nil
	}
	a.allocated = 0
}

// newMaterialSetLayout describes binding 0, the dynamic uniform buffer read by
// the vertex stage, and when textured binding 1, the sampler read by the fragment stage.
func newMaterialSetLayout(device Device, textured bool) (vk.DescriptorSetLayout, error) {
	bindings := []vk.DescriptorSetLayoutBinding{{
		Binding:         UNIFORM_BINDING,
		DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}}
	if textured {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         SAMPLER_BINDING,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	layout, res := device.CreateDescriptorSetLayout(&layoutInfo)
	if err := check(res, "create descriptor set layout"); err != nil {
		return nil, err
	}
	return layout, nil
}
