package vulkan

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

const shaderEntryPoint = "main"

// ShaderStage is a shader module and the pipeline stage it is bound to.
type ShaderStage struct {
	Handle vk.ShaderModule
	Stage  vk.ShaderStageFlagBits
	// Pipeline shader stage creation info, ready for pipeline creation.
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// spirvWords reinterprets little endian SPIR-V bytes as 32 bit words.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) == 0 {
		return nil, errors.WithStack(core.ErrShaderMissing)
	}
	if len(code)%4 != 0 {
		return nil, errors.Newf("SPIR-V size %d is not a multiple of 4", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return words, nil
}

func NewShaderStage(device Device, code []byte, stage vk.ShaderStageFlagBits) (*ShaderStage, error) {
	words, err := spirvWords(code)
	if err != nil {
		return nil, err
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType: vk.StructureTypeShaderModuleCreateInfo,
		// Use the resource's size and data directly.
		CodeSize: uint64(len(code)),
		PCode:    words,
	}
	handle, res := device.CreateShaderModule(&createInfo)
	if err := check(res, "create shader module for stage %d", stage); err != nil {
		return nil, err
	}

	return &ShaderStage{
		Handle: handle,
		Stage:  stage,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: handle,
			PName:  VulkanSafeString(shaderEntryPoint),
		},
	}, nil
}

func (s *ShaderStage) Destroy(device Device) {
	if s.Handle != vk.NullShaderModule {
		device.DestroyShaderModule(s.Handle)
		s.Handle = vk.NullShaderModule
	}
}
