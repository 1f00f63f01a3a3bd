package vulkan

import "math"

/**
 * @brief Max number of material instances sharing the descriptor pool.
 */
const VULKAN_MAX_MATERIAL_COUNT uint32 = 1024

/**
 * @brief Max number of frames the CPU may record ahead of the GPU.
 */
const VULKAN_MAX_FRAMES_IN_FLIGHT uint32 = 4

// Descriptor bindings shared by every material pipeline.
const (
	UNIFORM_BINDING uint32 = 0
	SAMPLER_BINDING uint32 = 1
)

// Blocking waits in the frame protocol never time out.
const waitForever uint64 = math.MaxUint64

var defaultClearColor = [4]float32{0.0, 0.25, 0.8, 1.0}
