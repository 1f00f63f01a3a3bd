package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device Device, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	handle, res := device.CreateFence(&fenceCreateInfo)
	if err := check(res, "create fence"); err != nil {
		return nil, err
	}
	fence.Handle = handle
	return fence, nil
}

func (vf *VulkanFence) Destroy(device Device) {
	if vf.Handle != vk.NullFence {
		device.DestroyFence(vf.Handle)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence signals or timeoutNs elapses.
func (vf *VulkanFence) Wait(device Device, timeoutNs uint64) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := device.WaitForFences([]vk.Fence{vf.Handle}, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return errors.New("fence wait timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
		return errors.Wrap(core.ErrDeviceLost, "fence wait")
	case vk.ErrorOutOfHostMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		core.LogError("vk_fence_wait - An unknown error has occurred.")
	}
	return errors.Wrap(vk.Error(result), "fence wait")
}

func (vf *VulkanFence) Reset(device Device) error {
	if vf.IsSignaled {
		if err := check(device.ResetFences([]vk.Fence{vf.Handle}), "reset fence"); err != nil {
			return err
		}
		vf.IsSignaled = false
	}
	return nil
}

// FrameSync holds the synchronization objects of one frame slot.
type FrameSync struct {
	ImageAvailable vk.Semaphore
	RenderFinished vk.Semaphore
	InFlight       *VulkanFence
}

// FrameSyncSet holds one FrameSync per frame slot. Slots are indexed by the
// frame counter, never by swapchain image.
type FrameSyncSet struct {
	Slots []FrameSync
}

func NewFrameSyncSet(device Device, slotCount uint32) (*FrameSyncSet, error) {
	set := &FrameSyncSet{Slots: make([]FrameSync, 0, slotCount)}
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	for i := uint32(0); i < slotCount; i++ {
		imageAvailable, res := device.CreateSemaphore(&semaphoreCreateInfo)
		if err := check(res, "create image available semaphore"); err != nil {
			set.Destroy(device)
			return nil, err
		}
		renderFinished, res := device.CreateSemaphore(&semaphoreCreateInfo)
		if err := check(res, "create render finished semaphore"); err != nil {
			device.DestroySemaphore(imageAvailable)
			set.Destroy(device)
			return nil, err
		}
		// Create the fence in a signaled state, indicating that the first frame has already been "rendered".
		// This prevents the first wait on each slot from blocking forever.
		fence, err := NewFence(device, true)
		if err != nil {
			device.DestroySemaphore(imageAvailable)
			device.DestroySemaphore(renderFinished)
			set.Destroy(device)
			return nil, err
		}
		set.Slots = append(set.Slots, FrameSync{
			ImageAvailable: imageAvailable,
			RenderFinished: renderFinished,
			InFlight:       fence,
		})
	}
	return set, nil
}

func (s *FrameSyncSet) Len() uint32 {
	return uint32(len(s.Slots))
}

func (s *FrameSyncSet) Destroy(device Device) {
	for i := range s.Slots {
		slot := &s.Slots[i]
		if slot.ImageAvailable != vk.NullSemaphore {
			device.DestroySemaphore(slot.ImageAvailable)
			slot.ImageAvailable = vk.NullSemaphore
		}
		if slot.RenderFinished != vk.NullSemaphore {
			device.DestroySemaphore(slot.RenderFinished)
			slot.RenderFinished = vk.NullSemaphore
		}
		if slot.InFlight != nil {
			slot.InFlight.Destroy(device)
		}
	}
	s.Slots = nil
}
