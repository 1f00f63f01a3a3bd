package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

type FrameSlotState int

const (
	FRAME_SLOT_IDLE FrameSlotState = iota
	FRAME_SLOT_ACQUIRING
	FRAME_SLOT_RECORDING
	FRAME_SLOT_SUBMITTED
	FRAME_SLOT_PRESENTED
)

func (s FrameSlotState) String() string {
	switch s {
	case FRAME_SLOT_IDLE:
		return "idle"
	case FRAME_SLOT_ACQUIRING:
		return "acquiring"
	case FRAME_SLOT_RECORDING:
		return "recording"
	case FRAME_SLOT_SUBMITTED:
		return "submitted"
	case FRAME_SLOT_PRESENTED:
		return "presented"
	}
	return "unknown"
}

// FrameScheduler drives wait, reset, acquire, record, submit and present for
// each frame. Sync objects rotate by frame slot, command buffers by swapchain image.
type FrameScheduler struct {
	device        Device
	swapchain     *Swapchain
	graphicsQueue vk.Queue
	presentQueue  vk.Queue
	pool          vk.CommandPool

	sync           *FrameSyncSet
	commandBuffers []*VulkanCommandBuffer
	// Fences owned by the sync set, remembered per image.
	imagesInFlight []*VulkanFence
	states         []FrameSlotState

	frameSlot   uint32
	imageIndex  uint32
	frameNumber uint64
}

func NewFrameScheduler(device Device, swapchain *Swapchain, pool vk.CommandPool, graphicsQueue, presentQueue vk.Queue, slotCount uint32) (*FrameScheduler, error) {
	if slotCount == 0 || slotCount > VULKAN_MAX_FRAMES_IN_FLIGHT {
		return nil, errors.Newf("frames in flight must be between 1 and %d, got %d", VULKAN_MAX_FRAMES_IN_FLIGHT, slotCount)
	}
	sync, err := NewFrameSyncSet(device, slotCount)
	if err != nil {
		return nil, err
	}
	fs := &FrameScheduler{
		device:        device,
		swapchain:     swapchain,
		graphicsQueue: graphicsQueue,
		presentQueue:  presentQueue,
		pool:          pool,
		sync:          sync,
		states:        make([]FrameSlotState, slotCount),
	}
	if err := fs.createCommandBuffers(); err != nil {
		sync.Destroy(device)
		return nil, err
	}
	return fs, nil
}

func (fs *FrameScheduler) createCommandBuffers() error {
	buffers, err := NewVulkanCommandBuffers(fs.device, fs.pool, fs.swapchain.ImageCount())
	if err != nil {
		return err
	}
	fs.commandBuffers = buffers
	fs.imagesInFlight = make([]*VulkanFence, len(buffers))
	return nil
}

func (fs *FrameScheduler) freeCommandBuffers() {
	for _, cb := range fs.commandBuffers {
		cb.Free(fs.device, fs.pool)
	}
	fs.commandBuffers = nil
	fs.imagesInFlight = nil
}

// SwapchainRecreated reallocates the per image command buffers after the
// swapchain was rebuilt. The device must be idle.
func (fs *FrameScheduler) SwapchainRecreated() error {
	fs.freeCommandBuffers()
	return fs.createCommandBuffers()
}

func (fs *FrameScheduler) SlotCount() uint32 { return fs.sync.Len() }
func (fs *FrameScheduler) FrameSlot() uint32 { return fs.frameSlot }
func (fs *FrameScheduler) ImageIndex() uint32 { return fs.imageIndex }
func (fs *FrameScheduler) FrameNumber() uint64 { return fs.frameNumber }
func (fs *FrameScheduler) State(slot uint32) FrameSlotState {
	return fs.states[slot]
}

// BeginFrame waits until the current slot is free, acquires the next image
// and leaves that image's command buffer recording.
func (fs *FrameScheduler) BeginFrame() (*CommandContext, error) {
	slot := &fs.sync.Slots[fs.frameSlot]

	// Wait for the GPU to finish the previous use of this slot.
	if err := slot.InFlight.Wait(fs.device, waitForever); err != nil {
		return nil, errors.Wrapf(err, "wait for frame slot %d", fs.frameSlot)
	}
	// The previous frame in this slot is done.
	fs.states[fs.frameSlot] = FRAME_SLOT_IDLE

	fs.states[fs.frameSlot] = FRAME_SLOT_ACQUIRING
	imageIndex, err := fs.swapchain.AcquireNextImage(waitForever, slot.ImageAvailable)
	if err != nil {
		// The fence stays signaled so the next attempt does not block on it.
		fs.states[fs.frameSlot] = FRAME_SLOT_IDLE
		return nil, err
	}
	fs.imageIndex = imageIndex

	// Make sure a previous frame is not still using this image.
	if previous := fs.imagesInFlight[imageIndex]; previous != nil && previous != slot.InFlight {
		if err := previous.Wait(fs.device, waitForever); err != nil {
			return nil, errors.Wrapf(err, "wait for image %d", imageIndex)
		}
	}
	fs.imagesInFlight[imageIndex] = slot.InFlight
	if err := slot.InFlight.Reset(fs.device); err != nil {
		return nil, err
	}

	cb := fs.commandBuffers[imageIndex]
	if err := cb.Reset(fs.device); err != nil {
		return nil, err
	}
	if err := cb.Begin(fs.device, false, false, false); err != nil {
		return nil, err
	}
	fs.states[fs.frameSlot] = FRAME_SLOT_RECORDING

	return &CommandContext{
		CommandBuffer: cb,
		FrameSlot:     fs.frameSlot,
		ImageIndex:    imageIndex,
	}, nil
}

// EndFrame ends recording, submits the command buffer and presents the image.
func (fs *FrameScheduler) EndFrame() error {
	slot := &fs.sync.Slots[fs.frameSlot]
	cb := fs.commandBuffers[fs.imageIndex]

	if err := cb.End(fs.device); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType: vk.StructureTypeSubmitInfo,
		// Command buffer(s) to be executed.
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
		// The semaphore(s) to be signaled when the queue is complete.
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.RenderFinished},
		// Wait semaphore ensures that the operation cannot begin until the image is available.
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.ImageAvailable},
		// Colour attachment writes wait until the image is available.
		PWaitDstStageMask: []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}
	if err := check(fs.device.QueueSubmit(fs.graphicsQueue, []vk.SubmitInfo{submitInfo}, slot.InFlight.Handle), "submit frame %d", fs.frameNumber); err != nil {
		return err
	}
	cb.UpdateSubmitted()
	fs.states[fs.frameSlot] = FRAME_SLOT_SUBMITTED

	// Give the image back to the swapchain. The slot advances even when
	// presenting fails since its fence is already pending.
	err := fs.swapchain.Present(fs.presentQueue, slot.RenderFinished, fs.imageIndex)
	if err == nil {
		fs.states[fs.frameSlot] = FRAME_SLOT_PRESENTED
	}

	// Increment (and loop) the index. The slot stays submitted or presented
	// until BeginFrame sees its fence signal.
	fs.frameSlot = (fs.frameSlot + 1) % fs.sync.Len()
	fs.frameNumber++
	return err
}

func (fs *FrameScheduler) Destroy() {
	fs.freeCommandBuffers()
	if fs.sync != nil {
		fs.sync.Destroy(fs.device)
		fs.sync = nil
	}
}
