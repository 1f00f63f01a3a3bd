package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

// NewVulkanCommandBuffers allocates count primary command buffers from pool.
func NewVulkanCommandBuffers(device Device, pool vk.CommandPool, count uint32) ([]*VulkanCommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: count,
		Level:              vk.CommandBufferLevelPrimary,
	}

	handles, res := device.AllocateCommandBuffers(&allocateInfo)
	if err := check(res, "allocate %d command buffers", count); err != nil {
		return nil, err
	}

	out := make([]*VulkanCommandBuffer, len(handles))
	for i, handle := range handles {
		out[i] = &VulkanCommandBuffer{
			Handle: handle,
			State:  COMMAND_BUFFER_STATE_READY,
		}
	}
	return out, nil
}

func NewVulkanCommandBuffer(device Device, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	buffers, err := NewVulkanCommandBuffers(device, pool, 1)
	if err != nil {
		return nil, err
	}
	return buffers[0], nil
}

func (v *VulkanCommandBuffer) Free(device Device, pool vk.CommandPool) {
	if v.Handle != nil {
		device.FreeCommandBuffers(pool, []vk.CommandBuffer{v.Handle})
	}
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(device Device, isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if err := check(device.BeginCommandBuffer(v.Handle, beginInfo), "begin command buffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End(device Device) error {
	if err := check(device.EndCommandBuffer(v.Handle), "end command buffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

// Reset returns a command buffer to the initial state so it can be recorded again.
func (v *VulkanCommandBuffer) Reset(device Device) error {
	if err := check(device.ResetCommandBuffer(v.Handle), "reset command buffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

/**
 * Allocates a command buffer and begins recording it for a single submission.
 */
func AllocateAndBeginSingleUse(device Device, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(device, pool)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(device, true, false, false); err != nil {
		cb.Free(device, pool)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to and waits for queue operation and frees the provided command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(device Device, pool vk.CommandPool, queue vk.Queue) error {
	defer v.Free(device, pool)

	if err := v.End(device); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	if err := check(device.QueueSubmit(queue, []vk.SubmitInfo{submitInfo}, vk.NullFence), "submit single use command buffer"); err != nil {
		return err
	}
	v.UpdateSubmitted()

	// Wait for it to finish
	return check(device.QueueWaitIdle(queue), "wait for queue idle")
}

// SubmitOneShot records commands through record into a fresh command buffer,
// submits it to the graphics queue and blocks until the queue is idle.
func SubmitOneShot(ctx Context, record func(cmd *VulkanCommandBuffer) error) error {
	device := ctx.Device()
	cb, err := AllocateAndBeginSingleUse(device, ctx.CommandPool())
	if err != nil {
		return err
	}
	if err := record(cb); err != nil {
		cb.Free(device, ctx.CommandPool())
		core.LogError("one shot recording failed: %s", err)
		return errors.Wrap(err, "record one shot command buffer")
	}
	return cb.EndSingleUse(device, ctx.CommandPool(), ctx.GraphicsQueue())
}
