package vulkan

import (
	vk "github.com/goki/vulkan"
)

// Context is everything a component may know about the backend that owns it.
type Context interface {
	Device() Device
	PhysicalDevice() *PhysicalDevice
	CommandPool() vk.CommandPool
	GraphicsQueue() vk.Queue
	SwapchainFormat() vk.Format
	SurfaceExtent() vk.Extent2D
	FramesInFlight() uint32
}

// CommandContext is handed to scene code between OnFrameStart and OnFrameEnd.
type CommandContext struct {
	// Command buffer of the acquired image, already in the recording state.
	CommandBuffer *VulkanCommandBuffer
	// Index of the frame slot, selects sync objects and uniform regions.
	FrameSlot uint32
	// Index of the acquired swapchain image, selects the framebuffer.
	ImageIndex uint32
}
