package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Device is the logical device as seen by the rest of the backend. Every call
// that needs a VkDevice, a queue or a command buffer goes through it so the
// frame protocol and the upload paths can run against a recording device in tests.
type Device interface {
	Handle() vk.Device
	WaitIdle() vk.Result
	Destroy()

	GetQueue(family uint32) vk.Queue
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result
	QueueWaitIdle(queue vk.Queue) vk.Result

	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result)
	DestroyBuffer(buffer vk.Buffer)
	BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result

	CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result)
	DestroyImage(image vk.Image)
	ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements
	BindImageMemory(image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result
	CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result)
	DestroyImageView(view vk.ImageView)
	CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result)
	DestroySampler(sampler vk.Sampler)

	AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result)
	FreeMemory(memory vk.DeviceMemory)
	MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, vk.Result)
	UnmapMemory(memory vk.DeviceMemory)

	CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result)
	DestroyCommandPool(pool vk.CommandPool)
	AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result)
	FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer)
	BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result
	EndCommandBuffer(cmd vk.CommandBuffer) vk.Result
	ResetCommandBuffer(cmd vk.CommandBuffer) vk.Result

	CreateFence(info *vk.FenceCreateInfo) (vk.Fence, vk.Result)
	DestroyFence(fence vk.Fence)
	WaitForFences(fences []vk.Fence, timeout uint64) vk.Result
	ResetFences(fences []vk.Fence) vk.Result
	CreateSemaphore(info *vk.SemaphoreCreateInfo) (vk.Semaphore, vk.Result)
	DestroySemaphore(semaphore vk.Semaphore)

	CreateShaderModule(info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result)
	DestroyShaderModule(module vk.ShaderModule)
	CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result)
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result)
	DestroyDescriptorPool(pool vk.DescriptorPool)
	AllocateDescriptorSet(info *vk.DescriptorSetAllocateInfo) (vk.DescriptorSet, vk.Result)
	FreeDescriptorSets(pool vk.DescriptorPool, sets []vk.DescriptorSet) vk.Result
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)
	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result)
	DestroyPipeline(pipeline vk.Pipeline)
	CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result)
	DestroyRenderPass(renderPass vk.RenderPass)
	CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result)
	DestroyFramebuffer(framebuffer vk.Framebuffer)

	CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result)
	DestroySwapchain(swapchain vk.Swapchain)
	GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result)
	AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result)

	CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
	CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy)
	CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier)
	CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo)
	CmdEndRenderPass(cmd vk.CommandBuffer)
	CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline)
	CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet, dynamicOffsets []uint32)
	CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)
	CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	CmdClearAttachments(cmd vk.CommandBuffer, attachments []vk.ClearAttachment, rects []vk.ClearRect)
}

// vkDevice forwards every call to the driver through the goki bindings.
type vkDevice struct {
	handle    vk.Device
	allocator *vk.AllocationCallbacks
}

func newVkDevice(handle vk.Device) *vkDevice {
	return &vkDevice{handle: handle}
}

func (d *vkDevice) Handle() vk.Device { return d.handle }
func (d *vkDevice) WaitIdle() vk.Result { return vk.DeviceWaitIdle(d.handle) }

func (d *vkDevice) Destroy() {
	if d.handle != nil {
		vk.DestroyDevice(d.handle, d.allocator)
		d.handle = nil
	}
}

func (d *vkDevice) GetQueue(family uint32) vk.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(d.handle, family, 0, &queue)
	return queue
}

func (d *vkDevice) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (d *vkDevice) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

func (d *vkDevice) QueueWaitIdle(queue vk.Queue) vk.Result {
	return vk.QueueWaitIdle(queue)
}

func (d *vkDevice) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	var buffer vk.Buffer
	res := vk.CreateBuffer(d.handle, info, d.allocator, &buffer)
	return buffer, res
}

func (d *vkDevice) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.handle, buffer, d.allocator)
}

func (d *vkDevice) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.handle, buffer, &requirements)
	requirements.Deref()
	return requirements
}

func (d *vkDevice) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.BindBufferMemory(d.handle, buffer, memory, offset)
}

func (d *vkDevice) CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	var image vk.Image
	res := vk.CreateImage(d.handle, info, d.allocator, &image)
	return image, res
}

func (d *vkDevice) DestroyImage(image vk.Image) {
	vk.DestroyImage(d.handle, image, d.allocator)
}

func (d *vkDevice) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.handle, image, &requirements)
	requirements.Deref()
	return requirements
}

func (d *vkDevice) BindImageMemory(image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.BindImageMemory(d.handle, image, memory, offset)
}

func (d *vkDevice) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	var view vk.ImageView
	res := vk.CreateImageView(d.handle, info, d.allocator, &view)
	return view, res
}

func (d *vkDevice) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.handle, view, d.allocator)
}

func (d *vkDevice) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result) {
	var sampler vk.Sampler
	res := vk.CreateSampler(d.handle, info, d.allocator, &sampler)
	return sampler, res
}

func (d *vkDevice) DestroySampler(sampler vk.Sampler) {
	vk.DestroySampler(d.handle, sampler, d.allocator)
}

func (d *vkDevice) AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result) {
	var memory vk.DeviceMemory
	res := vk.AllocateMemory(d.handle, info, d.allocator, &memory)
	return memory, res
}

func (d *vkDevice) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.handle, memory, d.allocator)
}

func (d *vkDevice) MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	var data unsafe.Pointer
	res := vk.MapMemory(d.handle, memory, offset, size, 0, &data)
	return data, res
}

func (d *vkDevice) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(d.handle, memory)
}

func (d *vkDevice) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	var pool vk.CommandPool
	res := vk.CreateCommandPool(d.handle, info, d.allocator, &pool)
	return pool, res
}

func (d *vkDevice) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(d.handle, pool, d.allocator)
}

func (d *vkDevice) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	res := vk.AllocateCommandBuffers(d.handle, info, buffers)
	return buffers, res
}

func (d *vkDevice) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	vk.FreeCommandBuffers(d.handle, pool, uint32(len(buffers)), buffers)
}

func (d *vkDevice) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	return vk.BeginCommandBuffer(cmd, info)
}

func (d *vkDevice) EndCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return vk.EndCommandBuffer(cmd)
}

func (d *vkDevice) ResetCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return vk.ResetCommandBuffer(cmd, 0)
}

func (d *vkDevice) CreateFence(info *vk.FenceCreateInfo) (vk.Fence, vk.Result) {
	var fence vk.Fence
	res := vk.CreateFence(d.handle, info, d.allocator, &fence)
	return fence, res
}

func (d *vkDevice) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(d.handle, fence, d.allocator)
}

func (d *vkDevice) WaitForFences(fences []vk.Fence, timeout uint64) vk.Result {
	return vk.WaitForFences(d.handle, uint32(len(fences)), fences, vk.True, timeout)
}

func (d *vkDevice) ResetFences(fences []vk.Fence) vk.Result {
	return vk.ResetFences(d.handle, uint32(len(fences)), fences)
}

func (d *vkDevice) CreateSemaphore(info *vk.SemaphoreCreateInfo) (vk.Semaphore, vk.Result) {
	var semaphore vk.Semaphore
	res := vk.CreateSemaphore(d.handle, info, d.allocator, &semaphore)
	return semaphore, res
}

func (d *vkDevice) DestroySemaphore(semaphore vk.Semaphore) {
	vk.DestroySemaphore(d.handle, semaphore, d.allocator)
}

func (d *vkDevice) CreateShaderModule(info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result) {
	var module vk.ShaderModule
	res := vk.CreateShaderModule(d.handle, info, d.allocator, &module)
	return module, res
}

func (d *vkDevice) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(d.handle, module, d.allocator)
}

func (d *vkDevice) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result) {
	var layout vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(d.handle, info, d.allocator, &layout)
	return layout, res
}

func (d *vkDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.handle, layout, d.allocator)
}

func (d *vkDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	var pool vk.DescriptorPool
	res := vk.CreateDescriptorPool(d.handle, info, d.allocator, &pool)
	return pool, res
}

func (d *vkDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.handle, pool, d.allocator)
}

func (d *vkDevice) AllocateDescriptorSet(info *vk.DescriptorSetAllocateInfo) (vk.DescriptorSet, vk.Result) {
	var set vk.DescriptorSet
	res := vk.AllocateDescriptorSets(d.handle, info, &set)
	return set, res
}

func (d *vkDevice) FreeDescriptorSets(pool vk.DescriptorPool, sets []vk.DescriptorSet) vk.Result {
	if len(sets) == 0 {
		return vk.Success
	}
	return vk.FreeDescriptorSets(d.handle, pool, uint32(len(sets)), &sets[0])
}

func (d *vkDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(d.handle, uint32(len(writes)), writes, 0, nil)
}

func (d *vkDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(d.handle, info, d.allocator, &layout)
	return layout, res
}

func (d *vkDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.handle, layout, d.allocator)
}

func (d *vkDevice) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	pipelines := make([]vk.Pipeline, 1)
	res := vk.CreateGraphicsPipelines(d.handle, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{*info}, d.allocator, pipelines)
	return pipelines[0], res
}

func (d *vkDevice) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(d.handle, pipeline, d.allocator)
}

func (d *vkDevice) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(d.handle, info, d.allocator, &renderPass)
	return renderPass, res
}

func (d *vkDevice) DestroyRenderPass(renderPass vk.RenderPass) {
	vk.DestroyRenderPass(d.handle, renderPass, d.allocator)
}

func (d *vkDevice) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	var framebuffer vk.Framebuffer
	res := vk.CreateFramebuffer(d.handle, info, d.allocator, &framebuffer)
	return framebuffer, res
}

func (d *vkDevice) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(d.handle, framebuffer, d.allocator)
}

func (d *vkDevice) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	var swapchain vk.Swapchain
	res := vk.CreateSwapchain(d.handle, info, d.allocator, &swapchain)
	return swapchain, res
}

func (d *vkDevice) DestroySwapchain(swapchain vk.Swapchain) {
	vk.DestroySwapchain(d.handle, swapchain, d.allocator)
}

func (d *vkDevice) GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	var count uint32
	if res := vk.GetSwapchainImages(d.handle, swapchain, &count, nil); res != vk.Success {
		return nil, res
	}
	images := make([]vk.Image, count)
	res := vk.GetSwapchainImages(d.handle, swapchain, &count, images)
	return images[:count], res
}

func (d *vkDevice) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	var index uint32
	res := vk.AcquireNextImage(d.handle, swapchain, timeout, semaphore, vk.NullFence, &index)
	return index, res
}

func (d *vkDevice) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(cmd, src, dst, uint32(len(regions)), regions)
}

func (d *vkDevice) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cmd, src, dst, layout, uint32(len(regions)), regions)
}

func (d *vkDevice) CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, uint32(len(buffers)), buffers, uint32(len(images)), images)
}

func (d *vkDevice) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(cmd, info, vk.SubpassContentsInline)
}

func (d *vkDevice) CmdEndRenderPass(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

func (d *vkDevice) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, pipeline)
}

func (d *vkDevice) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, layout, 0, uint32(len(sets)), sets, uint32(len(dynamicOffsets)), dynamicOffsets)
}

func (d *vkDevice) CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(cmd, 0, uint32(len(buffers)), buffers, offsets)
}

func (d *vkDevice) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cmd, buffer, offset, indexType)
}

func (d *vkDevice) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cmd, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (d *vkDevice) CmdClearAttachments(cmd vk.CommandBuffer, attachments []vk.ClearAttachment, rects []vk.ClearRect) {
	vk.CmdClearAttachments(cmd, uint32(len(attachments)), attachments, uint32(len(rects)), rects)
}
