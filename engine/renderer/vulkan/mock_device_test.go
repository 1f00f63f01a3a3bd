package vulkan

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Object kinds counted by the mock device.
const (
	kindBuffer              = "buffer"
	kindImage               = "image"
	kindImageView           = "image view"
	kindSampler             = "sampler"
	kindMemory              = "memory"
	kindCommandPool         = "command pool"
	kindCommandBuffer       = "command buffer"
	kindFence               = "fence"
	kindSemaphore           = "semaphore"
	kindShaderModule        = "shader module"
	kindDescriptorSetLayout = "descriptor set layout"
	kindDescriptorPool      = "descriptor pool"
	kindDescriptorSet       = "descriptor set"
	kindPipelineLayout      = "pipeline layout"
	kindPipeline            = "pipeline"
	kindRenderPass          = "render pass"
	kindFramebuffer         = "framebuffer"
	kindSwapchain           = "swapchain"
)

// handleSlab backs every fake handle. Handles are cgo pointers to incomplete
// types, so the garbage collector does not keep their targets alive; the slab
// lives outside the heap and each handle gets its own word.
var (
	handleSlab [1 << 16]uint64
	handleNext atomic.Uint32
)

func newHandle() unsafe.Pointer {
	n := handleNext.Add(1)
	if int(n) >= len(handleSlab) {
		panic("mock device ran out of handles")
	}
	return unsafe.Pointer(&handleSlab[n])
}

type cmdBufferState int

const (
	cmdInitial cmdBufferState = iota
	cmdRecording
	cmdExecutable
	cmdPending
)

type mockCommandBuffer struct {
	state cmdBufferState
	ops   []func()
}

type mockSubmission struct {
	buffers []vk.CommandBuffer
	fence   vk.Fence
}

type drawCall struct {
	indexCount uint32
	vertex     vk.Buffer
	index      vk.Buffer
	indexType  vk.IndexType
	pipeline   vk.Pipeline
	set        vk.DescriptorSet
	offset     uint32
}

type descriptorBind struct {
	sets    []vk.DescriptorSet
	offsets []uint32
}

// mockDevice stands in for a logical device. Memory is backed by Go slices
// and recorded commands run only once a fence wait or queue wait observes
// their submission, the way a GPU would finish them.
type mockDevice struct {
	t *testing.T

	live    map[string]int
	created map[string]int

	memory        map[vk.DeviceMemory][]byte
	memoryType    map[vk.DeviceMemory]uint32
	bufferSize    map[vk.Buffer]vk.DeviceSize
	bufferMemory  map[vk.Buffer]vk.DeviceMemory
	memoryTypeBit uint32
	mapped        map[vk.DeviceMemory]bool

	commandBuffers map[vk.CommandBuffer]*mockCommandBuffer
	fences         map[vk.Fence]bool
	pending        []mockSubmission

	swapchainImages uint32
	nextImage       uint32
	acquireResult   vk.Result
	presentResult   vk.Result

	descriptorWrites map[vk.DescriptorSet][]vk.WriteDescriptorSet

	// Results handed out by the next CreateRenderPass calls, success once empty.
	renderPassResults []vk.Result
	renderPassInfos   []vk.RenderPassCreateInfo
	pipelineInfos     []vk.GraphicsPipelineCreateInfo

	// Recorded state, updated as commands execute.
	boundVertex    vk.Buffer
	boundIndex     vk.Buffer
	boundIndexType vk.IndexType
	boundPipeline  vk.Pipeline
	boundSets      descriptorBind
	draws          []drawCall
	descriptorBind []descriptorBind
	barriers       int
	imageCopies    int
	clears         []vk.ClearRect
	renderPasses   []vk.RenderPass
	submits        int
	presents       []uint32

	violations []string
}

func newMockDevice(t *testing.T) *mockDevice {
	return &mockDevice{
		t:                t,
		live:             map[string]int{},
		created:          map[string]int{},
		memory:           map[vk.DeviceMemory][]byte{},
		memoryType:       map[vk.DeviceMemory]uint32{},
		bufferSize:       map[vk.Buffer]vk.DeviceSize{},
		bufferMemory:     map[vk.Buffer]vk.DeviceMemory{},
		memoryTypeBit:    0xFFFFFFFF,
		mapped:           map[vk.DeviceMemory]bool{},
		commandBuffers:   map[vk.CommandBuffer]*mockCommandBuffer{},
		fences:           map[vk.Fence]bool{},
		swapchainImages:  3,
		acquireResult:    vk.Success,
		presentResult:    vk.Success,
		descriptorWrites: map[vk.DescriptorSet][]vk.WriteDescriptorSet{},
	}
}

func (m *mockDevice) create(kind string) {
	m.live[kind]++
	m.created[kind]++
}

func (m *mockDevice) destroy(kind string) {
	m.live[kind]--
	if m.live[kind] < 0 {
		m.violate("destroyed more %s objects than were created", kind)
	}
}

func (m *mockDevice) violate(format string, args ...interface{}) {
	m.violations = append(m.violations, fmt.Sprintf(format, args...))
}

// liveObjects returns every kind with objects still alive.
func (m *mockDevice) liveObjects() map[string]int {
	out := map[string]int{}
	for kind, n := range m.live {
		if n != 0 {
			out[kind] = n
		}
	}
	return out
}

func (m *mockDevice) assertNoViolations(t *testing.T) {
	t.Helper()
	for _, v := range m.violations {
		t.Errorf("device misuse: %s", v)
	}
}

func (m *mockDevice) assertBalanced(t *testing.T) {
	t.Helper()
	if live := m.liveObjects(); len(live) != 0 {
		t.Errorf("leaked objects: %v", live)
	}
}

// record appends op to the command buffer being recorded.
func (m *mockDevice) record(cmd vk.CommandBuffer, op func()) {
	cb, ok := m.commandBuffers[cmd]
	if !ok {
		m.violate("recording into an unknown command buffer")
		return
	}
	if cb.state != cmdRecording {
		m.violate("recording into a command buffer in state %d", cb.state)
		return
	}
	cb.ops = append(cb.ops, op)
}

func (m *mockDevice) complete(s mockSubmission) {
	for _, handle := range s.buffers {
		cb := m.commandBuffers[handle]
		if cb == nil {
			continue
		}
		for _, op := range cb.ops {
			op()
		}
		cb.state = cmdExecutable
	}
	if s.fence != nil {
		m.fences[s.fence] = true
	}
}

func (m *mockDevice) Handle() vk.Device { return nil }

func (m *mockDevice) WaitIdle() vk.Result {
	for _, s := range m.pending {
		m.complete(s)
	}
	m.pending = nil
	return vk.Success
}

func (m *mockDevice) Destroy() {}

func (m *mockDevice) GetQueue(family uint32) vk.Queue { return vk.Queue(newHandle()) }

func (m *mockDevice) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	if fence != nil && m.fences[fence] {
		m.violate("submitted with a fence that is still signaled")
	}
	var buffers []vk.CommandBuffer
	for _, submit := range submits {
		for _, handle := range submit.PCommandBuffers {
			cb := m.commandBuffers[handle]
			if cb == nil || cb.state != cmdExecutable {
				m.violate("submitted a command buffer that was not ended")
				continue
			}
			cb.state = cmdPending
			buffers = append(buffers, handle)
		}
	}
	m.pending = append(m.pending, mockSubmission{buffers: buffers, fence: fence})
	m.submits++
	return vk.Success
}

func (m *mockDevice) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	m.presents = append(m.presents, info.PImageIndices...)
	return m.presentResult
}

func (m *mockDevice) QueueWaitIdle(queue vk.Queue) vk.Result {
	return m.WaitIdle()
}

func (m *mockDevice) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.Result) {
	buffer := vk.Buffer(newHandle())
	m.bufferSize[buffer] = info.Size
	m.create(kindBuffer)
	return buffer, vk.Success
}

func (m *mockDevice) DestroyBuffer(buffer vk.Buffer) {
	delete(m.bufferSize, buffer)
	delete(m.bufferMemory, buffer)
	m.destroy(kindBuffer)
}

func (m *mockDevice) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	return vk.MemoryRequirements{
		Size:           m.bufferSize[buffer],
		Alignment:      16,
		MemoryTypeBits: m.memoryTypeBit,
	}
}

func (m *mockDevice) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	if offset != 0 {
		m.violate("buffer bound at offset %d", offset)
	}
	m.bufferMemory[buffer] = memory
	return vk.Success
}

func (m *mockDevice) CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.Result) {
	m.create(kindImage)
	return vk.Image(newHandle()), vk.Success
}

func (m *mockDevice) DestroyImage(image vk.Image) { m.destroy(kindImage) }

func (m *mockDevice) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	return vk.MemoryRequirements{Size: 256, Alignment: 256, MemoryTypeBits: m.memoryTypeBit}
}

func (m *mockDevice) BindImageMemory(image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.Success
}

func (m *mockDevice) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, vk.Result) {
	m.create(kindImageView)
	return vk.ImageView(newHandle()), vk.Success
}

func (m *mockDevice) DestroyImageView(view vk.ImageView) { m.destroy(kindImageView) }

func (m *mockDevice) CreateSampler(info *vk.SamplerCreateInfo) (vk.Sampler, vk.Result) {
	m.create(kindSampler)
	return vk.Sampler(newHandle()), vk.Success
}

func (m *mockDevice) DestroySampler(sampler vk.Sampler) { m.destroy(kindSampler) }

func (m *mockDevice) AllocateMemory(info *vk.MemoryAllocateInfo) (vk.DeviceMemory, vk.Result) {
	memory := vk.DeviceMemory(newHandle())
	m.memory[memory] = make([]byte, info.AllocationSize)
	m.memoryType[memory] = info.MemoryTypeIndex
	m.create(kindMemory)
	return memory, vk.Success
}

func (m *mockDevice) FreeMemory(memory vk.DeviceMemory) {
	if m.mapped[memory] {
		m.violate("freed mapped memory")
	}
	delete(m.memory, memory)
	delete(m.memoryType, memory)
	m.destroy(kindMemory)
}

func (m *mockDevice) MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) (unsafe.Pointer, vk.Result) {
	data, ok := m.memory[memory]
	if !ok {
		m.violate("mapped unknown memory")
		return nil, vk.ErrorMemoryMapFailed
	}
	if offset+size > vk.DeviceSize(len(data)) || size == 0 {
		m.violate("mapped range %d+%d outside of %d bytes", offset, size, len(data))
		return nil, vk.ErrorMemoryMapFailed
	}
	if m.mapped[memory] {
		m.violate("memory mapped twice")
	}
	m.mapped[memory] = true
	return unsafe.Pointer(&data[offset]), vk.Success
}

func (m *mockDevice) UnmapMemory(memory vk.DeviceMemory) {
	if !m.mapped[memory] {
		m.violate("unmapped memory that was not mapped")
	}
	m.mapped[memory] = false
}

func (m *mockDevice) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, vk.Result) {
	m.create(kindCommandPool)
	return vk.CommandPool(newHandle()), vk.Success
}

func (m *mockDevice) DestroyCommandPool(pool vk.CommandPool) { m.destroy(kindCommandPool) }

func (m *mockDevice) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, vk.Result) {
	out := make([]vk.CommandBuffer, info.CommandBufferCount)
	for i := range out {
		out[i] = vk.CommandBuffer(newHandle())
		m.commandBuffers[out[i]] = &mockCommandBuffer{}
		m.create(kindCommandBuffer)
	}
	return out, vk.Success
}

func (m *mockDevice) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	for _, handle := range buffers {
		if cb := m.commandBuffers[handle]; cb != nil && cb.state == cmdPending {
			m.violate("freed a pending command buffer")
		}
		delete(m.commandBuffers, handle)
		m.destroy(kindCommandBuffer)
	}
}

func (m *mockDevice) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	cb := m.commandBuffers[cmd]
	if cb == nil {
		m.violate("began an unknown command buffer")
		return vk.ErrorInitializationFailed
	}
	if cb.state == cmdPending {
		m.violate("began a command buffer that is still pending")
	}
	cb.state = cmdRecording
	cb.ops = nil
	return vk.Success
}

func (m *mockDevice) EndCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	cb := m.commandBuffers[cmd]
	if cb == nil || cb.state != cmdRecording {
		m.violate("ended a command buffer that was not recording")
		return vk.ErrorInitializationFailed
	}
	cb.state = cmdExecutable
	return vk.Success
}

func (m *mockDevice) ResetCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	cb := m.commandBuffers[cmd]
	if cb == nil {
		return vk.ErrorInitializationFailed
	}
	if cb.state == cmdPending {
		m.violate("reset a command buffer that is still pending")
	}
	cb.state = cmdInitial
	cb.ops = nil
	return vk.Success
}

func (m *mockDevice) CreateFence(info *vk.FenceCreateInfo) (vk.Fence, vk.Result) {
	fence := vk.Fence(newHandle())
	m.fences[fence] = info.Flags&vk.FenceCreateFlags(vk.FenceCreateSignaledBit) != 0
	m.create(kindFence)
	return fence, vk.Success
}

func (m *mockDevice) DestroyFence(fence vk.Fence) {
	delete(m.fences, fence)
	m.destroy(kindFence)
}

// WaitForFences completes submissions in order until every fence has signaled.
func (m *mockDevice) WaitForFences(fences []vk.Fence, timeout uint64) vk.Result {
	for _, fence := range fences {
		for !m.fences[fence] {
			if len(m.pending) == 0 {
				m.violate("waited on a fence nothing will signal")
				return vk.Timeout
			}
			next := m.pending[0]
			m.pending = m.pending[1:]
			m.complete(next)
		}
	}
	return vk.Success
}

func (m *mockDevice) ResetFences(fences []vk.Fence) vk.Result {
	for _, fence := range fences {
		if !m.fences[fence] {
			m.violate("reset a fence that was not signaled")
		}
		m.fences[fence] = false
	}
	return vk.Success
}

func (m *mockDevice) CreateSemaphore(info *vk.SemaphoreCreateInfo) (vk.Semaphore, vk.Result) {
	m.create(kindSemaphore)
	return vk.Semaphore(newHandle()), vk.Success
}

func (m *mockDevice) DestroySemaphore(semaphore vk.Semaphore) { m.destroy(kindSemaphore) }

func (m *mockDevice) CreateShaderModule(info *vk.ShaderModuleCreateInfo) (vk.ShaderModule, vk.Result) {
	if info.CodeSize == 0 || int(info.CodeSize) != len(info.PCode)*4 {
		m.violate("shader module of %d bytes with %d words", info.CodeSize, len(info.PCode))
	}
	m.create(kindShaderModule)
	return vk.ShaderModule(newHandle()), vk.Success
}

func (m *mockDevice) DestroyShaderModule(module vk.ShaderModule) { m.destroy(kindShaderModule) }

func (m *mockDevice) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo) (vk.DescriptorSetLayout, vk.Result) {
	m.create(kindDescriptorSetLayout)
	return vk.DescriptorSetLayout(newHandle()), vk.Success
}

func (m *mockDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	m.destroy(kindDescriptorSetLayout)
}

func (m *mockDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo) (vk.DescriptorPool, vk.Result) {
	m.create(kindDescriptorPool)
	return vk.DescriptorPool(newHandle()), vk.Success
}

func (m *mockDevice) DestroyDescriptorPool(pool vk.DescriptorPool) { m.destroy(kindDescriptorPool) }

func (m *mockDevice) AllocateDescriptorSet(info *vk.DescriptorSetAllocateInfo) (vk.DescriptorSet, vk.Result) {
	m.create(kindDescriptorSet)
	return vk.DescriptorSet(newHandle()), vk.Success
}

func (m *mockDevice) FreeDescriptorSets(pool vk.DescriptorPool, sets []vk.DescriptorSet) vk.Result {
	for _, set := range sets {
		delete(m.descriptorWrites, set)
		m.destroy(kindDescriptorSet)
	}
	return vk.Success
}

func (m *mockDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	for _, write := range writes {
		m.descriptorWrites[write.DstSet] = append(m.descriptorWrites[write.DstSet], write)
	}
}

func (m *mockDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, vk.Result) {
	m.create(kindPipelineLayout)
	return vk.PipelineLayout(newHandle()), vk.Success
}

func (m *mockDevice) DestroyPipelineLayout(layout vk.PipelineLayout) { m.destroy(kindPipelineLayout) }

func (m *mockDevice) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, vk.Result) {
	m.create(kindPipeline)
	m.pipelineInfos = append(m.pipelineInfos, *info)
	return vk.Pipeline(newHandle()), vk.Success
}

func (m *mockDevice) DestroyPipeline(pipeline vk.Pipeline) { m.destroy(kindPipeline) }

func (m *mockDevice) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, vk.Result) {
	if len(m.renderPassResults) > 0 {
		res := m.renderPassResults[0]
		m.renderPassResults = m.renderPassResults[1:]
		if res != vk.Success {
			return vk.NullRenderPass, res
		}
	}
	m.create(kindRenderPass)
	m.renderPassInfos = append(m.renderPassInfos, *info)
	return vk.RenderPass(newHandle()), vk.Success
}

func (m *mockDevice) DestroyRenderPass(renderPass vk.RenderPass) { m.destroy(kindRenderPass) }

func (m *mockDevice) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, vk.Result) {
	m.create(kindFramebuffer)
	return vk.Framebuffer(newHandle()), vk.Success
}

func (m *mockDevice) DestroyFramebuffer(framebuffer vk.Framebuffer) { m.destroy(kindFramebuffer) }

func (m *mockDevice) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, vk.Result) {
	m.create(kindSwapchain)
	return vk.Swapchain(newHandle()), vk.Success
}

func (m *mockDevice) DestroySwapchain(swapchain vk.Swapchain) { m.destroy(kindSwapchain) }

func (m *mockDevice) GetSwapchainImages(swapchain vk.Swapchain) ([]vk.Image, vk.Result) {
	images := make([]vk.Image, m.swapchainImages)
	for i := range images {
		images[i] = vk.Image(newHandle())
	}
	return images, vk.Success
}

// AcquireNextImage hands images out round robin.
func (m *mockDevice) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	if m.acquireResult != vk.Success && m.acquireResult != vk.Suboptimal {
		return 0, m.acquireResult
	}
	index := m.nextImage % m.swapchainImages
	m.nextImage++
	return index, m.acquireResult
}

func (m *mockDevice) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	m.record(cmd, func() {
		srcData := m.memory[m.bufferMemory[src]]
		dstData := m.memory[m.bufferMemory[dst]]
		for _, region := range regions {
			copy(dstData[region.DstOffset:region.DstOffset+region.Size], srcData[region.SrcOffset:region.SrcOffset+region.Size])
		}
	})
}

func (m *mockDevice) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	m.record(cmd, func() { m.imageCopies++ })
}

func (m *mockDevice) CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, buffers []vk.BufferMemoryBarrier, images []vk.ImageMemoryBarrier) {
	m.record(cmd, func() { m.barriers++ })
}

func (m *mockDevice) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	renderPass := info.RenderPass
	m.record(cmd, func() { m.renderPasses = append(m.renderPasses, renderPass) })
}

func (m *mockDevice) CmdEndRenderPass(cmd vk.CommandBuffer) {
	m.record(cmd, func() {})
}

func (m *mockDevice) CmdBindPipeline(cmd vk.CommandBuffer, pipeline vk.Pipeline) {
	m.record(cmd, func() { m.boundPipeline = pipeline })
}

func (m *mockDevice) CmdBindDescriptorSets(cmd vk.CommandBuffer, layout vk.PipelineLayout, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	bind := descriptorBind{
		sets:    append([]vk.DescriptorSet(nil), sets...),
		offsets: append([]uint32(nil), dynamicOffsets...),
	}
	m.record(cmd, func() {
		m.boundSets = bind
		m.descriptorBind = append(m.descriptorBind, bind)
	})
}

func (m *mockDevice) CmdBindVertexBuffers(cmd vk.CommandBuffer, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	m.record(cmd, func() { m.boundVertex = buffers[0] })
}

func (m *mockDevice) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	m.record(cmd, func() {
		m.boundIndex = buffer
		m.boundIndexType = indexType
	})
}

func (m *mockDevice) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	m.record(cmd, func() {
		call := drawCall{
			indexCount: indexCount,
			vertex:     m.boundVertex,
			index:      m.boundIndex,
			indexType:  m.boundIndexType,
			pipeline:   m.boundPipeline,
		}
		if len(m.boundSets.sets) > 0 {
			call.set = m.boundSets.sets[0]
		}
		if len(m.boundSets.offsets) > 0 {
			call.offset = m.boundSets.offsets[0]
		}
		m.draws = append(m.draws, call)
	})
}

func (m *mockDevice) CmdClearAttachments(cmd vk.CommandBuffer, attachments []vk.ClearAttachment, rects []vk.ClearRect) {
	rs := append([]vk.ClearRect(nil), rects...)
	m.record(cmd, func() { m.clears = append(m.clears, rs...) })
}

// mockContext is the capability view components get in tests.
type mockContext struct {
	device   *mockDevice
	physical *PhysicalDevice
	pool     vk.CommandPool
	queue    vk.Queue
	format   vk.Format
	extent   vk.Extent2D
	frames   uint32
}

func newMockContext(t *testing.T) *mockContext {
	device := newMockDevice(t)
	pool, _ := device.CreateCommandPool(&vk.CommandPoolCreateInfo{})
	return &mockContext{
		device: device,
		physical: &PhysicalDevice{
			Name:                            "mock",
			MinUniformBufferOffsetAlignment: 256,
			MaxImageDimension2D:             4096,
			MemoryTypes: []vk.MemoryPropertyFlags{
				deviceLocal,
				hostVisibleCoherent,
			},
			DepthFormat: vk.FormatD32Sfloat,
		},
		pool:   pool,
		queue:  device.GetQueue(0),
		format: vk.FormatB8g8r8a8Srgb,
		extent: vk.Extent2D{Width: 640, Height: 480},
		frames: 2,
	}
}

// release destroys what newMockContext created.
func (c *mockContext) release() {
	c.device.DestroyCommandPool(c.pool)
}

func (c *mockContext) Device() Device                  { return c.device }
func (c *mockContext) PhysicalDevice() *PhysicalDevice { return c.physical }
func (c *mockContext) CommandPool() vk.CommandPool     { return c.pool }
func (c *mockContext) GraphicsQueue() vk.Queue         { return c.queue }
func (c *mockContext) SwapchainFormat() vk.Format      { return c.format }
func (c *mockContext) SurfaceExtent() vk.Extent2D      { return c.extent }
func (c *mockContext) FramesInFlight() uint32          { return c.frames }

// recordingCommandBuffer allocates a command buffer and begins it.
func recordingCommandBuffer(t *testing.T, ctx *mockContext) *VulkanCommandBuffer {
	t.Helper()
	cb, err := AllocateAndBeginSingleUse(ctx.device, ctx.pool)
	if err != nil {
		t.Fatalf("AllocateAndBeginSingleUse: %v", err)
	}
	return cb
}

// testSPIRV is a placeholder module: the SPIR-V magic number followed by padding words.
var testSPIRV = []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}

func TestMockHandlesStayDistinct(t *testing.T) {
	seen := map[unsafe.Pointer]bool{}
	for i := 0; i < 512; i++ {
		handle := newHandle()
		if seen[handle] {
			t.Fatalf("handle %d repeats an earlier one", i)
		}
		seen[handle] = true
		// Churn the heap between handles.
		_ = make([]byte, 1024)
		if i%128 == 0 {
			runtime.GC()
		}
	}
}
