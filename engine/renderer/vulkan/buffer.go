package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nou/engine/core"
)

const (
	hostVisibleCoherent = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	deviceLocal         = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)

// GPUBuffer is a buffer bound at offset 0 to a dedicated memory allocation.
type GPUBuffer struct {
	Handle     vk.Buffer
	Memory     vk.DeviceMemory
	Size       vk.DeviceSize
	Usage      vk.BufferUsageFlags
	Properties vk.MemoryPropertyFlags

	device Device
}

// AllocateBuffer creates a buffer, allocates memory of the first type matching
// properties and binds the two together.
func AllocateBuffer(ctx Context, size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*GPUBuffer, error) {
	device := ctx.Device()

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	handle, res := device.CreateBuffer(&bufferInfo)
	if err := check(res, "create buffer of %d bytes", size); err != nil {
		return nil, err
	}

	requirements := device.BufferMemoryRequirements(handle)
	memoryType, err := FindMemoryIndex(ctx.PhysicalDevice(), requirements.MemoryTypeBits, properties)
	if err != nil {
		device.DestroyBuffer(handle)
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: memoryType,
	}
	memory, res := device.AllocateMemory(&allocInfo)
	if err := check(res, "allocate %d bytes of buffer memory", requirements.Size); err != nil {
		device.DestroyBuffer(handle)
		return nil, err
	}

	if err := check(device.BindBufferMemory(handle, memory, 0), "bind buffer memory"); err != nil {
		device.FreeMemory(memory)
		device.DestroyBuffer(handle)
		return nil, err
	}

	return &GPUBuffer{
		Handle:     handle,
		Memory:     memory,
		Size:       size,
		Usage:      usage,
		Properties: properties,
		device:     device,
	}, nil
}

func (b *GPUBuffer) HostVisible() bool {
	return b.Properties&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
}

// Write copies data into the buffer memory at offset. Only host visible
// buffers accept writes; everything else must go through a staging buffer.
func (b *GPUBuffer) Write(offset vk.DeviceSize, data []byte) error {
	if !b.HostVisible() {
		return errors.WithStack(core.ErrNotHostVisible)
	}
	if offset+vk.DeviceSize(len(data)) > b.Size {
		return errors.Newf("write of %d bytes at %d overflows buffer of %d bytes", len(data), offset, b.Size)
	}
	if len(data) == 0 {
		return nil
	}
	ptr, res := b.device.MapMemory(b.Memory, offset, vk.DeviceSize(len(data)))
	if err := check(res, "map buffer memory"); err != nil {
		return err
	}
	vk.Memcopy(ptr, data)
	b.device.UnmapMemory(b.Memory)
	return nil
}

// Read copies size bytes at offset out of a host visible buffer.
func (b *GPUBuffer) Read(offset, size vk.DeviceSize) ([]byte, error) {
	if !b.HostVisible() {
		return nil, errors.WithStack(core.ErrNotHostVisible)
	}
	if offset+size > b.Size {
		return nil, errors.Newf("read of %d bytes at %d overflows buffer of %d bytes", size, offset, b.Size)
	}
	out := make([]byte, size)
	if size == 0 {
		return out, nil
	}
	ptr, res := b.device.MapMemory(b.Memory, offset, size)
	if err := check(res, "map buffer memory"); err != nil {
		return nil, err
	}
	copy(out, unsafe.Slice((*byte)(ptr), int(size)))
	b.device.UnmapMemory(b.Memory)
	return out, nil
}

func (b *GPUBuffer) Destroy() {
	if b.device == nil {
		return
	}
	if b.Handle != vk.NullBuffer {
		b.device.DestroyBuffer(b.Handle)
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		b.device.FreeMemory(b.Memory)
		b.Memory = vk.NullDeviceMemory
	}
	b.Size = 0
}

// RecordCopy records a copy of size bytes from b into dst.
func (b *GPUBuffer) RecordCopy(cmd *VulkanCommandBuffer, dst *GPUBuffer, srcOffset, dstOffset, size vk.DeviceSize) {
	b.device.CmdCopyBuffer(cmd.Handle, b.Handle, dst.Handle, []vk.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
}

func newStagingBuffer(ctx Context, size vk.DeviceSize, usage vk.BufferUsageFlagBits) (*GPUBuffer, error) {
	return AllocateBuffer(ctx, size, vk.BufferUsageFlags(usage), hostVisibleCoherent)
}

// UploadViaStaging copies data into dst through a temporary host visible
// buffer. It blocks until the graphics queue is idle.
func UploadViaStaging(ctx Context, dst *GPUBuffer, data []byte) error {
	if vk.DeviceSize(len(data)) > dst.Size {
		return errors.Newf("upload of %d bytes does not fit buffer of %d bytes", len(data), dst.Size)
	}
	staging, err := newStagingBuffer(ctx, vk.DeviceSize(len(data)), vk.BufferUsageTransferSrcBit)
	if err != nil {
		return err
	}
	defer staging.Destroy()
	return uploadThrough(ctx, staging, dst, data)
}

// uploadThrough reuses an existing staging buffer for one upload.
func uploadThrough(ctx Context, staging, dst *GPUBuffer, data []byte) error {
	if err := staging.Write(0, data); err != nil {
		return err
	}
	return SubmitOneShot(ctx, func(cmd *VulkanCommandBuffer) error {
		staging.RecordCopy(cmd, dst, 0, 0, vk.DeviceSize(len(data)))
		return nil
	})
}

// ReadbackViaStaging copies size bytes of src into a temporary host visible
// buffer and returns them.
func ReadbackViaStaging(ctx Context, src *GPUBuffer, size vk.DeviceSize) ([]byte, error) {
	staging, err := newStagingBuffer(ctx, size, vk.BufferUsageTransferDstBit)
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	if err := SubmitOneShot(ctx, func(cmd *VulkanCommandBuffer) error {
		src.RecordCopy(cmd, staging, 0, 0, size)
		return nil
	}); err != nil {
		return nil, err
	}
	return staging.Read(0, size)
}
