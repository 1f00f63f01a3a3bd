package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	nmath "github.com/spaghettifunk/nou/engine/math"
)

// Mesh is indexed geometry living in device local memory.
type Mesh struct {
	ID           uuid.UUID
	VertexBuffer *GPUBuffer
	IndexBuffer  *GPUBuffer
	VertexCount  uint32
	indexCount   uint32
	IndexType    vk.IndexType

	device Device
}

// NewMesh uploads vertices and indices through a single staging buffer sized
// for the larger of the two.
func NewMesh(ctx Context, vertices []Vertex, indices []uint32) (*Mesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, errors.Newf("mesh needs vertices and indices, got %d and %d", len(vertices), len(indices))
	}

	vertexData := VertexBytes(vertices)
	indexData, indexType := IndexBytes(indices)

	m := &Mesh{
		ID:          uuid.New(),
		VertexCount: uint32(len(vertices)),
		indexCount:  uint32(len(indices)),
		IndexType:   indexType,
		device:      ctx.Device(),
	}

	var err error
	m.VertexBuffer, err = AllocateBuffer(ctx, vk.DeviceSize(len(vertexData)),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit), deviceLocal)
	if err != nil {
		return nil, err
	}
	m.IndexBuffer, err = AllocateBuffer(ctx, vk.DeviceSize(len(indexData)),
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit), deviceLocal)
	if err != nil {
		m.Destroy()
		return nil, err
	}

	stagingSize := nmath.Max(len(vertexData), len(indexData))
	staging, err := newStagingBuffer(ctx, vk.DeviceSize(stagingSize), vk.BufferUsageTransferSrcBit)
	if err != nil {
		m.Destroy()
		return nil, err
	}
	defer staging.Destroy()

	// Each upload waits for the queue, so the staging buffer is free again afterwards.
	if err := uploadThrough(ctx, staging, m.VertexBuffer, vertexData); err != nil {
		m.Destroy()
		return nil, errors.Wrap(err, "upload vertices")
	}
	if err := uploadThrough(ctx, staging, m.IndexBuffer, indexData); err != nil {
		m.Destroy()
		return nil, errors.Wrap(err, "upload indices")
	}
	return m, nil
}

func (m *Mesh) IndexCount() uint32 {
	return m.indexCount
}

// Bind binds the vertex buffer at binding 0 and the index buffer.
func (m *Mesh) Bind(cmd *VulkanCommandBuffer) {
	m.device.CmdBindVertexBuffers(cmd.Handle, []vk.Buffer{m.VertexBuffer.Handle}, []vk.DeviceSize{0})
	m.device.CmdBindIndexBuffer(cmd.Handle, m.IndexBuffer.Handle, 0, m.IndexType)
}

// Draw records one instance of every index. The mesh must be bound.
func (m *Mesh) Draw(cmd *VulkanCommandBuffer) {
	m.device.CmdDrawIndexed(cmd.Handle, m.indexCount, 1, 0, 0, 0)
}

func (m *Mesh) Destroy() {
	if m.VertexBuffer != nil {
		m.VertexBuffer.Destroy()
		m.VertexBuffer = nil
	}
	if m.IndexBuffer != nil {
		m.IndexBuffer.Destroy()
		m.IndexBuffer = nil
	}
	m.indexCount = 0
}
