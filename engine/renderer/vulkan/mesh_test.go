package vulkan

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

func testQuad() ([]Vertex, []uint32) {
	vertices := []Vertex{
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, Color: mgl32.Vec3{1, 0, 0}, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, Color: mgl32.Vec3{0, 1, 0}, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{0.5, 0.5, 0}, Color: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, Color: mgl32.Vec3{1, 1, 1}, TexCoord: mgl32.Vec2{0, 1}},
	}
	return vertices, []uint32{0, 1, 2, 2, 3, 0}
}

func TestIndexBytes(t *testing.T) {
	tests := []struct {
		name     string
		indices  []uint32
		wantType vk.IndexType
		wantLen  int
	}{
		{"small", []uint32{0, 1, 2}, vk.IndexTypeUint16, 6},
		{"edge of uint16", []uint32{0, 65535}, vk.IndexTypeUint16, 4},
		{"wide", []uint32{0, 65536}, vk.IndexTypeUint32, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, indexType := IndexBytes(tt.indices)
			if indexType != tt.wantType || len(data) != tt.wantLen {
				t.Errorf("IndexBytes() = %d bytes of type %d, want %d bytes of type %d", len(data), indexType, tt.wantLen, tt.wantType)
			}
		})
	}
}

func TestVertexBytes(t *testing.T) {
	vertices, _ := testQuad()
	data := VertexBytes(vertices)
	if len(data) != len(vertices)*VertexStride {
		t.Fatalf("%d bytes for %d vertices", len(data), len(vertices))
	}
	// Second vertex, x of position.
	want := VertexBytes([]Vertex{{Position: mgl32.Vec3{0.5, 0, 0}}})[:4]
	if !bytes.Equal(data[VertexStride:VertexStride+4], want) {
		t.Error("vertices are not packed at the vertex stride")
	}
}

func TestMeshUpload(t *testing.T) {
	ctx := newMockContext(t)
	vertices, indices := testQuad()

	mesh, err := NewMesh(ctx, vertices, indices)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	if mesh.IndexCount() != 6 || mesh.VertexCount != 4 {
		t.Errorf("mesh holds %d indices and %d vertices", mesh.IndexCount(), mesh.VertexCount)
	}
	if mesh.IndexType != vk.IndexTypeUint16 {
		t.Errorf("IndexType = %d, want uint16", mesh.IndexType)
	}

	gotVertices, err := ReadbackViaStaging(ctx, mesh.VertexBuffer, mesh.VertexBuffer.Size)
	if err != nil {
		t.Fatalf("read vertices: %v", err)
	}
	if !bytes.Equal(gotVertices, VertexBytes(vertices)) {
		t.Error("vertex buffer does not hold the packed vertices")
	}
	gotIndices, err := ReadbackViaStaging(ctx, mesh.IndexBuffer, mesh.IndexBuffer.Size)
	if err != nil {
		t.Fatalf("read indices: %v", err)
	}
	wantIndices, _ := IndexBytes(indices)
	if !bytes.Equal(gotIndices, wantIndices) {
		t.Error("index buffer does not hold the packed indices")
	}

	// Only the two device local buffers outlive the upload.
	if ctx.device.live[kindBuffer] != 2 {
		t.Errorf("%d buffers alive, want 2", ctx.device.live[kindBuffer])
	}

	mesh.Destroy()
	mesh.Destroy()
	ctx.release()
	ctx.device.assertBalanced(t)
	ctx.device.assertNoViolations(t)
}

func TestMeshTwice(t *testing.T) {
	ctx := newMockContext(t)
	vertices, indices := testQuad()
	for i := 0; i < 2; i++ {
		mesh, err := NewMesh(ctx, vertices, indices)
		if err != nil {
			t.Fatalf("NewMesh: %v", err)
		}
		mesh.Destroy()
	}
	if ctx.device.created[kindBuffer] != 6 {
		t.Errorf("created %d buffers, want two meshes of three", ctx.device.created[kindBuffer])
	}
	ctx.release()
	ctx.device.assertBalanced(t)
}

func TestMeshRejectsEmptyGeometry(t *testing.T) {
	ctx := newMockContext(t)
	vertices, indices := testQuad()
	if _, err := NewMesh(ctx, nil, indices); err == nil {
		t.Error("expected a mesh without vertices to fail")
	}
	if _, err := NewMesh(ctx, vertices, nil); err == nil {
		t.Error("expected a mesh without indices to fail")
	}
	ctx.release()
	ctx.device.assertBalanced(t)
}
