package vulkan

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

// Vertex matches the vertex shader inputs: position, color and texture coordinate.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

const (
	vertexPositionOffset = 0
	vertexColorOffset    = 3 * 4
	vertexTexCoordOffset = 6 * 4
	// VertexStride is the size of one packed vertex in bytes.
	VertexStride = 8 * 4
)

func vertexAttributeDescriptions() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   vertexPositionOffset,
		},
		{
			Binding:  0,
			Location: 1,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   vertexColorOffset,
		},
		{
			Binding:  0,
			Location: 2,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   vertexTexCoordOffset,
		},
	}
}

func putFloats(dst []byte, values ...float32) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// VertexBytes packs vertices the way the vertex input state describes them.
func VertexBytes(vertices []Vertex) []byte {
	out := make([]byte, 0, len(vertices)*VertexStride)
	for _, v := range vertices {
		out = putFloats(out, v.Position[:]...)
		out = putFloats(out, v.Color[:]...)
		out = putFloats(out, v.TexCoord[:]...)
	}
	return out
}

// IndexBytes packs indices as uint16 when every index fits, uint32 otherwise.
func IndexBytes(indices []uint32) ([]byte, vk.IndexType) {
	wide := false
	for _, index := range indices {
		if index > math.MaxUint16 {
			wide = true
			break
		}
	}
	if wide {
		out := make([]byte, 0, len(indices)*4)
		for _, index := range indices {
			out = binary.LittleEndian.AppendUint32(out, index)
		}
		return out, vk.IndexTypeUint32
	}
	out := make([]byte, 0, len(indices)*2)
	for _, index := range indices {
		out = binary.LittleEndian.AppendUint16(out, uint16(index))
	}
	return out, vk.IndexTypeUint16
}
