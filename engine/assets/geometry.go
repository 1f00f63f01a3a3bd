package assets

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/nou/engine/renderer/vulkan"
)

// Quad is a unit square in the XY plane facing +Z.
func Quad() ([]vulkan.Vertex, []uint32) {
	vertices := []vulkan.Vertex{
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, Color: mgl32.Vec3{1, 0, 0}, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, Color: mgl32.Vec3{0, 1, 0}, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{0.5, 0.5, 0}, Color: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, Color: mgl32.Vec3{1, 1, 1}, TexCoord: mgl32.Vec2{1, 1}},
	}
	return vertices, []uint32{0, 1, 2, 2, 3, 0}
}

type cubeFace struct {
	normal mgl32.Vec3
	// Two axes spanning the face, chosen so that u x v == normal.
	u, v mgl32.Vec3
}

var cubeFaces = []cubeFace{
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
}

// Cube is an axis aligned cube of the given edge length centered on the
// origin. Every face has its own four vertices so texture coordinates do
// not bleed across edges; the vertex color encodes the face normal.
func Cube(size float32) ([]vulkan.Vertex, []uint32) {
	half := size / 2
	vertices := make([]vulkan.Vertex, 0, len(cubeFaces)*4)
	indices := make([]uint32, 0, len(cubeFaces)*6)

	corners := [4]mgl32.Vec2{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for i, face := range cubeFaces {
		center := face.normal.Mul(half)
		color := face.normal.Add(mgl32.Vec3{1, 1, 1}).Mul(0.5)
		for _, c := range corners {
			position := center.Add(face.u.Mul(c.X() * half)).Add(face.v.Mul(c.Y() * half))
			vertices = append(vertices, vulkan.Vertex{
				Position: position,
				Color:    color,
				TexCoord: mgl32.Vec2{(c.X() + 1) / 2, (1 - c.Y()) / 2},
			})
		}
		base := uint32(i * 4)
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return vertices, indices
}
