package assets

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestQuad(t *testing.T) {
	vertices, indices := Quad()
	if len(vertices) != 4 || len(indices) != 6 {
		t.Fatalf("quad has %d vertices and %d indices", len(vertices), len(indices))
	}
	for _, index := range indices {
		if int(index) >= len(vertices) {
			t.Errorf("index %d out of range", index)
		}
	}
}

func TestCube(t *testing.T) {
	vertices, indices := Cube(2)
	if len(vertices) != 24 || len(indices) != 36 {
		t.Fatalf("cube has %d vertices and %d indices", len(vertices), len(indices))
	}
	for _, v := range vertices {
		for axis := 0; axis < 3; axis++ {
			if c := v.Position[axis]; c != 1 && c != -1 {
				t.Fatalf("vertex %v is not on a corner of the cube", v.Position)
			}
		}
	}
	// Every triangle winds counter-clockwise seen from outside the cube.
	for i := 0; i < len(indices); i += 3 {
		a, b, c := vertices[indices[i]].Position, vertices[indices[i+1]].Position, vertices[indices[i+2]].Position
		normal := b.Sub(a).Cross(c.Sub(a))
		center := a.Add(b).Add(c).Mul(1.0 / 3.0)
		if normal.Dot(center) <= 0 {
			t.Errorf("triangle %d faces inward", i/3)
		}
	}
	if vertices[0].TexCoord != (mgl32.Vec2{0, 1}) {
		t.Errorf("first corner uv = %v", vertices[0].TexCoord)
	}
}
