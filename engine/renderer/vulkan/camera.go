package vulkan

import (
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
)

type Camera struct {
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Up        mgl32.Vec3

	FovDegrees float32
	Near       float32
	Far        float32
}

// DefaultCamera sits slightly above the origin looking down at it.
func DefaultCamera() Camera {
	return Camera{
		Position:   mgl32.Vec3{0, 1, 3},
		Direction:  mgl32.Vec3{0, -1, -2},
		Up:         mgl32.Vec3{0, 1, 0},
		FovDegrees: 45.0,
		Near:       0.01,
		Far:        100.0,
	}
}

func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Direction), c.Up)
}

// Projection returns a perspective projection with Y pointing down, as
// Vulkan clip space expects.
func (c Camera) Projection(extentWidth, extentHeight uint32) mgl32.Mat4 {
	aspect := float32(1)
	if extentHeight != 0 {
		aspect = float32(extentWidth) / float32(extentHeight)
	}
	projection := mgl32.Perspective(mgl32.DegToRad(c.FovDegrees), aspect, c.Near, c.Far)
	projection[5] *= -1
	return projection
}

// Uniforms combines the camera with a model matrix.
func (c Camera) Uniforms(model mgl32.Mat4, extent vk.Extent2D) UniformBlock {
	return UniformBlock{
		Model:      model,
		View:       c.View(),
		Projection: c.Projection(extent.Width, extent.Height),
	}
}
