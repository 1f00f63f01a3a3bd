package engine

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/nou/engine/renderer/vulkan"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnScene           Scene
}

type Initialize func() error
type Update func(deltaTime float64) error

// Scene describes what to draw. It is called once, on the first frame.
type Scene func() ([]SceneBatch, error)

// Geometry is CPU side mesh data.
type Geometry struct {
	Name     string
	Vertices []vulkan.Vertex
	Indices  []uint32
}

// SceneBatch is one material and the geometry drawn with it.
type SceneBatch struct {
	Name     string
	Geometry []Geometry
	// Sample the configured texture, or a checkerboard when there is none.
	// Untextured batches show their vertex colors.
	Textured bool
	// Placement before the spin is applied.
	Transform mgl32.Mat4
	// Radians per second around SpinAxis.
	SpinRate float32
	SpinAxis mgl32.Vec3
}
