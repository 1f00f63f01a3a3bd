package testbed

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/nou/engine"
	"github.com/spaghettifunk/nou/engine/assets"
	"github.com/spaghettifunk/nou/engine/core"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	elapsed float64
	frames  uint64
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnScene = tg.Scene

	return tg
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime
	state.frames++
	return nil
}

// Scene is a textured spinning quad next to a slower, vertex colored cube.
func (g *TestGame) Scene() ([]engine.SceneBatch, error) {
	quadVertices, quadIndices := assets.Quad()
	cubeVertices, cubeIndices := assets.Cube(0.6)

	return []engine.SceneBatch{
		{
			Name:      "textured_quad",
			Geometry:  []engine.Geometry{{Name: "quad", Vertices: quadVertices, Indices: quadIndices}},
			Textured:  true,
			Transform: mgl32.Translate3D(-0.6, 0, 0),
			SpinRate:  math.Pi / 2,
			SpinAxis:  mgl32.Vec3{0, 0, 1},
		},
		{
			Name:      "colored_cube",
			Geometry:  []engine.Geometry{{Name: "cube", Vertices: cubeVertices, Indices: cubeIndices}},
			Transform: mgl32.Translate3D(0.6, 0, 0),
			SpinRate:  math.Pi / 4,
			SpinAxis:  mgl32.Vec3{1, 1, 0},
		},
	}, nil
}
