package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/nou/engine/assets"
	"github.com/spaghettifunk/nou/engine/core"
	"github.com/spaghettifunk/nou/engine/renderer/vulkan"
)

const (
	checkerboardSize  uint32 = 256
	checkerboardCells uint32 = 8
)

// sceneBatch is the GPU side of a SceneBatch.
type sceneBatch struct {
	config   SceneBatch
	material *vulkan.Material
	meshes   []*vulkan.Mesh
	angle    float32
}

// advance turns the batch by its spin rate and returns the model matrix.
func (b *sceneBatch) advance(elapsed float64) mgl32.Mat4 {
	b.angle += b.config.SpinRate * float32(elapsed)
	if b.config.SpinRate == 0 || b.config.SpinAxis.Len() == 0 {
		return b.transform()
	}
	return b.transform().Mul4(mgl32.HomogRotate3D(b.angle, b.config.SpinAxis.Normalize()))
}

func (b *sceneBatch) transform() mgl32.Mat4 {
	if b.config.Transform == (mgl32.Mat4{}) {
		return mgl32.Ident4()
	}
	return b.config.Transform
}

// buildScene uploads everything the game describes. Objects created before
// a failure are destroyed again.
func (e *Engine) buildScene() error {
	batches, err := e.gameInstance.FnScene()
	if err != nil {
		return errors.Wrap(err, "describe scene")
	}

	config := e.gameInstance.ApplicationConfig
	shaders, err := assets.ReadShaderPair(config.Shaders.Vertex, config.Shaders.Fragment)
	if err != nil {
		return err
	}

	var image *assets.Image
	for _, desc := range batches {
		if desc.Textured {
			image = e.loadTextureImage()
			break
		}
	}

	scene := make([]*sceneBatch, 0, len(batches))
	for _, desc := range batches {
		batch, err := e.uploadBatch(desc, shaders, image)
		if err != nil {
			e.destroyScene(scene)
			return err
		}
		scene = append(scene, batch)
	}
	e.scene = scene
	core.LogInfo("Scene built: %d batches, %d live GPU objects.", len(scene), e.registry.Len())
	return nil
}

func (e *Engine) uploadBatch(desc SceneBatch, shaders assets.ShaderPair, image *assets.Image) (*sceneBatch, error) {
	batch := &sceneBatch{config: desc}

	// The shaders always sample binding 1, so untextured batches get a white pixel.
	if !desc.Textured {
		image = assets.White()
	}
	texture, err := vulkan.NewTexture(e.backend, image.Width, image.Height, image.Pixels)
	if err != nil {
		return nil, errors.Wrapf(err, "texture for %q", desc.Name)
	}

	material, err := vulkan.NewMaterial(e.backend, e.backend.RenderPass(), e.backend.Descriptors(), vulkan.MaterialConfig{
		Name:         desc.Name,
		VertexCode:   shaders.Vertex,
		FragmentCode: shaders.Fragment,
		Texture:      texture,
	})
	// The material owns the texture from here on, even when creation fails.
	if err != nil {
		return nil, err
	}
	batch.material = material
	e.registry.Track(material.ID, "material "+desc.Name)

	for _, geometry := range desc.Geometry {
		mesh, err := vulkan.NewMesh(e.backend, geometry.Vertices, geometry.Indices)
		if err != nil {
			e.destroyBatch(batch)
			return nil, errors.Wrapf(err, "mesh %q", geometry.Name)
		}
		batch.meshes = append(batch.meshes, mesh)
		e.registry.Track(mesh.ID, "mesh "+geometry.Name)
	}
	return batch, nil
}

// loadTextureImage never fails; a missing or unreadable file gives a checkerboard.
func (e *Engine) loadTextureImage() *assets.Image {
	path := e.gameInstance.ApplicationConfig.Assets.Texture
	if path == "" {
		return assets.Checkerboard(checkerboardSize, checkerboardCells)
	}
	image, err := assets.LoadImage(path, e.backend.PhysicalDevice().MaxImageDimension2D)
	if err != nil {
		core.LogWarn("Using a checkerboard texture: %s", err)
		return assets.Checkerboard(checkerboardSize, checkerboardCells)
	}
	return image
}

// drawScene is the renderer's scene drawer.
func (e *Engine) drawScene(frame *vulkan.CommandContext, elapsed float64) error {
	extent := e.backend.SurfaceExtent()
	batches := make([]vulkan.Batch, 0, len(e.scene))
	for _, b := range e.scene {
		batches = append(batches, vulkan.Batch{
			Material: b.material,
			Meshes:   b.meshes,
			Uniforms: e.camera.Uniforms(b.advance(elapsed), extent),
		})
	}
	return e.backend.Compositor().DrawScene(frame, batches)
}

// reloadShaders rebuilds every pipeline after the SPIR-V files changed. A
// broken shader on disk keeps the current pipelines.
func (e *Engine) reloadShaders() {
	if e.watcher == nil {
		return
	}
	changed := e.watcher.Drain()
	if len(changed) == 0 || len(e.scene) == 0 {
		return
	}
	core.LogInfo("Shaders changed (%v), reloading %d materials.", changed, len(e.scene))

	config := e.gameInstance.ApplicationConfig
	shaders, err := assets.ReadShaderPair(config.Shaders.Vertex, config.Shaders.Fragment)
	if err != nil {
		core.LogError("Shader reload skipped: %s", err)
		return
	}
	if err := e.backend.WaitIdle(); err != nil {
		core.LogError("Shader reload skipped: %s", err)
		return
	}
	for _, b := range e.scene {
		if err := b.material.ReloadShaders(shaders.Vertex, shaders.Fragment); err != nil {
			core.LogError("Reloading material %q: %s", b.material.Name, err)
		}
	}
}

func (e *Engine) destroyBatch(b *sceneBatch) {
	for _, mesh := range b.meshes {
		mesh.Destroy()
		e.release(mesh.ID)
	}
	b.meshes = nil
	if b.material != nil {
		b.material.Destroy()
		e.release(b.material.ID)
		b.material = nil
	}
}

func (e *Engine) destroyScene(scene []*sceneBatch) {
	for _, b := range scene {
		e.destroyBatch(b)
	}
}
