package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/nou/engine/core"
)

// Batch is a material and the meshes drawn with it using one uniform block.
// A material holds one uniform region per frame slot, so a material belongs
// to at most one batch per frame.
type Batch struct {
	Material *Material
	Meshes   []*Mesh
	Uniforms UniformBlock
}

// Compositor records a frame: uniform uploads, the forward pass over every
// batch and the optional overlay pass.
type Compositor struct {
	renderPass   *RenderPass
	framebuffers *FramebufferSet
	overlay      Overlay
}

func NewCompositor(renderPass *RenderPass, framebuffers *FramebufferSet, overlay Overlay) *Compositor {
	return &Compositor{
		renderPass:   renderPass,
		framebuffers: framebuffers,
		overlay:      overlay,
	}
}

func (c *Compositor) SetOverlay(overlay Overlay) {
	c.overlay = overlay
}

// DrawScene records batches into the frame's command buffer.
func (c *Compositor) DrawScene(frame *CommandContext, batches []Batch) error {
	if int(frame.ImageIndex) >= c.framebuffers.Len() {
		return errors.Newf("no framebuffer for image %d", frame.ImageIndex)
	}
	if err := checkDistinctMaterials(batches); err != nil {
		return err
	}
	cmd := frame.CommandBuffer

	// Uniform copies are transfer commands and cannot live inside the pass.
	for i := range batches {
		if err := batches[i].Material.UpdateUniforms(cmd, frame.FrameSlot, batches[i].Uniforms); err != nil {
			return errors.Wrapf(err, "update uniforms of batch %d", i)
		}
	}

	c.renderPass.Begin(cmd, c.framebuffers.At(frame.ImageIndex), c.framebuffers.Extent)
	for _, batch := range batches {
		batch.Material.Bind(cmd, frame.FrameSlot)
		for _, mesh := range batch.Meshes {
			mesh.Bind(cmd)
			mesh.Draw(cmd)
		}
	}
	c.renderPass.End(cmd)

	if c.overlay != nil {
		return c.overlay.Record(frame)
	}
	return nil
}

func checkDistinctMaterials(batches []Batch) error {
	seen := make(map[*Material]int, len(batches))
	for i, batch := range batches {
		if first, ok := seen[batch.Material]; ok {
			return errors.Wrapf(core.ErrSharedMaterial, "batches %d and %d share material %q", first, i, batch.Material.Name)
		}
		seen[batch.Material] = i
	}
	return nil
}
