//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

type Build mg.Namespace

var shaderSources = map[string]string{
	"shaders/shader.vert": "shaders/vert.spv",
	"shaders/shader.frag": "shaders/frag.spv",
}

// Compiles the GLSL sources in shaders/ to SPIR-V with glslc. Up to date
// outputs are skipped.
func (Build) Shaders() error {
	return buildShaders()
}

// Compiles the shaders and builds the engine binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "nou"), "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	for src, dst := range shaderSources {
		stale, err := target.Path(dst, src)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		if _, err := executeCmd("glslc", withArgs(filepath.Base(src), "-o", filepath.Base(dst)), withDir(filepath.Dir(src)), withStream()); err != nil {
			return err
		}
	}
	return nil
}
