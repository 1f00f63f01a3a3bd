package assets

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/nou/engine/core"
)

// ReadSPIRV reads a compiled shader whole. The bytes are handed to the
// backend as they are; it checks the word alignment.
func ReadSPIRV(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read shader %s", path), core.ErrShaderMissing)
	}
	if len(data) == 0 {
		return nil, errors.Wrapf(core.ErrShaderMissing, "shader %s is empty", path)
	}
	return data, nil
}

// ShaderPair is the vertex and fragment bytecode of one material.
type ShaderPair struct {
	Vertex   []byte
	Fragment []byte
}

func ReadShaderPair(vertexPath, fragmentPath string) (ShaderPair, error) {
	vertex, err := ReadSPIRV(vertexPath)
	if err != nil {
		return ShaderPair{}, err
	}
	fragment, err := ReadSPIRV(fragmentPath)
	if err != nil {
		return ShaderPair{}, err
	}
	return ShaderPair{Vertex: vertex, Fragment: fragment}, nil
}
