package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"visiond/internal/runtime/activation"
	"visiond/internal/runtime/graph"
	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// writeModel creates <dir>/<name>/model_config.json with the given contents
// and returns the model directory.
func writeModel(t *testing.T, dir, name, config string) string {
	t.Helper()
	modelDir := filepath.Join(dir, name)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, types.ConfigFileName), []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return modelDir
}

// writeGraphArtifact writes a runnable single-layer graph that doubles every
// channel of a 3-channel input.
func writeGraphArtifact(t *testing.T, modelDir string) {
	t.Helper()
	scale, err := tensor.FromSlice([]float32{2, 2, 2}, tensor.Shape{3})
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	path := filepath.Join(modelDir, types.DefaultGraphFile)
	if err := graph.NewBuilder().Affine(scale, nil, activation.None).Save(path); err != nil {
		t.Fatalf("save graph: %v", err)
	}
}

func newTestRegistry(t *testing.T, modelsDir string) *Registry {
	t.Helper()
	r := New(Config{ModelsDir: modelsDir})
	t.Cleanup(r.Close)
	return r
}

const frameConfig = `{
  "model_name": "frame",
  "framework": "graph-model",
  "input_shape": [1, 4, 4, 3],
  "output_shape": [1, 4, 4, 3]
}`
