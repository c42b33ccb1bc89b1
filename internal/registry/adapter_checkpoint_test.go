package registry

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"visiond/internal/runtime/checkpoint"
	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

func TestLoadCheckpointAndPredict(t *testing.T) {
	dir := t.TempDir()
	modelDir := writeModel(t, dir, "ckpt", `{
	  "framework": "checkpoint",
	  "input_shape": [1, 2],
	  "output_shape": [1, 2]
	}`)
	weight, err := tensor.FromSlice([]float32{2, 0, 0, 2}, tensor.Shape{2, 2})
	if err != nil {
		t.Fatalf("weight: %v", err)
	}
	path := filepath.Join(modelDir, types.DefaultCheckpointFile)
	if err := checkpoint.Save(path, map[string]*tensor.Tensor{checkpoint.WeightName: weight}, nil); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}

	r := newTestRegistry(t, dir)
	res, err := r.Load(testCtx(t), "ckpt", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !res.Available || res.Placeholder {
		t.Fatalf("checkpoint load result = %+v", res)
	}

	// The module must already be in eval mode when served from the cache.
	in := mustTensor(t, []float32{1, 3}, tensor.Shape{2})
	out, err := r.Predict(testCtx(t), "ckpt", in, PredictOptions{})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []float32{2, 6}
	for i, v := range out.Data() {
		if math.Abs(float64(v-want[i])) > 1e-6 {
			t.Fatalf("output = %v, want %v", out.Data(), want)
		}
	}
}

func TestLoadCorruptCheckpointPropagates(t *testing.T) {
	dir := t.TempDir()
	modelDir := writeModel(t, dir, "ckpt", `{"framework": "checkpoint"}`)
	if err := os.WriteFile(filepath.Join(modelDir, types.DefaultCheckpointFile), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := newTestRegistry(t, dir)
	if _, err := r.Load(testCtx(t), "ckpt", ""); err == nil {
		t.Fatalf("corrupt checkpoint should fail the load, not fall back")
	}
	if r.Loaded("ckpt") {
		t.Fatalf("failed load must not populate the cache")
	}
}
