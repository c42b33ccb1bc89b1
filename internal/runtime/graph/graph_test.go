package graph

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"visiond/internal/runtime/activation"
	"visiond/pkg/tensor"
)

func vec(vals ...float32) *tensor.Tensor {
	t, err := tensor.FromSlice(vals, tensor.Shape{len(vals)})
	if err != nil {
		panic(err)
	}
	return t
}

func mat(rows, cols int, vals ...float32) *tensor.Tensor {
	t, err := tensor.FromSlice(vals, tensor.Shape{rows, cols})
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuilderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.h5")
	err := NewBuilder().
		Dense(mat(2, 3, 1, 0, 0, 0, 1, 0), vec(0.5, -0.5), activation.None).
		Affine(vec(2, 2), nil, activation.ReLU).
		Save(path)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	p, err := Load(path, "cpu")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Device() != "cpu" {
		t.Fatalf("Device = %q", p.Device())
	}

	in := vec(1, 2, 3)
	out, err := p.Forward(in)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	// dense picks the first two channels plus bias, affine doubles then relus.
	want := []float32{3, 3}
	if !out.Shape().Equal(tensor.Shape{2}) {
		t.Fatalf("output shape = %v", out.Shape())
	}
	for i, v := range out.Data() {
		if math.Abs(float64(v-want[i])) > 1e-6 {
			t.Fatalf("output = %v, want %v", out.Data(), want)
		}
	}
}

func TestForwardPreservesLeadingDims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.h5")
	if err := NewBuilder().Affine(vec(1, 1, 1), nil, activation.Sigmoid).Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, err := Load(path, "cpu")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	in := tensor.New(tensor.Shape{2, 4, 4, 3})
	out, err := p.Forward(in)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if !out.Shape().Equal(tensor.Shape{2, 4, 4, 3}) {
		t.Fatalf("output shape = %v", out.Shape())
	}
	for _, v := range out.Data() {
		if math.Abs(float64(v)-0.5) > 1e-6 {
			t.Fatalf("sigmoid(0) should be 0.5, got %v", v)
		}
	}
}

func TestForwardRejectsChannelMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.h5")
	if err := NewBuilder().Dense(mat(2, 2, 1, 0, 0, 1), nil, activation.None).Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, err := Load(path, "cpu")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := p.Forward(vec(1, 2, 3)); err == nil {
		t.Fatalf("expected channel mismatch error")
	}
}

func TestBuilderRejectsBadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.h5")
	if err := NewBuilder().Dense(vec(1, 2), nil, activation.None).Save(path); err == nil {
		t.Fatalf("expected error for rank-1 dense weight")
	}
	if err := NewBuilder().Save(path); err == nil {
		t.Fatalf("expected error for empty graph")
	}
}

func TestLoadRejectsCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	junk := filepath.Join(dir, "junk.h5")
	if err := os.WriteFile(junk, []byte("xx"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(junk, "cpu"); err == nil {
		t.Fatalf("expected error for truncated file")
	}

	if _, err := Load(filepath.Join(dir, "absent.h5"), "cpu"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
