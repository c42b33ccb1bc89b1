//go:build ort

package registry

import (
	"testing"

	"visiond/pkg/tensor"
)

func TestSessionRuntimeCompiledIn(t *testing.T) {
	if !ortBuilt {
		t.Fatalf("ortBuilt should be true in ort builds")
	}
}

func TestConcreteShape(t *testing.T) {
	def := tensor.Shape{1, 8, 8, 3}

	got := concreteShape(nil, def)
	if !got.Equal(def) {
		t.Fatalf("empty shape should fall back to the default, got %v", got)
	}

	got = concreteShape([]int{-1, 4, 4, 3}, def)
	if !got.Equal(tensor.Shape{1, 4, 4, 3}) {
		t.Fatalf("symbolic batch should concretize to 1, got %v", got)
	}

	in := []int{2, 4, 4, 3}
	got = concreteShape(in, def)
	if !got.Equal(tensor.Shape{2, 4, 4, 3}) {
		t.Fatalf("fixed shape should pass through, got %v", got)
	}
	got[0] = 99
	if in[0] != 2 {
		t.Fatalf("concreteShape must not alias its input")
	}
}
