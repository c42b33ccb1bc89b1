package graph

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	json "github.com/goccy/go-json"

	"visiond/internal/runtime/activation"
	"visiond/pkg/tensor"
)

// Builder assembles a graph artifact layer by layer. It backs the authoring
// CLI and test fixtures; the serving path never writes graph files.
type Builder struct {
	header headerSpec
	data   []*tensor.Tensor
	err    error
}

// NewBuilder returns an empty builder for the current format version.
func NewBuilder() *Builder {
	return &Builder{header: headerSpec{
		Version: FormatVersion,
		Tensors: make(map[string]tensorInfo),
	}}
}

func (b *Builder) addTensor(name string, t *tensor.Tensor) string {
	size := int64(t.NumElements() * 4)
	var offset int64
	for _, d := range b.data {
		offset += int64(d.NumElements() * 4)
	}
	b.header.Tensors[name] = tensorInfo{
		DType:       "F32",
		Shape:       []int(t.Shape()),
		DataOffsets: [2]int64{offset, offset + size},
	}
	b.data = append(b.data, t)
	return name
}

// Dense appends a channel-mixing layer. weight is [out, in]; bias may be nil.
func (b *Builder) Dense(weight, bias *tensor.Tensor, act activation.Activation) *Builder {
	if b.err != nil {
		return b
	}
	if weight.Rank() != 2 {
		b.err = fmt.Errorf("dense weight must be rank 2, got %v", weight.Shape())
		return b
	}
	idx := len(b.header.Layers)
	spec := layerSpec{
		Op:         OpDense,
		Weight:     b.addTensor(fmt.Sprintf("layers.%d.weight", idx), weight),
		Activation: string(act),
	}
	if bias != nil {
		spec.Bias = b.addTensor(fmt.Sprintf("layers.%d.bias", idx), bias)
	}
	b.header.Layers = append(b.header.Layers, spec)
	return b
}

// Affine appends a per-channel scale/shift layer. shift may be nil.
func (b *Builder) Affine(scale, shift *tensor.Tensor, act activation.Activation) *Builder {
	if b.err != nil {
		return b
	}
	if scale.Rank() != 1 {
		b.err = fmt.Errorf("affine scale must be rank 1, got %v", scale.Shape())
		return b
	}
	idx := len(b.header.Layers)
	spec := layerSpec{
		Op:         OpAffine,
		Weight:     b.addTensor(fmt.Sprintf("layers.%d.scale", idx), scale),
		Activation: string(act),
	}
	if shift != nil {
		spec.Bias = b.addTensor(fmt.Sprintf("layers.%d.shift", idx), shift)
	}
	b.header.Layers = append(b.header.Layers, spec)
	return b
}

// Save writes the assembled artifact to path.
func (b *Builder) Save(path string) error {
	if b.err != nil {
		return b.err
	}
	if len(b.header.Layers) == 0 {
		return fmt.Errorf("graph has no layers")
	}
	headerJSON, err := json.Marshal(b.header)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create graph: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return err
	}
	if _, err := f.Write(headerJSON); err != nil {
		return err
	}
	buf := make([]byte, 4)
	for _, t := range b.data {
		for _, v := range t.Data() {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := f.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}
