package registry

import (
	"context"
	"fmt"

	"visiond/internal/runtime/activation"
	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// Default shapes used when a descriptor omits them, matching the training
// producer's standard frame layout.
var (
	defaultInputShape  = tensor.Shape{1, 224, 224, 3}
	defaultOutputShape = tensor.Shape{1, 224, 224, 3}
)

// placeholderHandle is a synthesized stand-in for a missing or unloadable
// graph artifact. It maps any input of the declared input shape to an output
// of the declared output shape, every element squashed through a sigmoid so
// outputs stay bounded in (0,1). Outputs are not meaningful; the handle
// exists to keep the shape contract and calling convention intact end-to-end.
type placeholderHandle struct {
	inShape  tensor.Shape // batch dimension stripped
	outShape tensor.Shape // batch dimension stripped
	device   types.Device
}

// newPlaceholder synthesizes a handle from a descriptor's declared shapes,
// leading batch dimension stripped.
func newPlaceholder(desc types.Descriptor, device types.Device) *placeholderHandle {
	in := tensor.Shape(desc.InputShape)
	if len(in) == 0 {
		in = defaultInputShape
	}
	out := tensor.Shape(desc.OutputShape)
	if len(out) == 0 {
		out = defaultOutputShape
	}
	return &placeholderHandle{
		inShape:  in[1:].Clone(),
		outShape: out[1:].Clone(),
		device:   device,
	}
}

func (h *placeholderHandle) Device() types.Device { return h.device }
func (h *placeholderHandle) Placeholder() bool    { return true }
func (h *placeholderHandle) Close() error         { return nil }

// Predict accepts either an unbatched input of the declared shape or a
// batched one with a leading batch dimension, and mirrors that batching on
// the output.
func (h *placeholderHandle) Predict(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shape := in.Shape()
	switch {
	case shape.Equal(h.inShape):
		return h.synthesize(in.Data(), h.outShape), nil
	case len(shape) == len(h.inShape)+1 && tensor.Shape(shape[1:]).Equal(h.inShape):
		batch := shape[0]
		outShape := append(tensor.Shape{batch}, h.outShape...)
		out := tensor.New(outShape)
		rowIn := in.NumElements() / batch
		rowOut := h.outShape.NumElements()
		for b := 0; b < batch; b++ {
			row := h.synthesize(in.Data()[b*rowIn:(b+1)*rowIn], h.outShape)
			copy(out.Data()[b*rowOut:(b+1)*rowOut], row.Data())
		}
		return out, nil
	}
	return nil, fmt.Errorf("placeholder expects input shape %v, got %v", h.inShape, shape)
}

// synthesize fills an output of the given shape from the mean of the input,
// offset per element so the output is not constant, then sigmoid-bounded.
func (h *placeholderHandle) synthesize(in []float32, outShape tensor.Shape) *tensor.Tensor {
	var mean float32
	if len(in) > 0 {
		var sum float32
		for _, v := range in {
			sum += v
		}
		mean = sum / float32(len(in))
	}
	out := tensor.New(outShape)
	dst := out.Data()
	for i := range dst {
		offset := float32(i%7)*0.1 - 0.3
		dst[i] = activation.Sigmoid.Apply(mean + offset)
	}
	return out
}
