// Package graph implements visiond's in-process graph runtime, the primary
// serving path for models exported by the training pipeline.
//
// Container layout follows the safetensors convention:
//
//	[8 bytes: header length, uint64 LE]
//	[header: JSON {"version":1,"layers":[...],"tensors":{...}}]
//	[tensor payload: raw little-endian float32]
//
// Layers execute in order over the last (channel) dimension of the input;
// all leading dimensions pass through unchanged.
package graph

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	json "github.com/goccy/go-json"

	"visiond/internal/runtime/activation"
	"visiond/pkg/tensor"
)

// FormatVersion is the container version this runtime reads and writes.
const FormatVersion = 1

const maxHeaderSize = 16 << 20

// Op names a layer operation.
type Op string

const (
	// OpDense mixes channels: y = act(W·x + b), W is [out, in].
	OpDense Op = "dense"
	// OpAffine scales and shifts per channel: y = act(scale*x + shift).
	OpAffine Op = "affine"
)

type tensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

type layerSpec struct {
	Op         Op     `json:"op"`
	Weight     string `json:"weight"`
	Bias       string `json:"bias,omitempty"`
	Activation string `json:"activation,omitempty"`
}

type headerSpec struct {
	Version int                   `json:"version"`
	Layers  []layerSpec           `json:"layers"`
	Tensors map[string]tensorInfo `json:"tensors"`
}

type layer struct {
	op     Op
	weight *tensor.Tensor
	bias   *tensor.Tensor
	act    activation.Activation
}

// Program is a loaded graph ready for inference.
type Program struct {
	layers []layer
	device string
}

// Load parses a graph artifact and resolves every layer's tensors.
func Load(path, device string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	defer f.Close()

	var headerSize uint64
	if err := binary.Read(f, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("read header size: %w", err)
	}
	if headerSize == 0 || headerSize > maxHeaderSize {
		return nil, fmt.Errorf("implausible header size %d", headerSize)
	}
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var h headerSpec
	if err := json.Unmarshal(buf, &h); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported graph version %d", h.Version)
	}
	if len(h.Layers) == 0 {
		return nil, fmt.Errorf("graph declares no layers")
	}

	dataOffset := int64(8 + headerSize)
	readTensor := func(name string) (*tensor.Tensor, error) {
		info, ok := h.Tensors[name]
		if !ok {
			return nil, fmt.Errorf("tensor %q not present in graph", name)
		}
		if info.DType != "F32" {
			return nil, fmt.Errorf("tensor %q has unsupported dtype %s", name, info.DType)
		}
		shape := tensor.Shape(info.Shape)
		if err := shape.Validate(); err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		n := shape.NumElements()
		if info.DataOffsets[1]-info.DataOffsets[0] != int64(n*4) {
			return nil, fmt.Errorf("tensor %q: payload does not match shape %v", name, shape)
		}
		raw := make([]byte, n*4)
		if _, err := f.ReadAt(raw, dataOffset+info.DataOffsets[0]); err != nil {
			return nil, fmt.Errorf("read tensor %q: %w", name, err)
		}
		data := make([]float32, n)
		for i := range data {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return tensor.FromSlice(data, shape)
	}

	p := &Program{device: device, layers: make([]layer, 0, len(h.Layers))}
	for i, spec := range h.Layers {
		l := layer{op: spec.Op}
		l.act, err = activation.Parse(spec.Activation)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		l.weight, err = readTensor(spec.Weight)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if spec.Bias != "" {
			l.bias, err = readTensor(spec.Bias)
			if err != nil {
				return nil, fmt.Errorf("layer %d: %w", i, err)
			}
		}
		switch spec.Op {
		case OpDense:
			if l.weight.Rank() != 2 {
				return nil, fmt.Errorf("layer %d: dense weight must be rank 2, got %v", i, l.weight.Shape())
			}
			if l.bias != nil && (l.bias.Rank() != 1 || l.bias.Shape()[0] != l.weight.Shape()[0]) {
				return nil, fmt.Errorf("layer %d: bias %v does not match weight %v", i, l.bias.Shape(), l.weight.Shape())
			}
		case OpAffine:
			if l.weight.Rank() != 1 {
				return nil, fmt.Errorf("layer %d: affine scale must be rank 1, got %v", i, l.weight.Shape())
			}
			if l.bias != nil && !l.bias.Shape().Equal(l.weight.Shape()) {
				return nil, fmt.Errorf("layer %d: shift %v does not match scale %v", i, l.bias.Shape(), l.weight.Shape())
			}
		default:
			return nil, fmt.Errorf("layer %d: unknown op %q", i, spec.Op)
		}
		p.layers = append(p.layers, l)
	}
	return p, nil
}

// Device returns the device the program was loaded for.
func (p *Program) Device() string { return p.device }

// Forward executes the layer stack over the last dimension of in.
func (p *Program) Forward(in *tensor.Tensor) (*tensor.Tensor, error) {
	cur := in
	for i := range p.layers {
		next, err := p.layers[i].forward(cur)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		cur = next
	}
	return cur, nil
}

func (l *layer) forward(in *tensor.Tensor) (*tensor.Tensor, error) {
	shape := in.Shape()
	if len(shape) == 0 {
		return nil, fmt.Errorf("input must have at least one dimension")
	}
	c := shape[len(shape)-1]
	switch l.op {
	case OpDense:
		inC := l.weight.Shape()[1]
		outC := l.weight.Shape()[0]
		if c != inC {
			return nil, fmt.Errorf("input %v does not end in %d channels", shape, inC)
		}
		outShape := shape.Clone()
		outShape[len(outShape)-1] = outC
		out := tensor.New(outShape)
		w, src, dst := l.weight.Data(), in.Data(), out.Data()
		rows := len(src) / inC
		for r := 0; r < rows; r++ {
			x := src[r*inC : (r+1)*inC]
			y := dst[r*outC : (r+1)*outC]
			for o := 0; o < outC; o++ {
				var acc float32
				wo := w[o*inC : (o+1)*inC]
				for i, v := range x {
					acc += wo[i] * v
				}
				if l.bias != nil {
					acc += l.bias.Data()[o]
				}
				y[o] = l.act.Apply(acc)
			}
		}
		return out, nil
	case OpAffine:
		if c != l.weight.Shape()[0] {
			return nil, fmt.Errorf("input %v does not end in %d channels", shape, l.weight.Shape()[0])
		}
		out := tensor.New(shape)
		scale, src, dst := l.weight.Data(), in.Data(), out.Data()
		for i, v := range src {
			ch := i % c
			acc := scale[ch] * v
			if l.bias != nil {
				acc += l.bias.Data()[ch]
			}
			dst[i] = l.act.Apply(acc)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown op %q", l.op)
}
