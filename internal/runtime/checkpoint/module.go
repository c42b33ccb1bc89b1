package checkpoint

import (
	"fmt"

	"visiond/internal/runtime/activation"
	"visiond/pkg/tensor"
)

// Tensor names a checkpoint must provide for the serving forward pass.
const (
	WeightName = "weight"
	BiasName   = "bias"
)

// Module is a loaded weight checkpoint: a channel-mixing transform applied
// over the last dimension, with an optional activation declared in the
// checkpoint metadata. Modules start in training mode and must be switched
// to eval before serving, mirroring eager-framework semantics.
type Module struct {
	weight     *tensor.Tensor // [outC, inC]
	bias       *tensor.Tensor // [outC], may be nil
	activation activation.Activation
	device     string
	training   bool
}

// Load reads a checkpoint file and assembles a Module on the given device.
func Load(path, device string) (*Module, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	w, err := r.Tensor(WeightName)
	if err != nil {
		return nil, err
	}
	if w.Rank() != 2 {
		return nil, fmt.Errorf("weight must be rank 2 [out,in], got %v", w.Shape())
	}
	var b *tensor.Tensor
	if r.Has(BiasName) {
		b, err = r.Tensor(BiasName)
		if err != nil {
			return nil, err
		}
		if b.Rank() != 1 || b.Shape()[0] != w.Shape()[0] {
			return nil, fmt.Errorf("bias shape %v does not match weight %v", b.Shape(), w.Shape())
		}
	}
	act := activation.None
	if meta := r.Metadata(); meta != nil {
		act, err = activation.Parse(meta["activation"])
		if err != nil {
			return nil, err
		}
	}
	return &Module{weight: w, bias: b, activation: act, device: device, training: true}, nil
}

// Eval switches the module to inference mode.
func (m *Module) Eval() { m.training = false }

// Training reports whether the module is still in training mode.
func (m *Module) Training() bool { return m.training }

// Device returns the device the module was loaded for.
func (m *Module) Device() string { return m.device }

// InChannels returns the expected size of the input's last dimension.
func (m *Module) InChannels() int { return m.weight.Shape()[1] }

// OutChannels returns the size of the output's last dimension.
func (m *Module) OutChannels() int { return m.weight.Shape()[0] }

// Forward applies the transform over the last dimension of in. All leading
// dimensions are preserved.
func (m *Module) Forward(in *tensor.Tensor) (*tensor.Tensor, error) {
	if m.training {
		return nil, fmt.Errorf("module is in training mode; call Eval before Forward")
	}
	shape := in.Shape()
	if len(shape) == 0 || shape[len(shape)-1] != m.InChannels() {
		return nil, fmt.Errorf("input %v does not end in %d channels", shape, m.InChannels())
	}
	inC, outC := m.InChannels(), m.OutChannels()
	outShape := shape.Clone()
	outShape[len(outShape)-1] = outC
	out := tensor.New(outShape)

	w := m.weight.Data()
	src, dst := in.Data(), out.Data()
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
			if m.bias != nil {
				acc += m.bias.Data()[o]
			}
			y[o] = m.activation.Apply(acc)
		}
	}
	return out, nil
}
