// Package tensor provides the dense float32 array type exchanged across every
// boundary of the serving layer: raw capture frames in, corrected frames and
// auxiliary scalars out. Tensors have no persistent identity; they are
// produced and consumed per call.
package tensor

import "fmt"

// Tensor is a dense row-major float32 array with a declared shape.
type Tensor struct {
	shape Shape
	data  []float32
}

// New allocates a zero-filled tensor of the given shape.
func New(shape Shape) *Tensor {
	return &Tensor{shape: shape.Clone(), data: make([]float32, shape.NumElements())}
}

// FromSlice wraps data in a tensor of the given shape. The slice is used
// directly, not copied.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, got %d", shape, shape.NumElements(), len(data))
	}
	return &Tensor{shape: shape.Clone(), data: data}, nil
}

// Shape returns the tensor's shape. Callers must not mutate it.
func (t *Tensor) Shape() Shape { return t.shape }

// Data returns the underlying row-major element slice.
func (t *Tensor) Data() []float32 { return t.data }

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// NumElements returns the total element count.
func (t *Tensor) NumElements() int { return len(t.data) }

// At returns the element at the given multi-dimensional index.
func (t *Tensor) At(idx ...int) float32 {
	return t.data[t.offset(idx)]
}

// Set writes the element at the given multi-dimensional index.
func (t *Tensor) Set(v float32, idx ...int) {
	t.data[t.offset(idx)] = v
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: index rank %d does not match shape %v", len(idx), t.shape))
	}
	strides := t.shape.Strides()
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dimension %d of %v", x, i, t.shape))
		}
		off += x * strides[i]
	}
	return off
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), data: data}
}

// Reshape returns a tensor sharing t's data with a new shape of equal size.
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(t.data) {
		return nil, fmt.Errorf("cannot reshape %v to %v", t.shape, shape)
	}
	return &Tensor{shape: shape.Clone(), data: t.data}, nil
}

// ExpandDims returns a view with a new dimension of size 1 inserted at axis.
func (t *Tensor) ExpandDims(axis int) *Tensor {
	if axis < 0 || axis > len(t.shape) {
		panic(fmt.Sprintf("tensor: ExpandDims axis %d out of range for shape %v", axis, t.shape))
	}
	shape := make(Shape, 0, len(t.shape)+1)
	shape = append(shape, t.shape[:axis]...)
	shape = append(shape, 1)
	shape = append(shape, t.shape[axis:]...)
	return &Tensor{shape: shape, data: t.data}
}

// Squeeze returns a view with the size-1 dimension at axis removed.
func (t *Tensor) Squeeze(axis int) (*Tensor, error) {
	if axis < 0 || axis >= len(t.shape) {
		return nil, fmt.Errorf("squeeze axis %d out of range for shape %v", axis, t.shape)
	}
	if t.shape[axis] != 1 {
		return nil, fmt.Errorf("cannot squeeze dimension %d of size %d in %v", axis, t.shape[axis], t.shape)
	}
	shape := make(Shape, 0, len(t.shape)-1)
	shape = append(shape, t.shape[:axis]...)
	shape = append(shape, t.shape[axis+1:]...)
	return &Tensor{shape: shape, data: t.data}, nil
}
