// Package activation provides the small set of elementwise nonlinearities
// shared by the in-process runtimes.
package activation

import (
	"fmt"
	"math"
)

// Activation names an elementwise nonlinearity.
type Activation string

const (
	None    Activation = ""
	Sigmoid Activation = "sigmoid"
	ReLU    Activation = "relu"
	Tanh    Activation = "tanh"
)

// Parse validates an activation name from a model file.
func Parse(s string) (Activation, error) {
	switch Activation(s) {
	case None, Sigmoid, ReLU, Tanh:
		return Activation(s), nil
	case "linear", "identity":
		return None, nil
	}
	return None, fmt.Errorf("unknown activation %q", s)
}

// Apply evaluates the activation at x.
func (a Activation) Apply(x float32) float32 {
	switch a {
	case Sigmoid:
		return float32(1 / (1 + math.Exp(-float64(x))))
	case ReLU:
		if x < 0 {
			return 0
		}
		return x
	case Tanh:
		return float32(math.Tanh(float64(x)))
	}
	return x
}
