// Package activation implements the activation functions a dense layer can
// be bound to, plus the index registry used to restore them.
//
// The index is the durable identity of an activation (it is what snapshots
// store); the Activation value is the runtime behavior resolved from it.
package activation

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Registered activation indices. The values are persisted and must never be
// renumbered.
const (
	KindSigmoid = iota
	KindTanH
	KindReLU
	KindSiLU
	KindSoftmax
)

// ErrUnknownActivation is returned when an index has no registered activation.
var ErrUnknownActivation = errors.New("unknown activation index")

// Activation is an element-wise (or, for Softmax, column-wise) nonlinearity.
//
// Activate and Derivative never modify z and return matrices shaped like z.
// Each column of z is treated as one example.
type Activation interface {
	Activate(z *mat.Dense) *mat.Dense
	Derivative(z *mat.Dense) *mat.Dense
	Index() int
	Name() string
}

// Reduced is implemented by activations that can be evaluated in single
// precision. z holds one example as a flat vector.
type Reduced interface {
	Activate32(z []float32) []float32
	Derivative32(z []float32) []float32
}

// FromIndex returns the registered activation for index.
func FromIndex(index int) (Activation, error) {
	switch index {
	case KindSigmoid:
		return Sigmoid{}, nil
	case KindTanH:
		return TanH{}, nil
	case KindReLU:
		return ReLU{}, nil
	case KindSiLU:
		return SiLU{}, nil
	case KindSoftmax:
		return Softmax{}, nil
	default:
		return nil, fmt.Errorf("activation %d: %w", index, ErrUnknownActivation)
	}
}

// All returns every registered activation in index order.
func All() []Activation {
	return []Activation{Sigmoid{}, TanH{}, ReLU{}, SiLU{}, Softmax{}}
}

// apply maps f over every element of z into a new matrix.
func apply(z *mat.Dense, f func(float64) float64) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return f(v) }, z)
	return out
}

func apply32(z []float32, f func(float32) float32) []float32 {
	out := make([]float32, len(z))
	for i, v := range z {
		out[i] = f(v)
	}
	return out
}
