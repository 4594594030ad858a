// Package cost implements the cost functions used to seed backpropagation at
// the output layer.
package cost

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Registered cost indices.
const (
	KindMeanSquaredError = iota
	KindCrossEntropy
)

// ErrUnknownCost is returned when an index has no registered cost function.
var ErrUnknownCost = errors.New("unknown cost index")

// Cost measures how far actual outputs are from expected outputs.
//
// Derivative returns ∂Cost/∂actual element-wise, shaped like its inputs.
type Cost interface {
	Cost(actual, expected *mat.Dense) float64
	Derivative(actual, expected *mat.Dense) *mat.Dense
	Index() int
	Name() string
}

// FromIndex returns the registered cost function for index.
func FromIndex(index int) (Cost, error) {
	switch index {
	case KindMeanSquaredError:
		return MeanSquaredError{}, nil
	case KindCrossEntropy:
		return CrossEntropy{}, nil
	default:
		return nil, fmt.Errorf("cost %d: %w", index, ErrUnknownCost)
	}
}

// MeanSquaredError is C = ½·Σ(a - y)².
//
// The ½ factor makes the derivative exactly a - y.
type MeanSquaredError struct{}

// Cost computes ½·Σ(a - y)².
func (MeanSquaredError) Cost(actual, expected *mat.Dense) float64 {
	var diff mat.Dense
	diff.Sub(actual, expected)
	var sum float64
	r, c := diff.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := diff.At(i, j)
			sum += v * v
		}
	}
	return 0.5 * sum
}

// Derivative returns a - y.
func (MeanSquaredError) Derivative(actual, expected *mat.Dense) *mat.Dense {
	var diff mat.Dense
	diff.Sub(actual, expected)
	return &diff
}

// Index returns KindMeanSquaredError.
func (MeanSquaredError) Index() int { return KindMeanSquaredError }

// Name returns "mse".
func (MeanSquaredError) Name() string { return "mse" }

// CrossEntropy is the binary cross-entropy -Σ[y·ln a + (1-y)·ln(1-a)].
//
// Outputs saturated at exactly 0 or 1 contribute zero to both the cost and
// its derivative instead of producing NaN or Inf.
type CrossEntropy struct{}

// Cost computes the binary cross-entropy.
func (CrossEntropy) Cost(actual, expected *mat.Dense) float64 {
	var sum float64
	r, c := actual.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a, y := actual.At(i, j), expected.At(i, j)
			v := -y*math.Log(a) - (1-y)*math.Log(1-a)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				sum += v
			}
		}
	}
	return sum
}

// Derivative returns (y - a) / (a·(a - 1)).
func (CrossEntropy) Derivative(actual, expected *mat.Dense) *mat.Dense {
	r, c := actual.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, a float64) float64 {
		if a == 0 || a == 1 {
			return 0
		}
		return (-a + expected.At(i, j)) / (a * (a - 1))
	}, actual)
	return out
}

// Index returns KindCrossEntropy.
func (CrossEntropy) Index() int { return KindCrossEntropy }

// Name returns "cross_entropy".
func (CrossEntropy) Name() string { return "cross_entropy" }
