package layer

import (
	"github.com/born-ml/dense/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// LearnData is the per-example scratch state of one layer during one
// training pass.
//
// It is owned by the trainer: create one per example per layer, hand it to
// ForwardLearn, the error computation and AccumulateGradients, then discard
// it. A Layer never keeps a reference after a call returns.
type LearnData struct {
	Inputs         *mat.Dense // [in, 1]
	WeightedInputs *mat.Dense // [out, 1], z
	Activations    *mat.Dense // [out, 1], a
	NodeValues     *mat.Dense // [out, 1], ∂cost/∂z
}

// NewLearnData allocates zeroed inputs and node values for a layer with the
// given node counts. WeightedInputs and Activations stay nil until
// ForwardLearn fills them. Both counts must be at least 1.
func NewLearnData(numNodesIn, numNodesOut int) *LearnData {
	return &LearnData{
		Inputs:     mat.NewDense(numNodesIn, 1, nil),
		NodeValues: mat.NewDense(numNodesOut, 1, nil),
	}
}

// ParallelLearnData is LearnData for a whole batch. Every field is a
// [batch, rows, 1] tensor.
type ParallelLearnData struct {
	Inputs         *tensor.Tensor
	WeightedInputs *tensor.Tensor
	Activations    *tensor.Tensor
	NodeValues     *tensor.Tensor
}
