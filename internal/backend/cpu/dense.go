package cpu

import (
	"fmt"

	"github.com/born-ml/dense/internal/activation"
	"github.com/born-ml/dense/internal/backend"
	"github.com/born-ml/dense/internal/cost"
	"github.com/born-ml/dense/internal/parallel"
	"github.com/born-ml/dense/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Forward computes z = W·x + b and a = activation(z) for one example.
func (cpu *CPUBackend) Forward(p backend.Params, x *mat.Dense, prec backend.Precision) (*mat.Dense, *mat.Dense, error) {
	in, out, err := backend.CheckParams("cpu.Forward", p)
	if err != nil {
		return nil, nil, err
	}
	if err := backend.CheckColumn("cpu.Forward input", x, in); err != nil {
		return nil, nil, err
	}

	z := mat.NewDense(out, 1, nil)
	a := mat.NewDense(out, 1, nil)
	forwardExample(p, x, z, a, prec)
	return z, a, nil
}

// ForwardBatch computes z and a for every example of x.
func (cpu *CPUBackend) ForwardBatch(p backend.Params, x *tensor.Tensor, prec backend.Precision) (*tensor.Tensor, *tensor.Tensor, error) {
	in, out, err := backend.CheckParams("cpu.ForwardBatch", p)
	if err != nil {
		return nil, nil, err
	}
	if err := backend.CheckBatch("cpu.ForwardBatch input", x, -1, in); err != nil {
		return nil, nil, err
	}

	z, err := tensor.New(x.Batch(), out, 1)
	if err != nil {
		return nil, nil, err
	}
	a, err := tensor.New(x.Batch(), out, 1)
	if err != nil {
		return nil, nil, err
	}

	parallel.For(x.Batch(), func(b int) {
		forwardExample(p, x.Matrix(b), z.Matrix(b), a.Matrix(b), prec)
	}, cpu.cfg.Parallel)
	return z, a, nil
}

// OutputErrors computes costDerivative(a, expected) ⊙ activation'(z) per example.
func (cpu *CPUBackend) OutputErrors(act activation.Activation, c cost.Cost, z, a, expected *tensor.Tensor, prec backend.Precision) (*tensor.Tensor, error) {
	if act == nil || c == nil {
		return nil, fmt.Errorf("cpu.OutputErrors: missing activation or cost")
	}
	if err := backend.CheckBatch("cpu.OutputErrors z", z, -1, -1); err != nil {
		return nil, err
	}
	batch, out := z.Batch(), z.Rows()
	if err := backend.CheckBatch("cpu.OutputErrors activations", a, batch, out); err != nil {
		return nil, err
	}
	if err := backend.CheckBatch("cpu.OutputErrors expected", expected, batch, out); err != nil {
		return nil, err
	}

	result, err := tensor.New(batch, out, 1)
	if err != nil {
		return nil, err
	}

	parallel.For(batch, func(b int) {
		costDeriv := c.Derivative(a.Matrix(b), expected.Matrix(b))
		actDeriv := derivative(act, z.Matrix(b), prec)
		mulElem(result.Matrix(b), costDeriv, actDeriv, prec)
	}, cpu.cfg.Parallel)
	return result, nil
}

// HiddenErrors computes (nextWeightsᵀ·nextNodeValues) ⊙ activation'(z) per example.
func (cpu *CPUBackend) HiddenErrors(act activation.Activation, nextWeights *mat.Dense, nextNodeValues, z *tensor.Tensor, prec backend.Precision) (*tensor.Tensor, error) {
	if act == nil || nextWeights == nil {
		return nil, fmt.Errorf("cpu.HiddenErrors: missing activation or weights")
	}
	nextOut, out := nextWeights.Dims()
	if err := backend.CheckBatch("cpu.HiddenErrors z", z, -1, out); err != nil {
		return nil, err
	}
	if err := backend.CheckBatch("cpu.HiddenErrors node values", nextNodeValues, z.Batch(), nextOut); err != nil {
		return nil, err
	}

	result, err := tensor.New(z.Batch(), out, 1)
	if err != nil {
		return nil, err
	}

	parallel.For(z.Batch(), func(b int) {
		propagated := mulTransposed(nextWeights, nextNodeValues.Matrix(b), prec)
		actDeriv := derivative(act, z.Matrix(b), prec)
		mulElem(result.Matrix(b), propagated, actDeriv, prec)
	}, cpu.cfg.Parallel)
	return result, nil
}

// WeightGradients returns Σ_b nodeValues[b]·inputs[b]ᵀ.
func (cpu *CPUBackend) WeightGradients(nodeValues, inputs *tensor.Tensor, prec backend.Precision) (*mat.Dense, error) {
	if err := backend.CheckBatch("cpu.WeightGradients node values", nodeValues, -1, -1); err != nil {
		return nil, err
	}
	if err := backend.CheckBatch("cpu.WeightGradients inputs", inputs, nodeValues.Batch(), -1); err != nil {
		return nil, err
	}
	out, in := nodeValues.Rows(), inputs.Rows()
	delta, x := nodeValues.Data(), inputs.Data()

	sum := parallel.ReduceSum(nodeValues.Batch(), out*in, func(b int, acc []float64) {
		for i := 0; i < out; i++ {
			d := delta[b*out+i]
			row := acc[i*in : (i+1)*in]
			for j := 0; j < in; j++ {
				row[j] = accumulate(row[j], d, x[b*in+j], prec)
			}
		}
	}, cpu.cfg.Parallel)
	return mat.NewDense(out, in, sum), nil
}

// BiasGradients returns Σ_b nodeValues[b].
func (cpu *CPUBackend) BiasGradients(nodeValues *tensor.Tensor, prec backend.Precision) (*mat.Dense, error) {
	if err := backend.CheckBatch("cpu.BiasGradients node values", nodeValues, -1, -1); err != nil {
		return nil, err
	}
	out := nodeValues.Rows()
	delta := nodeValues.Data()

	sum := parallel.ReduceSum(nodeValues.Batch(), out, func(b int, acc []float64) {
		for i := 0; i < out; i++ {
			acc[i] = accumulate(acc[i], delta[b*out+i], 1, prec)
		}
	}, cpu.cfg.Parallel)
	return mat.NewDense(out, 1, sum), nil
}

// forwardExample writes z and a for one example. z and a may be views into
// batched tensors.
func forwardExample(p backend.Params, x, z, a *mat.Dense, prec backend.Precision) {
	if prec == backend.Reduced {
		forwardReduced(p, x, z, a)
		return
	}
	z.Mul(p.Weights, x)
	z.Add(z, p.Biases)
	a.Copy(p.Activation.Activate(z))
}
