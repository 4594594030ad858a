//go:build windows

package webgpu

import (
	"fmt"

	"github.com/born-ml/dense/internal/activation"
	"github.com/born-ml/dense/internal/backend"
	"github.com/born-ml/dense/internal/cost"
	"github.com/born-ml/dense/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Forward runs the forward kernels on a batch of one.
func (b *Backend) Forward(p backend.Params, x *mat.Dense, prec backend.Precision) (*mat.Dense, *mat.Dense, error) {
	in, _, err := backend.CheckParams("webgpu.Forward", p)
	if err != nil {
		return nil, nil, err
	}
	if err := backend.CheckColumn("webgpu.Forward input", x, in); err != nil {
		return nil, nil, err
	}
	xs, err := tensor.FromMatrices(x)
	if err != nil {
		return nil, nil, err
	}
	z, a, err := b.ForwardBatch(p, xs, prec)
	if err != nil {
		return nil, nil, err
	}
	return z.Matrix(0), a.Matrix(0), nil
}

// ForwardBatch computes z = W·x + b and a = activation(z) for every example
// in two passes of one submission.
func (b *Backend) ForwardBatch(p backend.Params, x *tensor.Tensor, prec backend.Precision) (*tensor.Tensor, *tensor.Tensor, error) {
	in, out, err := backend.CheckParams("webgpu.ForwardBatch", p)
	if err != nil {
		return nil, nil, err
	}
	if err := backend.CheckBatch("webgpu.ForwardBatch input", x, -1, in); err != nil {
		return nil, nil, err
	}
	if err := registered(p.Activation); err != nil {
		return nil, nil, err
	}
	activateCode, err := activateShader(p.Activation)
	if err != nil {
		return nil, nil, err
	}

	batch := x.Batch()
	n := batch * out

	ar := b.newArena()
	defer ar.release()

	weights := ar.storage(narrow(flatten(p.Weights)))
	biases := ar.storage(narrow(flatten(p.Biases)))
	inputs := ar.storage(narrow(x.Data()))
	zBuf := ar.output(n)
	aBuf := ar.output(n)
	//nolint:gosec // G115: Safe conversion, dimensions are positive
	params := ar.uniform(uint32(batch), uint32(in), uint32(out), 0)

	err = b.run(
		pass{
			kernel:     kernelName("forward", prec),
			code:       forwardShader(prec),
			bindings:   []*gpuBuffer{weights, biases, inputs, zBuf, params},
			workgroups: [3]uint32{groups(n, workgroupSize), 1, 1},
		},
		pass{
			kernel:     kernelName("activate", p.Activation.Name()),
			code:       activateCode,
			bindings:   []*gpuBuffer{zBuf, aBuf, params},
			workgroups: [3]uint32{groups(n, workgroupSize), 1, 1},
		},
	)
	if err != nil {
		return nil, nil, err
	}

	z, err := b.readTensor(zBuf, tensor.Shape{batch, out, 1})
	if err != nil {
		return nil, nil, err
	}
	a, err := b.readTensor(aBuf, tensor.Shape{batch, out, 1})
	if err != nil {
		return nil, nil, err
	}
	return z, a, nil
}

// OutputErrors computes costDerivative(a, expected) ⊙ activation'(z) per example.
func (b *Backend) OutputErrors(act activation.Activation, c cost.Cost, z, a, expected *tensor.Tensor, prec backend.Precision) (*tensor.Tensor, error) {
	if act == nil || c == nil {
		return nil, fmt.Errorf("webgpu.OutputErrors: missing activation or cost")
	}
	if err := backend.CheckBatch("webgpu.OutputErrors z", z, -1, -1); err != nil {
		return nil, err
	}
	batch, out := z.Batch(), z.Rows()
	if err := backend.CheckBatch("webgpu.OutputErrors activations", a, batch, out); err != nil {
		return nil, err
	}
	if err := backend.CheckBatch("webgpu.OutputErrors expected", expected, batch, out); err != nil {
		return nil, err
	}
	if err := registered(act); err != nil {
		return nil, err
	}
	if known, err := cost.FromIndex(c.Index()); err != nil || known.Name() != c.Name() {
		return nil, fmt.Errorf("webgpu: cost %q has no kernel: %w", c.Name(), backend.ErrBackendUnavailable)
	}
	code, err := outputErrorsShader(act, c)
	if err != nil {
		return nil, err
	}

	n := batch * out
	ar := b.newArena()
	defer ar.release()

	zBuf := ar.storage(narrow(z.Data()))
	aBuf := ar.storage(narrow(a.Data()))
	yBuf := ar.storage(narrow(expected.Data()))
	result := ar.output(n)
	//nolint:gosec // G115: Safe conversion, dimensions are positive
	params := ar.uniform(uint32(batch), 0, uint32(out), 0)

	err = b.run(pass{
		kernel:     kernelName("output_errors", act.Name(), c.Name()),
		code:       code,
		bindings:   []*gpuBuffer{zBuf, aBuf, yBuf, result, params},
		workgroups: [3]uint32{groups(n, workgroupSize), 1, 1},
	})
	if err != nil {
		return nil, err
	}
	return b.readTensor(result, tensor.Shape{batch, out, 1})
}

// HiddenErrors computes (nextWeightsᵀ·nextNodeValues) ⊙ activation'(z) per example.
func (b *Backend) HiddenErrors(act activation.Activation, nextWeights *mat.Dense, nextNodeValues, z *tensor.Tensor, prec backend.Precision) (*tensor.Tensor, error) {
	if act == nil || nextWeights == nil {
		return nil, fmt.Errorf("webgpu.HiddenErrors: missing activation or weights")
	}
	nextOut, out := nextWeights.Dims()
	if err := backend.CheckBatch("webgpu.HiddenErrors z", z, -1, out); err != nil {
		return nil, err
	}
	if err := backend.CheckBatch("webgpu.HiddenErrors node values", nextNodeValues, z.Batch(), nextOut); err != nil {
		return nil, err
	}
	if err := registered(act); err != nil {
		return nil, err
	}
	code, err := hiddenErrorsShader(act, prec)
	if err != nil {
		return nil, err
	}

	batch := z.Batch()
	n := batch * out
	ar := b.newArena()
	defer ar.release()

	wBuf := ar.storage(narrow(flatten(nextWeights)))
	vBuf := ar.storage(narrow(nextNodeValues.Data()))
	zBuf := ar.storage(narrow(z.Data()))
	result := ar.output(n)
	//nolint:gosec // G115: Safe conversion, dimensions are positive
	params := ar.uniform(uint32(batch), 0, uint32(out), uint32(nextOut))

	err = b.run(pass{
		kernel:     kernelName("hidden_errors", act.Name(), prec),
		code:       code,
		bindings:   []*gpuBuffer{wBuf, vBuf, zBuf, result, params},
		workgroups: [3]uint32{groups(n, workgroupSize), 1, 1},
	})
	if err != nil {
		return nil, err
	}
	return b.readTensor(result, tensor.Shape{batch, out, 1})
}

// WeightGradients returns Σ_b nodeValues[b]·inputs[b]ᵀ.
func (b *Backend) WeightGradients(nodeValues, inputs *tensor.Tensor, prec backend.Precision) (*mat.Dense, error) {
	if err := backend.CheckBatch("webgpu.WeightGradients node values", nodeValues, -1, -1); err != nil {
		return nil, err
	}
	if err := backend.CheckBatch("webgpu.WeightGradients inputs", inputs, nodeValues.Batch(), -1); err != nil {
		return nil, err
	}
	batch, out, in := nodeValues.Batch(), nodeValues.Rows(), inputs.Rows()

	ar := b.newArena()
	defer ar.release()

	dBuf := ar.storage(narrow(nodeValues.Data()))
	xBuf := ar.storage(narrow(inputs.Data()))
	result := ar.output(out * in)
	//nolint:gosec // G115: Safe conversion, dimensions are positive
	params := ar.uniform(uint32(batch), uint32(in), uint32(out), 0)

	err := b.run(pass{
		kernel:     kernelName("weight_grad", prec),
		code:       weightGradShader(prec),
		bindings:   []*gpuBuffer{dBuf, xBuf, result, params},
		workgroups: [3]uint32{groups(out*in, workgroupSize), 1, 1},
	})
	if err != nil {
		return nil, err
	}
	values, err := b.read(result)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(out, in, values), nil
}

// BiasGradients returns Σ_b nodeValues[b].
func (b *Backend) BiasGradients(nodeValues *tensor.Tensor, prec backend.Precision) (*mat.Dense, error) {
	if err := backend.CheckBatch("webgpu.BiasGradients node values", nodeValues, -1, -1); err != nil {
		return nil, err
	}
	batch, out := nodeValues.Batch(), nodeValues.Rows()

	ar := b.newArena()
	defer ar.release()

	dBuf := ar.storage(narrow(nodeValues.Data()))
	result := ar.output(out)
	//nolint:gosec // G115: Safe conversion, dimensions are positive
	params := ar.uniform(uint32(batch), 0, uint32(out), 0)

	err := b.run(pass{
		kernel:     kernelName("bias_grad", prec),
		code:       biasGradShader(prec),
		bindings:   []*gpuBuffer{dBuf, result, params},
		workgroups: [3]uint32{groups(out, workgroupSize), 1, 1},
	})
	if err != nil {
		return nil, err
	}
	values, err := b.read(result)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(out, 1, values), nil
}

func (b *Backend) readTensor(src *gpuBuffer, shape tensor.Shape) (*tensor.Tensor, error) {
	values, err := b.read(src)
	if err != nil {
		return nil, err
	}
	return tensor.FromSlice(values, shape)
}

// registered rejects activations that are not the registry's own, since only
// those have WGSL kernels.
func registered(act activation.Activation) error {
	known, err := activation.FromIndex(act.Index())
	if err != nil || known.Name() != act.Name() {
		return fmt.Errorf("webgpu: activation %q has no kernel: %w", act.Name(), backend.ErrBackendUnavailable)
	}
	return nil
}

// flatten copies m into a row-major slice.
func flatten(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}
