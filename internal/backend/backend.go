// Package backend defines the dispatch contract a dense layer consumes from
// its compute backends (CPU batch, WebGPU).
package backend

import (
	"errors"

	"github.com/born-ml/dense/internal/activation"
	"github.com/born-ml/dense/internal/cost"
	"github.com/born-ml/dense/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// ErrBackendUnavailable is returned when work is dispatched to a backend that
// is not initialized or has no usable device.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Device identifies where a backend executes.
type Device int

// Supported devices.
const (
	CPU Device = iota
	WebGPU
)

// String returns the device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "cpu"
	case WebGPU:
		return "webgpu"
	default:
		return "unknown"
	}
}

// Precision selects the arithmetic a backend uses for one dispatch.
type Precision int

// Precision modes.
const (
	// Full is the desktop mode: float64 on CPU, compensated f32 sums on GPU.
	Full Precision = iota
	// Reduced is the constrained-device mode: plain float32 arithmetic.
	Reduced
)

// String returns the precision name.
func (p Precision) String() string {
	if p == Reduced {
		return "reduced"
	}
	return "full"
}

// Params are the layer parameters a backend reads for one dispatch.
// Backends never modify them.
type Params struct {
	Weights    *mat.Dense // [out, in]
	Biases     *mat.Dense // [out, 1]
	Activation activation.Activation
}

// Backend executes the dense-layer kernels.
//
// Every batched tensor has shape [batch, rows, 1]. A dispatch either returns
// a complete result or an error; there are no partial results.
//
// Implementations:
//   - internal/backend/cpu: gonum on goroutines, float64 or float32
//   - internal/backend/webgpu: WGSL compute shaders via go-webgpu
type Backend interface {
	// Name returns a human-readable backend name.
	Name() string
	// Device returns where the backend executes.
	Device() Device
	// Available reports whether the backend can accept work right now.
	Available() bool

	// Forward computes z = W·x + b and a = activation(z) for one example.
	Forward(p Params, x *mat.Dense, prec Precision) (z, a *mat.Dense, err error)
	// ForwardBatch computes z and a for every example of x.
	ForwardBatch(p Params, x *tensor.Tensor, prec Precision) (z, a *tensor.Tensor, err error)
	// OutputErrors computes costDerivative(a, expected) ⊙ activation'(z) per example.
	OutputErrors(act activation.Activation, c cost.Cost, z, a, expected *tensor.Tensor, prec Precision) (*tensor.Tensor, error)
	// HiddenErrors computes (nextWeightsᵀ·nextNodeValues) ⊙ activation'(z) per example.
	HiddenErrors(act activation.Activation, nextWeights *mat.Dense, nextNodeValues, z *tensor.Tensor, prec Precision) (*tensor.Tensor, error)
	// WeightGradients returns Σ_b nodeValues[b]·inputs[b]ᵀ.
	WeightGradients(nodeValues, inputs *tensor.Tensor, prec Precision) (*mat.Dense, error)
	// BiasGradients returns Σ_b nodeValues[b].
	BiasGradients(nodeValues *tensor.Tensor, prec Precision) (*mat.Dense, error)
}
