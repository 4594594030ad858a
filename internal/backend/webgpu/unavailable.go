//go:build !windows

// Package webgpu implements the WebGPU backend for dense layer kernels.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// The native library is only wired on Windows; elsewhere the backend always
// reports unavailable.
package webgpu

import (
	"fmt"

	"github.com/born-ml/dense/internal/activation"
	"github.com/born-ml/dense/internal/backend"
	"github.com/born-ml/dense/internal/cost"
	"github.com/born-ml/dense/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Backend is a placeholder that never holds a device.
type Backend struct{}

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

var errUnsupported = fmt.Errorf("webgpu: not supported on this platform: %w", backend.ErrBackendUnavailable)

// New always fails with an error wrapping backend.ErrBackendUnavailable.
func New() (*Backend, error) {
	return nil, errUnsupported
}

// IsAvailable reports false.
func IsAvailable() bool { return false }

// Release is a no-op.
func (b *Backend) Release() {}

// Name returns the backend name.
func (b *Backend) Name() string { return "WebGPU" }

// Device returns the compute device.
func (b *Backend) Device() backend.Device { return backend.WebGPU }

// Available reports false.
func (b *Backend) Available() bool { return false }

// Forward always fails with an error wrapping backend.ErrBackendUnavailable.
func (b *Backend) Forward(backend.Params, *mat.Dense, backend.Precision) (*mat.Dense, *mat.Dense, error) {
	return nil, nil, errUnsupported
}

// ForwardBatch always fails with an error wrapping backend.ErrBackendUnavailable.
func (b *Backend) ForwardBatch(backend.Params, *tensor.Tensor, backend.Precision) (*tensor.Tensor, *tensor.Tensor, error) {
	return nil, nil, errUnsupported
}

// OutputErrors always fails with an error wrapping backend.ErrBackendUnavailable.
func (b *Backend) OutputErrors(activation.Activation, cost.Cost, *tensor.Tensor, *tensor.Tensor, *tensor.Tensor, backend.Precision) (*tensor.Tensor, error) {
	return nil, errUnsupported
}

// HiddenErrors always fails with an error wrapping backend.ErrBackendUnavailable.
func (b *Backend) HiddenErrors(activation.Activation, *mat.Dense, *tensor.Tensor, *tensor.Tensor, backend.Precision) (*tensor.Tensor, error) {
	return nil, errUnsupported
}

// WeightGradients always fails with an error wrapping backend.ErrBackendUnavailable.
func (b *Backend) WeightGradients(*tensor.Tensor, *tensor.Tensor, backend.Precision) (*mat.Dense, error) {
	return nil, errUnsupported
}

// BiasGradients always fails with an error wrapping backend.ErrBackendUnavailable.
func (b *Backend) BiasGradients(*tensor.Tensor, backend.Precision) (*mat.Dense, error) {
	return nil, errUnsupported
}
