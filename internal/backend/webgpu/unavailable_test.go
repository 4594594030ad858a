//go:build !windows

package webgpu

import (
	"errors"
	"testing"

	"github.com/born-ml/dense/internal/backend"
	"github.com/stretchr/testify/assert"
)

func TestNew_Unsupported(t *testing.T) {
	gpu, err := New()
	assert.Nil(t, gpu)
	assert.True(t, errors.Is(err, backend.ErrBackendUnavailable))
	assert.False(t, IsAvailable())
}

func TestBackend_ReportsUnavailable(t *testing.T) {
	var gpu *Backend
	assert.False(t, gpu.Available())
	assert.Equal(t, backend.WebGPU, gpu.Device())

	_, _, err := gpu.Forward(backend.Params{}, nil, backend.Full)
	assert.True(t, errors.Is(err, backend.ErrBackendUnavailable))

	_, _, err = gpu.ForwardBatch(backend.Params{}, nil, backend.Full)
	assert.True(t, errors.Is(err, backend.ErrBackendUnavailable))

	_, err = gpu.OutputErrors(nil, nil, nil, nil, nil, backend.Full)
	assert.True(t, errors.Is(err, backend.ErrBackendUnavailable))

	_, err = gpu.HiddenErrors(nil, nil, nil, nil, backend.Full)
	assert.True(t, errors.Is(err, backend.ErrBackendUnavailable))

	_, err = gpu.WeightGradients(nil, nil, backend.Reduced)
	assert.True(t, errors.Is(err, backend.ErrBackendUnavailable))

	_, err = gpu.BiasGradients(nil, backend.Reduced)
	assert.True(t, errors.Is(err, backend.ErrBackendUnavailable))
}
