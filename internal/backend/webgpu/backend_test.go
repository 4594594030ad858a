//go:build windows

package webgpu

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/born-ml/dense/internal/activation"
	"github.com/born-ml/dense/internal/backend"
	"github.com/born-ml/dense/internal/backend/cpu"
	"github.com/born-ml/dense/internal/cost"
	"github.com/born-ml/dense/internal/tensor"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	gpu, err := New()
	if err != nil {
		t.Logf("WebGPU not available: %v", err)
		t.Skip("WebGPU not available on this system")
	}
	t.Cleanup(gpu.Release)
	return gpu
}

func randomDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(r, c, data)
}

func randomBatch(t *testing.T, rng *rand.Rand, batch, rows int) *tensor.Tensor {
	t.Helper()
	data := make([]float64, batch*rows)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	x, err := tensor.FromSlice(data, tensor.Shape{batch, rows, 1})
	require.NoError(t, err)
	return x
}

func TestIsAvailable(t *testing.T) {
	t.Logf("WebGPU available: %v", IsAvailable())
}

func TestNew(t *testing.T) {
	gpu := newTestBackend(t)

	assert.NotEmpty(t, gpu.Name())
	assert.Equal(t, backend.WebGPU, gpu.Device())
	assert.True(t, gpu.Available())
	t.Logf("Backend name: %s", gpu.Name())
}

func TestAdapterName(t *testing.T) {
	tests := []struct {
		name string
		info *wgpu.AdapterInfoGo
		want string
	}{
		{"no info", nil, "WebGPU"},
		{"empty info", &wgpu.AdapterInfoGo{}, "WebGPU"},
		{"device and vendor", &wgpu.AdapterInfoGo{Device: "RTX 4070", Vendor: "NVIDIA"}, "WebGPU (RTX 4070 NVIDIA)"},
		{"vendor only", &wgpu.AdapterInfoGo{Vendor: "Intel"}, "WebGPU (Intel)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adapterName(tt.info))
		})
	}
}

func TestRelease_MarksUnavailable(t *testing.T) {
	gpu, err := New()
	if err != nil {
		t.Skip("WebGPU not available on this system")
	}
	gpu.Release()
	assert.False(t, gpu.Available())

	_, _, err = gpu.Forward(backend.Params{
		Weights:    mat.NewDense(1, 1, []float64{1}),
		Biases:     mat.NewDense(1, 1, nil),
		Activation: activation.ReLU{},
	}, mat.NewDense(1, 1, []float64{1}), backend.Full)
	assert.True(t, errors.Is(err, backend.ErrBackendUnavailable))
}

func TestMatchesCPU(t *testing.T) {
	gpu := newTestBackend(t)
	ref := cpu.New()
	rng := rand.New(rand.NewSource(5))

	for _, act := range activation.All() {
		for _, prec := range []backend.Precision{backend.Full, backend.Reduced} {
			t.Run(act.Name()+"_"+prec.String(), func(t *testing.T) {
				p := backend.Params{
					Weights:    randomDense(rng, 4, 3),
					Biases:     randomDense(rng, 4, 1),
					Activation: act,
				}
				x := randomBatch(t, rng, 6, 3)
				expected := randomBatch(t, rng, 6, 4)

				zWant, aWant, err := ref.ForwardBatch(p, x, backend.Full)
				require.NoError(t, err)
				z, a, err := gpu.ForwardBatch(p, x, prec)
				require.NoError(t, err)
				assert.InDeltaSlice(t, zWant.Data(), z.Data(), 1e-4)
				assert.InDeltaSlice(t, aWant.Data(), a.Data(), 1e-4)

				eWant, err := ref.OutputErrors(act, cost.MeanSquaredError{}, zWant, aWant, expected, backend.Full)
				require.NoError(t, err)
				e, err := gpu.OutputErrors(act, cost.MeanSquaredError{}, zWant, aWant, expected, prec)
				require.NoError(t, err)
				assert.InDeltaSlice(t, eWant.Data(), e.Data(), 1e-4)

				next := randomDense(rng, 2, 4)
				nextValues := randomBatch(t, rng, 6, 2)
				hWant, err := ref.HiddenErrors(act, next, nextValues, zWant, backend.Full)
				require.NoError(t, err)
				h, err := gpu.HiddenErrors(act, next, nextValues, zWant, prec)
				require.NoError(t, err)
				assert.InDeltaSlice(t, hWant.Data(), h.Data(), 1e-4)

				gwWant, err := ref.WeightGradients(eWant, x, backend.Full)
				require.NoError(t, err)
				gw, err := gpu.WeightGradients(eWant, x, prec)
				require.NoError(t, err)
				assert.InDeltaSlice(t, gwWant.RawMatrix().Data, gw.RawMatrix().Data, 1e-3)

				gbWant, err := ref.BiasGradients(eWant, backend.Full)
				require.NoError(t, err)
				gb, err := gpu.BiasGradients(eWant, prec)
				require.NoError(t, err)
				assert.InDeltaSlice(t, gbWant.RawMatrix().Data, gb.RawMatrix().Data, 1e-3)
			})
		}
	}
}

type scaled struct{ activation.ReLU }

func (scaled) Name() string { return "scaled" }

func TestUnregisteredActivation(t *testing.T) {
	gpu := newTestBackend(t)
	p := backend.Params{
		Weights:    mat.NewDense(1, 1, []float64{1}),
		Biases:     mat.NewDense(1, 1, nil),
		Activation: scaled{},
	}

	_, _, err := gpu.Forward(p, mat.NewDense(1, 1, []float64{1}), backend.Full)
	assert.True(t, errors.Is(err, backend.ErrBackendUnavailable))
}
