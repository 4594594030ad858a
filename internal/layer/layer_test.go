package layer

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/born-ml/dense/internal/activation"
	"github.com/born-ml/dense/internal/backend/cpu"
	"github.com/born-ml/dense/internal/cost"
	"github.com/born-ml/dense/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

func newTestLayer(t *testing.T, in, out int, opts ...Option) *Layer {
	t.Helper()
	l, err := New(in, out, opts...)
	require.NoError(t, err)
	return l
}

func fromParams(t *testing.T, weights, biases []float64, in, out int, act activation.Activation) *Layer {
	t.Helper()
	l, err := FromSnapshot(Snapshot{
		NumNodesIn:      in,
		NumNodesOut:     out,
		Weights:         weights,
		Biases:          biases,
		ActivationIndex: act.Index(),
	})
	require.NoError(t, err)
	return l
}

func randomColumn(rng *rand.Rand, rows int) *mat.Dense {
	data := make([]float64, rows)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(rows, 1, data)
}

func randomTensor(t *testing.T, batch, rows int, seed int64) *tensor.Tensor {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, batch*rows)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	x, err := tensor.FromSlice(data, tensor.Shape{batch, rows, 1})
	require.NoError(t, err)
	return x
}

func TestNew_InvalidSize(t *testing.T) {
	for _, dims := range [][2]int{{0, 1}, {1, 0}, {-1, 3}} {
		_, err := New(dims[0], dims[1])
		assert.True(t, errors.Is(err, ErrInvalidSize), "dims %v", dims)
	}
}

func TestNew_Initialization(t *testing.T) {
	const in, out = 200, 200
	l := newTestLayer(t, in, out, WithRand(rand.New(rand.NewSource(42))))

	assert.Equal(t, in, l.NumNodesIn())
	assert.Equal(t, out, l.NumNodesOut())
	assert.Equal(t, activation.KindSigmoid, l.ActivationIndex())
	assert.Zero(t, mat.Sum(l.Biases()))
	assert.Zero(t, mat.Norm(l.WeightGradient(), 1))
	assert.Zero(t, mat.Norm(l.BiasGradient(), 1))

	// Weights ~ N(0, 1/in).
	w := l.Weights().RawMatrix().Data
	var mean, variance float64
	for _, v := range w {
		mean += v
	}
	mean /= float64(len(w))
	for _, v := range w {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(w))

	assert.InDelta(t, 0, mean, 0.005)
	assert.InDelta(t, 1/math.Sqrt(in), math.Sqrt(variance), 0.05/math.Sqrt(in))
}

func TestNew_ReproducibleWithInjectedRand(t *testing.T) {
	a := newTestLayer(t, 4, 3, WithRand(rand.New(rand.NewSource(7))))
	b := newTestLayer(t, 4, 3, WithRand(rand.New(rand.NewSource(7))))
	c := newTestLayer(t, 4, 3, WithRand(rand.New(rand.NewSource(8))))

	assert.Equal(t, a.Weights().RawMatrix().Data, b.Weights().RawMatrix().Data)
	assert.NotEqual(t, a.Weights().RawMatrix().Data, c.Weights().RawMatrix().Data)

	// Re-initializing with the same seed reproduces the weights.
	a.InitializeRandomWeights(rand.New(rand.NewSource(8)))
	assert.Equal(t, c.Weights().RawMatrix().Data, a.Weights().RawMatrix().Data)
}

func TestForward_OutputRows(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, dims := range [][2]int{{1, 1}, {1, 5}, {5, 1}, {7, 3}, {16, 32}} {
		t.Run(fmt.Sprintf("%dx%d", dims[0], dims[1]), func(t *testing.T) {
			l := newTestLayer(t, dims[0], dims[1])
			a, err := l.Forward(randomColumn(rng, dims[0]))
			require.NoError(t, err)
			r, c := a.Dims()
			assert.Equal(t, dims[1], r)
			assert.Equal(t, 1, c)
		})
	}
}

func TestForward_Deterministic(t *testing.T) {
	l := newTestLayer(t, 6, 4, WithActivation(activation.Softmax{}))
	x := randomColumn(rand.New(rand.NewSource(2)), 6)

	first, err := l.Forward(x)
	require.NoError(t, err)
	second, err := l.Forward(x)
	require.NoError(t, err)

	assert.Equal(t, first.RawMatrix().Data, second.RawMatrix().Data)
}

func TestForward_KnownValues(t *testing.T) {
	l := fromParams(t, []float64{1, 2, -1, 0.5}, []float64{0.5, -2}, 2, 2, activation.ReLU{})

	ld := NewLearnData(2, 2)
	x := mat.NewDense(2, 1, []float64{1, 2})
	a, err := l.ForwardLearn(x, ld)
	require.NoError(t, err)

	// z = [1+4+0.5, -1+1-2]
	assert.Equal(t, []float64{5.5, -2}, ld.WeightedInputs.RawMatrix().Data)
	assert.Equal(t, []float64{5.5, 0}, a.RawMatrix().Data)
	assert.Same(t, x, ld.Inputs)
	assert.Same(t, a, ld.Activations)
}

func TestForward_DimensionMismatch(t *testing.T) {
	l := newTestLayer(t, 3, 2)

	for _, x := range []*mat.Dense{
		mat.NewDense(2, 1, nil),
		mat.NewDense(4, 1, nil),
		mat.NewDense(3, 2, nil),
	} {
		_, err := l.Forward(x)
		assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))

		var shapeErr *tensor.ShapeError
		assert.True(t, errors.As(err, &shapeErr))

		_, err = l.ForwardLearn(x, NewLearnData(3, 2))
		assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
	}

	l.SetDispatcher(NewDispatcher(WithBackend(cpu.New())))
	_, err := l.ForwardBatch(randomTensor(t, 2, 4, 1), &ParallelLearnData{})
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
}

func TestErrors_MissingForward(t *testing.T) {
	l := newTestLayer(t, 2, 2)
	ld := NewLearnData(2, 2)

	err := l.ComputeOutputErrors(ld, mat.NewDense(2, 1, nil), cost.MeanSquaredError{})
	assert.True(t, errors.Is(err, ErrMissingForward))

	err = l.ComputeHiddenErrors(ld, newTestLayer(t, 2, 1), mat.NewDense(1, 1, nil))
	assert.True(t, errors.Is(err, ErrMissingForward))

	assert.True(t, errors.Is(l.AccumulateGradients(nil), ErrMissingForward))

	l.SetDispatcher(NewDispatcher(WithBackend(cpu.New())))
	err = l.ComputeOutputErrorsBatch(&ParallelLearnData{}, randomTensor(t, 1, 2, 1), cost.MeanSquaredError{})
	assert.True(t, errors.Is(err, ErrMissingForward))
	assert.True(t, errors.Is(l.AccumulateGradientsBatch(&ParallelLearnData{}), ErrMissingForward))
}

func TestComputeOutputErrors(t *testing.T) {
	l := fromParams(t, []float64{0, 0, 0, 0}, []float64{0, 0}, 2, 2, activation.Sigmoid{})
	ld := NewLearnData(2, 2)
	_, err := l.ForwardLearn(mat.NewDense(2, 1, []float64{1, 1}), ld)
	require.NoError(t, err)

	require.NoError(t, l.ComputeOutputErrors(ld, mat.NewDense(2, 1, []float64{1, 0}), cost.MeanSquaredError{}))

	// a = σ(0) = 0.5, σ'(0) = 0.25
	assert.InDeltaSlice(t, []float64{-0.125, 0.125}, ld.NodeValues.RawMatrix().Data, 1e-15)

	err = l.ComputeOutputErrors(ld, mat.NewDense(3, 1, nil), cost.MeanSquaredError{})
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
}

// wideCost returns a derivative with one row too many.
type wideCost struct{ cost.MeanSquaredError }

func (wideCost) Derivative(actual, _ *mat.Dense) *mat.Dense {
	r, c := actual.Dims()
	return mat.NewDense(r+1, c, nil)
}

func TestComputeOutputErrors_CostDerivativeShape(t *testing.T) {
	l := newTestLayer(t, 2, 2)
	ld := NewLearnData(2, 2)
	_, err := l.ForwardLearn(mat.NewDense(2, 1, []float64{1, -1}), ld)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		err = l.ComputeOutputErrors(ld, mat.NewDense(2, 1, []float64{1, 0}), wideCost{})
	})
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
}

func TestComputeHiddenErrors_NextLayerMismatch(t *testing.T) {
	l := newTestLayer(t, 2, 3)
	ld := NewLearnData(2, 3)
	_, err := l.ForwardLearn(mat.NewDense(2, 1, []float64{1, 2}), ld)
	require.NoError(t, err)

	err = l.ComputeHiddenErrors(ld, newTestLayer(t, 2, 1), mat.NewDense(1, 1, nil))
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))

	err = l.ComputeHiddenErrors(ld, newTestLayer(t, 3, 2), mat.NewDense(3, 1, nil))
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
}

// mazurNetwork is the 2-2-2 sigmoid network from Matt Mazur's worked
// backpropagation example.
func mazurNetwork(t *testing.T) (hidden, output *Layer) {
	t.Helper()
	hidden = fromParams(t, []float64{0.15, 0.20, 0.25, 0.30}, []float64{0.35, 0.35}, 2, 2, activation.Sigmoid{})
	output = fromParams(t, []float64{0.40, 0.45, 0.50, 0.55}, []float64{0.60, 0.60}, 2, 2, activation.Sigmoid{})
	return hidden, output
}

func backprop(t *testing.T, hidden, output *Layer, x, y *mat.Dense) {
	t.Helper()
	hiddenData := NewLearnData(hidden.NumNodesIn(), hidden.NumNodesOut())
	outputData := NewLearnData(output.NumNodesIn(), output.NumNodesOut())

	h, err := hidden.ForwardLearn(x, hiddenData)
	require.NoError(t, err)
	_, err = output.ForwardLearn(h, outputData)
	require.NoError(t, err)

	require.NoError(t, output.ComputeOutputErrors(outputData, y, cost.MeanSquaredError{}))
	require.NoError(t, hidden.ComputeHiddenErrors(hiddenData, output, outputData.NodeValues))

	require.NoError(t, output.AccumulateGradients(outputData))
	require.NoError(t, hidden.AccumulateGradients(hiddenData))
}

func TestBackprop_TwoLayerKnownGradients(t *testing.T) {
	hidden, output := mazurNetwork(t)
	x := mat.NewDense(2, 1, []float64{0.05, 0.10})
	y := mat.NewDense(2, 1, []float64{0.01, 0.99})

	backprop(t, hidden, output, x, y)

	assert.InDeltaSlice(t,
		[]float64{0.082167041, 0.082667628, -0.022602540, -0.022740242},
		output.WeightGradient().RawMatrix().Data, 1e-6)
	assert.InDeltaSlice(t,
		[]float64{0.000438568, 0.000877135, 0.000497713, 0.000995425},
		hidden.WeightGradient().RawMatrix().Data, 1e-6)
}

func TestBackprop_TwoLayerMatchesFiniteDifferences(t *testing.T) {
	x := mat.NewDense(2, 1, []float64{0.3, -0.7})
	y := mat.NewDense(2, 1, []float64{1, 0})

	hidden, output := mazurNetwork(t)
	backprop(t, hidden, output, x, y)

	hiddenSnap, outputSnap := hidden.Snapshot(), output.Snapshot()

	// totalCost evaluates the network cost with params = [hidden W, hidden b, output W, output b].
	totalCost := func(params []float64) float64 {
		hs, ps := hiddenSnap, outputSnap
		hs.Weights, hs.Biases = params[0:4], params[4:6]
		ps.Weights, ps.Biases = params[6:10], params[10:12]
		h, err := FromSnapshot(hs)
		require.NoError(t, err)
		o, err := FromSnapshot(ps)
		require.NoError(t, err)

		a1, err := h.Forward(x)
		require.NoError(t, err)
		a2, err := o.Forward(a1)
		require.NoError(t, err)
		return cost.MeanSquaredError{}.Cost(a2, y)
	}

	var params []float64
	params = append(params, hiddenSnap.Weights...)
	params = append(params, hiddenSnap.Biases...)
	params = append(params, outputSnap.Weights...)
	params = append(params, outputSnap.Biases...)

	numeric := fd.Gradient(nil, totalCost, params, &fd.Settings{Formula: fd.Central})

	var analytic []float64
	analytic = append(analytic, hidden.WeightGradient().RawMatrix().Data...)
	analytic = append(analytic, hidden.BiasGradient().RawMatrix().Data...)
	analytic = append(analytic, output.WeightGradient().RawMatrix().Data...)
	analytic = append(analytic, output.BiasGradient().RawMatrix().Data...)

	assert.InDeltaSlice(t, numeric, analytic, 1e-6)
}

func TestAccumulateGradients_Concurrent(t *testing.T) {
	const in, out = 5, 4

	for _, workers := range []int{1, 2, 8, 64} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(workers)))
			examples := make([]*LearnData, workers)
			wantW := mat.NewDense(out, in, nil)
			wantB := mat.NewDense(out, 1, nil)
			for i := range examples {
				ld := &LearnData{Inputs: randomColumn(rng, in), NodeValues: randomColumn(rng, out)}
				examples[i] = ld

				var outer mat.Dense
				outer.Mul(ld.NodeValues, ld.Inputs.T())
				wantW.Add(wantW, &outer)
				wantB.Add(wantB, ld.NodeValues)
			}

			l := newTestLayer(t, in, out)
			var wg sync.WaitGroup
			errs := make([]error, workers)
			for i, ld := range examples {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs[i] = l.AccumulateGradients(ld)
				}()
			}
			wg.Wait()

			for _, err := range errs {
				require.NoError(t, err)
			}
			assert.InDeltaSlice(t, wantW.RawMatrix().Data, l.WeightGradient().RawMatrix().Data, 1e-9)
			assert.InDeltaSlice(t, wantB.RawMatrix().Data, l.BiasGradient().RawMatrix().Data, 1e-9)
		})
	}
}

func TestAccumulateGradients_DimensionMismatch(t *testing.T) {
	l := newTestLayer(t, 3, 2)

	err := l.AccumulateGradients(&LearnData{Inputs: mat.NewDense(2, 1, nil), NodeValues: mat.NewDense(2, 1, nil)})
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))

	err = l.AccumulateGradients(&LearnData{Inputs: mat.NewDense(3, 1, nil), NodeValues: mat.NewDense(3, 1, nil)})
	assert.True(t, errors.Is(err, tensor.ErrDimensionMismatch))
}

func accumulate(t *testing.T, l *Layer, inputs, nodeValues []float64) {
	t.Helper()
	require.NoError(t, l.AccumulateGradients(&LearnData{
		Inputs:     mat.NewDense(len(inputs), 1, inputs),
		NodeValues: mat.NewDense(len(nodeValues), 1, nodeValues),
	}))
}

func TestApplyGradients_PlainGradientDescent(t *testing.T) {
	l := newTestLayer(t, 3, 2, WithRand(rand.New(rand.NewSource(3))))
	accumulate(t, l, []float64{1, -2, 0.5}, []float64{0.25, -1})
	accumulate(t, l, []float64{0, 1, 1}, []float64{2, 0.5})

	const rate = 0.3
	gradW, gradB := l.WeightGradient(), l.BiasGradient()
	wantW, wantB := l.Weights(), l.Biases()
	var step mat.Dense
	step.Scale(rate, gradW)
	wantW.Sub(wantW, &step)
	step.Reset()
	step.Scale(rate, gradB)
	wantB.Sub(wantB, &step)

	require.NoError(t, l.ApplyGradients(rate, 0, 0))

	assert.InDeltaSlice(t, wantW.RawMatrix().Data, l.Weights().RawMatrix().Data, 1e-15)
	assert.InDeltaSlice(t, wantB.RawMatrix().Data, l.Biases().RawMatrix().Data, 1e-15)
}

func TestApplyGradients_ResetsAccumulators(t *testing.T) {
	l := newTestLayer(t, 2, 3)
	accumulate(t, l, []float64{1, 2}, []float64{3, 4, 5})
	require.NotZero(t, mat.Norm(l.WeightGradient(), 1))

	require.NoError(t, l.ApplyGradients(0.1, 0.01, 0.9))

	assert.Equal(t, make([]float64, 6), l.WeightGradient().RawMatrix().Data)
	assert.Equal(t, make([]float64, 3), l.BiasGradient().RawMatrix().Data)
}

func TestApplyGradients_MomentumAndDecay(t *testing.T) {
	l := fromParams(t, []float64{0.5}, []float64{0.1}, 1, 1, activation.Sigmoid{})

	// Each step accumulates ∇W = 2, ∇b = 1.
	// Step 1: decay 0.95, vW = -0.2, W = 0.275; vb = -0.1, b = 0.
	accumulate(t, l, []float64{2}, []float64{1})
	require.NoError(t, l.ApplyGradients(0.1, 0.5, 0.9))
	assert.InDelta(t, 0.275, l.Weights().At(0, 0), 1e-12)
	assert.InDelta(t, 0.0, l.Biases().At(0, 0), 1e-12)

	// Step 2: vW = -0.38, W = 0.26125 - 0.38; vb = -0.19, b = -0.19.
	accumulate(t, l, []float64{2}, []float64{1})
	require.NoError(t, l.ApplyGradients(0.1, 0.5, 0.9))
	assert.InDelta(t, -0.11875, l.Weights().At(0, 0), 1e-12)
	assert.InDelta(t, -0.19, l.Biases().At(0, 0), 1e-12)
}

func TestApplyGradients_InvalidHyperparameters(t *testing.T) {
	tests := []struct {
		name                string
		rate, reg, momentum float64
	}{
		{"zero rate", 0, 0, 0},
		{"negative rate", -0.1, 0, 0},
		{"nan rate", math.NaN(), 0, 0},
		{"negative regularization", 0.1, -1, 0},
		{"negative momentum", 0.1, 0, -0.5},
		{"momentum one", 0.1, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLayer(t, 2, 2)
			accumulate(t, l, []float64{1, 1}, []float64{1, 1})
			before := l.Weights()

			err := l.ApplyGradients(tt.rate, tt.reg, tt.momentum)
			assert.True(t, errors.Is(err, ErrInvalidHyperparameter))
			assert.Equal(t, before.RawMatrix().Data, l.Weights().RawMatrix().Data)
			assert.NotZero(t, mat.Norm(l.WeightGradient(), 1))
		})
	}
}

func TestActivation_SetByIndex(t *testing.T) {
	l := newTestLayer(t, 2, 2)

	require.NoError(t, l.SetActivationIndex(activation.KindTanH))
	assert.Equal(t, activation.KindTanH, l.ActivationIndex())
	assert.Equal(t, "tanh", l.Activation().Name())

	err := l.SetActivationIndex(99)
	assert.True(t, errors.Is(err, activation.ErrUnknownActivation))
	assert.Equal(t, activation.KindTanH, l.ActivationIndex())

	l.SetActivation(activation.ReLU{})
	assert.Equal(t, activation.KindReLU, l.ActivationIndex())
}

func TestActivation_NilIsIgnored(t *testing.T) {
	var l *Layer
	require.NotPanics(t, func() {
		l = newTestLayer(t, 2, 2, WithActivation(nil))
	})
	assert.Equal(t, activation.KindSigmoid, l.ActivationIndex())
	assert.Equal(t, "sigmoid", l.Activation().Name())

	l.SetActivation(activation.TanH{})
	require.NotPanics(t, func() { l.SetActivation(nil) })
	assert.Equal(t, activation.KindTanH, l.ActivationIndex())
	assert.Equal(t, "tanh", l.Activation().Name())
}

func TestActivation_RestoreAllKinds(t *testing.T) {
	x := randomColumn(rand.New(rand.NewSource(9)), 4)

	for _, act := range activation.All() {
		t.Run(act.Name(), func(t *testing.T) {
			original := newTestLayer(t, 4, 3, WithActivation(act), WithRand(rand.New(rand.NewSource(5))))
			want, err := original.Forward(x)
			require.NoError(t, err)

			restored, err := FromSnapshot(original.Snapshot())
			require.NoError(t, err)
			require.NoError(t, restored.RestoreActivation())
			require.NoError(t, restored.RestoreActivation())

			got, err := restored.Forward(x)
			require.NoError(t, err)
			assert.Equal(t, want.RawMatrix().Data, got.RawMatrix().Data)
			assert.Equal(t, act.Name(), restored.Activation().Name())
		})
	}
}

func TestActivation_RestoreUnknownIndexFails(t *testing.T) {
	l := newTestLayer(t, 2, 2)
	l.activationIndex = 42

	err := l.RestoreActivation()
	assert.True(t, errors.Is(err, activation.ErrUnknownActivation))
	assert.Equal(t, "sigmoid", l.Activation().Name())
}

func TestBatch_SizeOneMatchesSingle(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for _, act := range activation.All() {
		t.Run(act.Name(), func(t *testing.T) {
			l := newTestLayer(t, 5, 3, WithActivation(act), WithDispatcher(NewDispatcher(WithBackend(cpu.New()))))
			x := randomColumn(rng, 5)

			single, err := l.Forward(x)
			require.NoError(t, err)

			batch, err := tensor.FromMatrices(x)
			require.NoError(t, err)
			pld := &ParallelLearnData{}
			a, err := l.ForwardBatch(batch, pld)
			require.NoError(t, err)

			assert.InDeltaSlice(t, single.RawMatrix().Data, a.Matrix(0).RawMatrix().Data, 1e-12)
			assert.Same(t, a, pld.Activations)
			assert.Same(t, batch, pld.Inputs)
		})
	}
}

func TestBatch_PipelineMatchesSingle(t *testing.T) {
	const batch = 6
	d := NewDispatcher(WithBackend(cpu.New()))

	newPair := func() (*Layer, *Layer) {
		rng := rand.New(rand.NewSource(21))
		hidden := newTestLayer(t, 3, 4, WithRand(rng), WithActivation(activation.TanH{}), WithDispatcher(d))
		output := newTestLayer(t, 4, 2, WithRand(rng), WithDispatcher(d))
		return hidden, output
	}
	x := randomTensor(t, batch, 3, 31)
	y := randomTensor(t, batch, 2, 32)

	hidden, output := newPair()
	for b := 0; b < batch; b++ {
		backprop(t, hidden, output, x.Matrix(b), y.Matrix(b))
	}

	hiddenB, outputB := newPair()
	hiddenData, outputData := &ParallelLearnData{}, &ParallelLearnData{}
	h, err := hiddenB.ForwardBatch(x, hiddenData)
	require.NoError(t, err)
	_, err = outputB.ForwardBatch(h, outputData)
	require.NoError(t, err)
	require.NoError(t, outputB.ComputeOutputErrorsBatch(outputData, y, cost.MeanSquaredError{}))
	require.NoError(t, hiddenB.ComputeHiddenErrorsBatch(hiddenData, outputB, outputData.NodeValues))
	require.NoError(t, outputB.AccumulateGradientsBatch(outputData))
	require.NoError(t, hiddenB.AccumulateGradientsBatch(hiddenData))

	assert.InDeltaSlice(t, output.WeightGradient().RawMatrix().Data, outputB.WeightGradient().RawMatrix().Data, 1e-9)
	assert.InDeltaSlice(t, output.BiasGradient().RawMatrix().Data, outputB.BiasGradient().RawMatrix().Data, 1e-9)
	assert.InDeltaSlice(t, hidden.WeightGradient().RawMatrix().Data, hiddenB.WeightGradient().RawMatrix().Data, 1e-9)
	assert.InDeltaSlice(t, hidden.BiasGradient().RawMatrix().Data, hiddenB.BiasGradient().RawMatrix().Data, 1e-9)
}

func TestBatch_ReducedPrecisionCloseToFull(t *testing.T) {
	x := randomTensor(t, 8, 4, 41)
	run := func(class DeviceClass) *tensor.Tensor {
		l := newTestLayer(t, 4, 3, WithDispatcher(NewDispatcher(WithBackend(cpu.New()), WithDeviceClass(class))))
		a, err := l.ForwardBatch(x, &ParallelLearnData{})
		require.NoError(t, err)
		return a
	}

	assert.InDeltaSlice(t, run(Desktop).Data(), run(Constrained).Data(), 1e-5)
}
