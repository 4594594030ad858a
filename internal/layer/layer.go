// Package layer implements a fully connected neural network layer with
// backpropagation, concurrent gradient accumulation and momentum updates.
//
// A trainer drives each layer through one optimization step as
//
//	ForwardLearn → ComputeOutputErrors / ComputeHiddenErrors → AccumulateGradients
//
// for every example (possibly from many goroutines), then calls
// ApplyGradients once after all workers are done. The batched variants do
// the same for a whole [batch, rows, 1] tensor through a backend.
package layer

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/born-ml/dense/internal/activation"
	"github.com/born-ml/dense/internal/backend"
	"github.com/born-ml/dense/internal/cost"
	"github.com/born-ml/dense/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Layer is a dense layer computing a = activation(W·x + b).
//
// Forward and error computations do not mutate the layer and may run
// concurrently. AccumulateGradients may also run concurrently; the weight and
// bias accumulators are guarded by independent mutexes. ApplyGradients must
// not overlap with accumulation on the same layer: the trainer provides that
// barrier.
type Layer struct {
	numNodesIn  int
	numNodesOut int

	weights *mat.Dense // [out, in]
	biases  *mat.Dense // [out, 1]

	activation      activation.Activation
	activationIndex int

	weightGradMu       sync.Mutex
	costGradientWeight *mat.Dense

	biasGradMu       sync.Mutex
	costGradientBias *mat.Dense

	// Momentum state, kept across steps.
	weightVelocity *mat.Dense
	biasVelocity   *mat.Dense

	dispatcher *Dispatcher
}

type options struct {
	rng        *rand.Rand
	activation activation.Activation
	dispatcher *Dispatcher
}

// Option configures a Layer.
type Option func(*options)

// WithRand sets the random source for weight initialization.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithActivation sets the activation function (Sigmoid by default).
// A nil activation keeps the default.
func WithActivation(act activation.Activation) Option {
	return func(o *options) {
		if act != nil {
			o.activation = act
		}
	}
}

// WithDispatcher sets the dispatcher used for backend execution.
func WithDispatcher(d *Dispatcher) Option {
	return func(o *options) {
		o.dispatcher = d
	}
}

// New creates a layer with numNodesIn inputs and numNodesOut outputs.
//
// Weights are drawn from a normal distribution scaled by 1/sqrt(numNodesIn).
// Biases, gradient accumulators and velocities start at zero.
//
// Parameters:
//   - numNodesIn: Number of inputs, at least 1
//   - numNodesOut: Number of outputs, at least 1
//   - opts: WithRand, WithActivation, WithDispatcher
//
// Without WithRand a fixed-seed source is used, so construction is
// reproducible.
//
// Example:
//
//	hidden, err := layer.New(2, 3, layer.WithRand(rand.New(rand.NewSource(42))))
//	output, err := layer.New(3, 1, layer.WithActivation(activation.TanH{}))
func New(numNodesIn, numNodesOut int, opts ...Option) (*Layer, error) {
	if numNodesIn < 1 || numNodesOut < 1 {
		return nil, fmt.Errorf("%w: got %d inputs, %d outputs", ErrInvalidSize, numNodesIn, numNodesOut)
	}

	o := options{
		activation: activation.Sigmoid{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(1)) //nolint:gosec // G404: weight init does not need crypto randomness
	}
	if o.dispatcher == nil {
		o.dispatcher = NewDispatcher()
	}

	l := &Layer{
		numNodesIn:         numNodesIn,
		numNodesOut:        numNodesOut,
		weights:            mat.NewDense(numNodesOut, numNodesIn, nil),
		biases:             mat.NewDense(numNodesOut, 1, nil),
		costGradientWeight: mat.NewDense(numNodesOut, numNodesIn, nil),
		costGradientBias:   mat.NewDense(numNodesOut, 1, nil),
		weightVelocity:     mat.NewDense(numNodesOut, numNodesIn, nil),
		biasVelocity:       mat.NewDense(numNodesOut, 1, nil),
		dispatcher:         o.dispatcher,
	}
	l.SetActivation(o.activation)
	l.InitializeRandomWeights(o.rng)

	return l, nil
}

// NumNodesIn returns the number of inputs.
func (l *Layer) NumNodesIn() int { return l.numNodesIn }

// NumNodesOut returns the number of outputs.
func (l *Layer) NumNodesOut() int { return l.numNodesOut }

// Weights returns a copy of the [out, in] weight matrix.
func (l *Layer) Weights() *mat.Dense { return mat.DenseCopyOf(l.weights) }

// Biases returns a copy of the [out, 1] bias vector.
func (l *Layer) Biases() *mat.Dense { return mat.DenseCopyOf(l.biases) }

// WeightGradient returns a copy of the accumulated weight gradient.
func (l *Layer) WeightGradient() *mat.Dense {
	l.weightGradMu.Lock()
	defer l.weightGradMu.Unlock()
	return mat.DenseCopyOf(l.costGradientWeight)
}

// BiasGradient returns a copy of the accumulated bias gradient.
func (l *Layer) BiasGradient() *mat.Dense {
	l.biasGradMu.Lock()
	defer l.biasGradMu.Unlock()
	return mat.DenseCopyOf(l.costGradientBias)
}

// Dispatcher returns the layer's dispatcher.
func (l *Layer) Dispatcher() *Dispatcher { return l.dispatcher }

// SetDispatcher replaces the dispatcher, for example after a GPU backend
// becomes available. It must not race with in-flight calls.
func (l *Layer) SetDispatcher(d *Dispatcher) {
	if d == nil {
		d = NewDispatcher()
	}
	l.dispatcher = d
}

func (l *Layer) params() backend.Params {
	return backend.Params{
		Weights:    l.weights,
		Biases:     l.biases,
		Activation: l.activation,
	}
}

// Forward computes the layer output for one example without side effects.
//
// Input shape: [numNodesIn, 1]
// Output shape: [numNodesOut, 1]
//
// Uses the GPU when the dispatcher has one ready and falls back to the CPU
// otherwise; callers never see backend availability errors here.
func (l *Layer) Forward(x *mat.Dense) (*mat.Dense, error) {
	if err := backend.CheckColumn("layer.Forward input", x, l.numNodesIn); err != nil {
		return nil, err
	}
	_, a := l.dispatcher.forward(l.params(), x)
	return a, nil
}

// ForwardLearn computes the layer output for one example and records the
// inputs, weighted inputs and activations in ld for backpropagation.
func (l *Layer) ForwardLearn(x *mat.Dense, ld *LearnData) (*mat.Dense, error) {
	if ld == nil {
		return nil, fmt.Errorf("layer.ForwardLearn: nil learn data")
	}
	if err := backend.CheckColumn("layer.ForwardLearn input", x, l.numNodesIn); err != nil {
		return nil, err
	}
	z, a := l.dispatcher.forward(l.params(), x)

	ld.Inputs = x
	ld.WeightedInputs = z
	ld.Activations = a
	return a, nil
}

// ForwardBatch computes the layer output for a [batch, numNodesIn, 1] tensor
// on the dispatcher's backend and records it in pld.
//
// There is no CPU fallback for batched execution: an unavailable backend
// yields an error wrapping backend.ErrBackendUnavailable.
func (l *Layer) ForwardBatch(x *tensor.Tensor, pld *ParallelLearnData) (*tensor.Tensor, error) {
	if pld == nil {
		return nil, fmt.Errorf("layer.ForwardBatch: nil learn data")
	}
	if err := backend.CheckBatch("layer.ForwardBatch input", x, -1, l.numNodesIn); err != nil {
		return nil, err
	}
	b, prec, err := l.dispatcher.batch("ForwardBatch")
	if err != nil {
		return nil, err
	}
	z, a, err := b.ForwardBatch(l.params(), x, prec)
	if err != nil {
		return nil, fmt.Errorf("layer: ForwardBatch: %w", err)
	}

	pld.Inputs = x
	pld.WeightedInputs = z
	pld.Activations = a
	return a, nil
}

// ComputeOutputErrors seeds backpropagation at the output layer:
//
//	nodeValues = costDerivative(a, expected) ⊙ activation'(z)
//
// ld must hold a learning forward pass; expected has shape [numNodesOut, 1].
func (l *Layer) ComputeOutputErrors(ld *LearnData, expected *mat.Dense, c cost.Cost) error {
	if c == nil {
		return fmt.Errorf("layer.ComputeOutputErrors: nil cost")
	}
	if err := l.checkForward(ld); err != nil {
		return err
	}
	if err := backend.CheckColumn("layer.ComputeOutputErrors expected", expected, l.numNodesOut); err != nil {
		return err
	}

	costDerivative := c.Derivative(ld.Activations, expected)
	if err := backend.CheckColumn("layer.ComputeOutputErrors cost derivative", costDerivative, l.numNodesOut); err != nil {
		return err
	}
	activationDerivative := l.activation.Derivative(ld.WeightedInputs)

	nodeValues := mat.NewDense(l.numNodesOut, 1, nil)
	nodeValues.MulElem(costDerivative, activationDerivative)
	ld.NodeValues = nodeValues
	return nil
}

// ComputeOutputErrorsBatch is ComputeOutputErrors for a batch, run on the
// dispatcher's backend.
func (l *Layer) ComputeOutputErrorsBatch(pld *ParallelLearnData, expected *tensor.Tensor, c cost.Cost) error {
	if c == nil {
		return fmt.Errorf("layer.ComputeOutputErrorsBatch: nil cost")
	}
	if err := l.checkForwardBatch(pld); err != nil {
		return err
	}
	b, prec, err := l.dispatcher.batch("ComputeOutputErrorsBatch")
	if err != nil {
		return err
	}
	nodeValues, err := b.OutputErrors(l.activation, c, pld.WeightedInputs, pld.Activations, expected, prec)
	if err != nil {
		return fmt.Errorf("layer: ComputeOutputErrorsBatch: %w", err)
	}
	pld.NodeValues = nodeValues
	return nil
}

// ComputeHiddenErrors propagates the error signal of the next layer back
// through its weights:
//
//	nodeValues = (next.Wᵀ · nextNodeValues) ⊙ activation'(z)
//
// next must take this layer's outputs as inputs and nextNodeValues has
// shape [next.NumNodesOut(), 1].
func (l *Layer) ComputeHiddenErrors(ld *LearnData, next *Layer, nextNodeValues *mat.Dense) error {
	if err := l.checkForward(ld); err != nil {
		return err
	}
	if err := l.checkNext("layer.ComputeHiddenErrors", next); err != nil {
		return err
	}
	if err := backend.CheckColumn("layer.ComputeHiddenErrors next node values", nextNodeValues, next.numNodesOut); err != nil {
		return err
	}

	nodeValues := mat.NewDense(l.numNodesOut, 1, nil)
	nodeValues.Mul(next.weights.T(), nextNodeValues)
	nodeValues.MulElem(nodeValues, l.activation.Derivative(ld.WeightedInputs))
	ld.NodeValues = nodeValues
	return nil
}

// ComputeHiddenErrorsBatch is ComputeHiddenErrors for a batch, run on the
// dispatcher's backend.
func (l *Layer) ComputeHiddenErrorsBatch(pld *ParallelLearnData, next *Layer, nextNodeValues *tensor.Tensor) error {
	if err := l.checkForwardBatch(pld); err != nil {
		return err
	}
	if err := l.checkNext("layer.ComputeHiddenErrorsBatch", next); err != nil {
		return err
	}
	b, prec, err := l.dispatcher.batch("ComputeHiddenErrorsBatch")
	if err != nil {
		return err
	}
	nodeValues, err := b.HiddenErrors(l.activation, next.weights, nextNodeValues, pld.WeightedInputs, prec)
	if err != nil {
		return fmt.Errorf("layer: ComputeHiddenErrorsBatch: %w", err)
	}
	pld.NodeValues = nodeValues
	return nil
}

// AccumulateGradients adds this example's gradients to the accumulators:
//
//	costGradientWeight += nodeValues · inputsᵀ
//	costGradientBias   += nodeValues
//
// Safe for concurrent use by many workers on the same layer.
func (l *Layer) AccumulateGradients(ld *LearnData) error {
	if ld == nil || ld.Inputs == nil || ld.NodeValues == nil {
		return ErrMissingForward
	}
	if err := backend.CheckColumn("layer.AccumulateGradients inputs", ld.Inputs, l.numNodesIn); err != nil {
		return err
	}
	if err := backend.CheckColumn("layer.AccumulateGradients node values", ld.NodeValues, l.numNodesOut); err != nil {
		return err
	}

	var weightGradient mat.Dense
	weightGradient.Mul(ld.NodeValues, ld.Inputs.T())

	l.addGradients(&weightGradient, ld.NodeValues)
	return nil
}

// AccumulateGradientsBatch adds the batch-summed gradients, reduced on the
// dispatcher's backend, to the accumulators.
func (l *Layer) AccumulateGradientsBatch(pld *ParallelLearnData) error {
	if pld == nil || pld.Inputs == nil || pld.NodeValues == nil {
		return ErrMissingForward
	}
	if err := backend.CheckBatch("layer.AccumulateGradientsBatch inputs", pld.Inputs, -1, l.numNodesIn); err != nil {
		return err
	}
	if err := backend.CheckBatch("layer.AccumulateGradientsBatch node values", pld.NodeValues, pld.Inputs.Batch(), l.numNodesOut); err != nil {
		return err
	}
	b, prec, err := l.dispatcher.batch("AccumulateGradientsBatch")
	if err != nil {
		return err
	}

	biasGradient, err := b.BiasGradients(pld.NodeValues, prec)
	if err != nil {
		return fmt.Errorf("layer: AccumulateGradientsBatch: %w", err)
	}
	weightGradient, err := b.WeightGradients(pld.NodeValues, pld.Inputs, prec)
	if err != nil {
		return fmt.Errorf("layer: AccumulateGradientsBatch: %w", err)
	}

	l.addGradients(weightGradient, biasGradient)
	return nil
}

// addGradients adds to each accumulator inside its own critical section.
func (l *Layer) addGradients(weightGradient, biasGradient mat.Matrix) {
	l.weightGradMu.Lock()
	l.costGradientWeight.Add(l.costGradientWeight, weightGradient)
	l.weightGradMu.Unlock()

	l.biasGradMu.Lock()
	l.costGradientBias.Add(l.costGradientBias, biasGradient)
	l.biasGradMu.Unlock()
}

// ApplyGradients performs one momentum step with L2 weight decay and resets
// the gradient accumulators to zero:
//
//	weightDecay    = 1 - regularization·learnRate
//	weightVelocity = weightVelocity·momentum - costGradientWeight·learnRate
//	weights        = weights·weightDecay + weightVelocity
//	biasVelocity   = biasVelocity·momentum - costGradientBias·learnRate
//	biases        += biasVelocity
//
// Decay applies to weights only. The caller must ensure no AccumulateGradients
// call on this layer is in flight.
//
// Parameters:
//   - learnRate: Step size, > 0
//   - regularization: L2 strength, >= 0
//   - momentum: Velocity retention, in [0, 1)
func (l *Layer) ApplyGradients(learnRate, regularization, momentum float64) error {
	switch {
	case !(learnRate > 0):
		return fmt.Errorf("%w: learn rate %v must be > 0", ErrInvalidHyperparameter, learnRate)
	case !(regularization >= 0):
		return fmt.Errorf("%w: regularization %v must be >= 0", ErrInvalidHyperparameter, regularization)
	case !(momentum >= 0 && momentum < 1):
		return fmt.Errorf("%w: momentum %v must be in [0, 1)", ErrInvalidHyperparameter, momentum)
	}

	weightDecay := 1 - regularization*learnRate

	var step mat.Dense
	step.Scale(learnRate, l.costGradientWeight)
	l.weightVelocity.Scale(momentum, l.weightVelocity)
	l.weightVelocity.Sub(l.weightVelocity, &step)
	l.weights.Scale(weightDecay, l.weights)
	l.weights.Add(l.weights, l.weightVelocity)

	step.Reset()
	step.Scale(learnRate, l.costGradientBias)
	l.biasVelocity.Scale(momentum, l.biasVelocity)
	l.biasVelocity.Sub(l.biasVelocity, &step)
	l.biases.Add(l.biases, l.biasVelocity)

	l.costGradientWeight.Zero()
	l.costGradientBias.Zero()
	return nil
}

func (l *Layer) checkForward(ld *LearnData) error {
	if ld == nil || ld.WeightedInputs == nil || ld.Activations == nil {
		return ErrMissingForward
	}
	if err := backend.CheckColumn("layer weighted inputs", ld.WeightedInputs, l.numNodesOut); err != nil {
		return err
	}
	return backend.CheckColumn("layer activations", ld.Activations, l.numNodesOut)
}

func (l *Layer) checkForwardBatch(pld *ParallelLearnData) error {
	if pld == nil || pld.WeightedInputs == nil || pld.Activations == nil {
		return ErrMissingForward
	}
	if err := backend.CheckBatch("layer weighted inputs", pld.WeightedInputs, -1, l.numNodesOut); err != nil {
		return err
	}
	return backend.CheckBatch("layer activations", pld.Activations, pld.WeightedInputs.Batch(), l.numNodesOut)
}

func (l *Layer) checkNext(op string, next *Layer) error {
	if next == nil {
		return fmt.Errorf("%s: nil next layer", op)
	}
	return tensor.Mismatch(op+" next layer inputs",
		tensor.Shape{l.numNodesOut}, tensor.Shape{next.numNodesIn})
}
