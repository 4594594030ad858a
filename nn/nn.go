// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/dense/internal/activation"
	"github.com/born-ml/dense/internal/backend"
	"github.com/born-ml/dense/internal/cost"
	"github.com/born-ml/dense/internal/layer"
)

// Layer

// Layer is a fully connected layer computing activation(W·x + b).
type Layer = layer.Layer

// Option configures a Layer.
type Option = layer.Option

// Snapshot is the durable state of a layer.
type Snapshot = layer.Snapshot

// NewLayer creates a dense layer with numNodesIn inputs and numNodesOut outputs.
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	hidden, err := nn.NewLayer(784, 128, nn.WithRand(rng), nn.WithActivation(nn.ReLU{}))
func NewLayer(numNodesIn, numNodesOut int, opts ...Option) (*Layer, error) {
	return layer.New(numNodesIn, numNodesOut, opts...)
}

// FromSnapshot rebuilds a layer from its durable state.
func FromSnapshot(s Snapshot, opts ...Option) (*Layer, error) {
	return layer.FromSnapshot(s, opts...)
}

// WithRand, WithActivation and WithDispatcher configure NewLayer.
var (
	WithRand       = layer.WithRand
	WithActivation = layer.WithActivation
	WithDispatcher = layer.WithDispatcher
)

// Learn data

// LearnData is per-example training scratch state.
type LearnData = layer.LearnData

// ParallelLearnData is per-batch training scratch state.
type ParallelLearnData = layer.ParallelLearnData

// NewLearnData allocates learn data for a layer.
func NewLearnData(numNodesIn, numNodesOut int) *LearnData {
	return layer.NewLearnData(numNodesIn, numNodesOut)
}

// Dispatch

// Dispatcher routes layer math to a backend.
type Dispatcher = layer.Dispatcher

// DispatcherOption configures a Dispatcher.
type DispatcherOption = layer.DispatcherOption

// DeviceClass selects full or reduced precision kernels.
type DeviceClass = layer.DeviceClass

// StrategyKind identifies an execution path.
type StrategyKind = layer.StrategyKind

// Device classes.
const (
	Desktop     = layer.Desktop
	Constrained = layer.Constrained
)

// Strategies.
const (
	CPUSingle  = layer.CPUSingle
	CPUBatch   = layer.CPUBatch
	GPUFull    = layer.GPUFull
	GPUReduced = layer.GPUReduced
)

// NewDispatcher creates a Dispatcher.
//
// Example:
//
//	d := nn.NewDispatcher(nn.WithBackend(cpu.New()), nn.WithLogger(slog.Default()))
//	l, err := nn.NewLayer(4, 2, nn.WithDispatcher(d))
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	return layer.NewDispatcher(opts...)
}

// WithBackend, WithDeviceClass and WithLogger configure NewDispatcher.
var (
	WithBackend     = layer.WithBackend
	WithDeviceClass = layer.WithDeviceClass
	WithLogger      = layer.WithLogger
)

// SelectStrategy picks the single-example strategy.
func SelectStrategy(gpuReady bool, class DeviceClass) StrategyKind {
	return layer.SelectStrategy(gpuReady, class)
}

// Backend is the contract implemented by backend/cpu and backend/webgpu.
type Backend = backend.Backend

// Activations

// Activation is an activation function with a stable registry index.
type Activation = activation.Activation

// Registered activations.
type (
	Sigmoid = activation.Sigmoid
	TanH    = activation.TanH
	ReLU    = activation.ReLU
	SiLU    = activation.SiLU
	Softmax = activation.Softmax
)

// ActivationFromIndex returns the registered activation for index.
func ActivationFromIndex(index int) (Activation, error) {
	return activation.FromIndex(index)
}

// Costs

// Cost is a cost function seeding backpropagation.
type Cost = cost.Cost

// Registered costs.
type (
	MeanSquaredError = cost.MeanSquaredError
	CrossEntropy     = cost.CrossEntropy
)

// Errors

var (
	ErrInvalidSize           = layer.ErrInvalidSize
	ErrMissingForward        = layer.ErrMissingForward
	ErrInvalidHyperparameter = layer.ErrInvalidHyperparameter
	ErrUnknownActivation     = activation.ErrUnknownActivation
	ErrBackendUnavailable    = backend.ErrBackendUnavailable
)
