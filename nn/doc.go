// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides a fully connected layer with backpropagation and its
// building blocks.
//
// # Overview
//
// This package contains:
//   - Layer: dense layer with forward, backward, gradient accumulation and
//     momentum updates
//   - LearnData, ParallelLearnData: per-example and per-batch scratch state
//   - Activations: Sigmoid, TanH, ReLU, SiLU, Softmax
//   - Costs: MeanSquaredError, CrossEntropy
//   - Dispatcher: routes work to the CPU or a GPU backend
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/dense/nn"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    hidden, _ := nn.NewLayer(2, 3)
//	    output, _ := nn.NewLayer(3, 1)
//
//	    x := mat.NewDense(2, 1, []float64{0, 1})
//	    y := mat.NewDense(1, 1, []float64{1})
//
//	    hiddenData := nn.NewLearnData(2, 3)
//	    outputData := nn.NewLearnData(3, 1)
//	    h, _ := hidden.ForwardLearn(x, hiddenData)
//	    output.ForwardLearn(h, outputData)
//
//	    output.ComputeOutputErrors(outputData, y, nn.MeanSquaredError{})
//	    hidden.ComputeHiddenErrors(hiddenData, output, outputData.NodeValues)
//	    output.AccumulateGradients(outputData)
//	    hidden.AccumulateGradients(hiddenData)
//
//	    output.ApplyGradients(0.5, 0, 0.9)
//	    hidden.ApplyGradients(0.5, 0, 0.9)
//	}
//
// # Concurrency
//
// Many goroutines may run forward, backward and AccumulateGradients against
// the same layers within one mini-batch. ApplyGradients must wait until all
// of them are done; the trainer owns that barrier.
//
// # Backends
//
// Single-example forward passes use a GPU backend when one is ready and fall
// back to the CPU otherwise. Batched calls require a backend (backend/cpu or
// backend/webgpu) and fail with ErrBackendUnavailable without one.
package nn
