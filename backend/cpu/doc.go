// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for batched dense layer math.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Parallel fan-out over the batch axis
//   - Per-worker partial sums for gradient reductions
//   - Full (float64) and reduced (float32) precision
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/dense/backend/cpu"
//	    "github.com/born-ml/dense/nn"
//	)
//
//	func main() {
//	    d := nn.NewDispatcher(nn.WithBackend(cpu.New()))
//	    model, _ := nn.NewLayer(784, 10, nn.WithDispatcher(d))
//	    a, err := model.ForwardBatch(x, &nn.ParallelLearnData{})
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each call allocates its own
// outputs and does not share mutable state.
package cpu
