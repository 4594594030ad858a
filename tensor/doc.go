// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the batched tensor used by the dense layer's batch
// path.
//
// # Overview
//
// A Tensor stacks equally shaped matrices along a leading batch axis:
// [batch, rows, cols], float64, row-major. Single examples are plain gonum
// *mat.Dense column vectors; Matrix(i) returns a view of example i that
// shares memory with the tensor.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/dense/tensor"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    x, err := tensor.FromMatrices(
//	        mat.NewDense(2, 1, []float64{0, 1}),
//	        mat.NewDense(2, 1, []float64{1, 0}),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(x.Shape()) // [2, 2, 1]
//	}
//
// # Errors
//
// Shape violations are never reshaped or truncated. They are reported as a
// *ShapeError that unwraps to ErrDimensionMismatch:
//
//	if errors.Is(err, tensor.ErrDimensionMismatch) { ... }
package tensor
