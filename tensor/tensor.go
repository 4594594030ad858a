// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/dense/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a batch of equally shaped matrices, [batch, rows, cols].
type Tensor = tensor.Tensor

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// ShapeError describes an operand whose shape an operation rejected.
type ShapeError = tensor.ShapeError

// ErrDimensionMismatch is wrapped by every shape error.
var ErrDimensionMismatch = tensor.ErrDimensionMismatch

// New creates a zero-filled tensor with shape [batch, rows, cols].
func New(batch, rows, cols int) (*Tensor, error) {
	return tensor.New(batch, rows, cols)
}

// FromSlice creates a tensor from a copy of data.
//
// Example:
//
//	x, err := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2, 1})
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// FromMatrices stacks matrices of identical shape along a new batch axis.
func FromMatrices(ms ...*mat.Dense) (*Tensor, error) {
	return tensor.FromMatrices(ms...)
}
