package tensor

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch reports an operand whose shape does not match what the
// operation requires. Operands are never reshaped or truncated to fit.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// ShapeError provides detailed information about a dimension mismatch.
type ShapeError struct {
	Op   string // Operation that rejected the operand
	Want Shape  // Expected shape
	Got  Shape  // Actual shape
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v: want %v, got %v", e.Op, ErrDimensionMismatch, e.Want, e.Got)
}

// Unwrap allows errors.Is(err, ErrDimensionMismatch).
func (e *ShapeError) Unwrap() error {
	return ErrDimensionMismatch
}

// Mismatch returns a *ShapeError when want and got differ, nil otherwise.
func Mismatch(op string, want, got Shape) error {
	if want.Equal(got) {
		return nil
	}
	return &ShapeError{Op: op, Want: want.Clone(), Got: got.Clone()}
}
