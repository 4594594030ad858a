package backend

import (
	"fmt"

	"github.com/born-ml/dense/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// CheckParams validates that weights and biases describe an [out, in] layer.
func CheckParams(op string, p Params) (in, out int, err error) {
	if p.Weights == nil || p.Biases == nil {
		return 0, 0, fmt.Errorf("%s: missing weights or biases", op)
	}
	if p.Activation == nil {
		return 0, 0, fmt.Errorf("%s: missing activation", op)
	}
	out, in = p.Weights.Dims()
	if err := tensor.Mismatch(op+" biases", tensor.Shape{out, 1}, tensor.DimsOf(p.Biases)); err != nil {
		return 0, 0, err
	}
	return in, out, nil
}

// CheckColumn validates that m is a [rows, 1] column vector.
func CheckColumn(op string, m *mat.Dense, rows int) error {
	if m == nil {
		return fmt.Errorf("%s: nil matrix", op)
	}
	return tensor.Mismatch(op, tensor.Shape{rows, 1}, tensor.DimsOf(m))
}

// CheckBatch validates that t has shape [batch, rows, 1]. A negative batch or
// rows accepts any size along that axis.
func CheckBatch(op string, t *tensor.Tensor, batch, rows int) error {
	if t == nil {
		return fmt.Errorf("%s: nil tensor", op)
	}
	if batch < 0 {
		batch = t.Batch()
	}
	if rows < 0 {
		rows = t.Rows()
	}
	return tensor.Mismatch(op, tensor.Shape{batch, rows, 1}, t.Shape())
}
