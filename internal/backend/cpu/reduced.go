package cpu

import (
	"github.com/born-ml/dense/internal/activation"
	"github.com/born-ml/dense/internal/backend"
	"gonum.org/v1/gonum/mat"
)

// forwardReduced computes z and a with float32 operands and accumulators.
func forwardReduced(p backend.Params, x, z, a *mat.Dense) {
	out, in := p.Weights.Dims()
	z32 := make([]float32, out)
	for i := 0; i < out; i++ {
		sum := float32(0)
		for j := 0; j < in; j++ {
			sum += float32(p.Weights.At(i, j)) * float32(x.At(j, 0))
		}
		z32[i] = sum + float32(p.Biases.At(i, 0))
	}

	a32 := activate32(p.Activation, z32)
	for i := range z32 {
		z.Set(i, 0, float64(z32[i]))
		a.Set(i, 0, float64(a32[i]))
	}
}

// derivative evaluates act' on one example at the requested precision.
func derivative(act activation.Activation, z *mat.Dense, prec backend.Precision) *mat.Dense {
	if prec != backend.Reduced {
		return act.Derivative(z)
	}
	r, _ := z.Dims()
	var d32 []float32
	if reduced, ok := act.(activation.Reduced); ok {
		d32 = reduced.Derivative32(toFloat32(z))
	} else {
		d32 = toFloat32(act.Derivative(z))
	}
	return mat.NewDense(r, 1, toFloat64(d32))
}

// activate32 evaluates act in single precision, widening only when the
// activation has no float32 implementation.
func activate32(act activation.Activation, z []float32) []float32 {
	if reduced, ok := act.(activation.Reduced); ok {
		return reduced.Activate32(z)
	}
	return toFloat32(act.Activate(mat.NewDense(len(z), 1, toFloat64(z))))
}

// mulElem writes a ⊙ b into dst.
func mulElem(dst, a, b *mat.Dense, prec backend.Precision) {
	if prec != backend.Reduced {
		dst.MulElem(a, b)
		return
	}
	dst.Apply(func(i, j int, _ float64) float64 {
		return float64(float32(a.At(i, j)) * float32(b.At(i, j)))
	}, dst)
}

// mulTransposed returns wᵀ·v.
func mulTransposed(w, v *mat.Dense, prec backend.Precision) *mat.Dense {
	rows, cols := w.Dims()
	out := mat.NewDense(cols, 1, nil)
	if prec != backend.Reduced {
		out.Mul(w.T(), v)
		return out
	}
	for j := 0; j < cols; j++ {
		sum := float32(0)
		for i := 0; i < rows; i++ {
			sum += float32(w.At(i, j)) * float32(v.At(i, 0))
		}
		out.Set(j, 0, float64(sum))
	}
	return out
}

// accumulate returns acc + a·b at the requested precision.
func accumulate(acc, a, b float64, prec backend.Precision) float64 {
	if prec != backend.Reduced {
		return acc + a*b
	}
	return float64(float32(acc) + float32(a)*float32(b))
}

func toFloat32(m mat.Matrix) []float32 {
	r, c := m.Dims()
	out := make([]float32, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, float32(m.At(i, j)))
		}
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
