package activation

import (
	"math"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/mat"
)

// Sigmoid applies σ(x) = 1 / (1 + exp(-x)).
type Sigmoid struct{}

func sigmoid(x float64) float64 { return 1.0 / (1.0 + math.Exp(-x)) }

func sigmoid32(x float32) float32 { return 1.0 / (1.0 + math32.Exp(-x)) }

// Activate applies σ element-wise.
func (Sigmoid) Activate(z *mat.Dense) *mat.Dense { return apply(z, sigmoid) }

// Derivative returns σ(x)·(1-σ(x)) element-wise.
func (Sigmoid) Derivative(z *mat.Dense) *mat.Dense {
	return apply(z, func(x float64) float64 {
		s := sigmoid(x)
		return s * (1 - s)
	})
}

// Activate32 applies σ in single precision.
func (Sigmoid) Activate32(z []float32) []float32 { return apply32(z, sigmoid32) }

// Derivative32 returns σ'(x) in single precision.
func (Sigmoid) Derivative32(z []float32) []float32 {
	return apply32(z, func(x float32) float32 {
		s := sigmoid32(x)
		return s * (1 - s)
	})
}

// Index returns KindSigmoid.
func (Sigmoid) Index() int { return KindSigmoid }

// Name returns "sigmoid".
func (Sigmoid) Name() string { return "sigmoid" }

// TanH applies the hyperbolic tangent.
type TanH struct{}

// Activate applies tanh element-wise.
func (TanH) Activate(z *mat.Dense) *mat.Dense { return apply(z, math.Tanh) }

// Derivative returns 1 - tanh²(x).
func (TanH) Derivative(z *mat.Dense) *mat.Dense {
	return apply(z, func(x float64) float64 {
		t := math.Tanh(x)
		return 1 - t*t
	})
}

// Activate32 applies tanh in single precision.
func (TanH) Activate32(z []float32) []float32 { return apply32(z, math32.Tanh) }

// Derivative32 returns 1 - tanh²(x) in single precision.
func (TanH) Derivative32(z []float32) []float32 {
	return apply32(z, func(x float32) float32 {
		t := math32.Tanh(x)
		return 1 - t*t
	})
}

// Index returns KindTanH.
func (TanH) Index() int { return KindTanH }

// Name returns "tanh".
func (TanH) Name() string { return "tanh" }

// ReLU applies max(0, x).
type ReLU struct{}

// Activate applies max(0, x) element-wise.
func (ReLU) Activate(z *mat.Dense) *mat.Dense { return apply(z, func(x float64) float64 { return math.Max(0, x) }) }

// Derivative is 1 for x > 0 and 0 otherwise.
func (ReLU) Derivative(z *mat.Dense) *mat.Dense {
	return apply(z, func(x float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	})
}

// Activate32 applies max(0, x) in single precision.
func (ReLU) Activate32(z []float32) []float32 {
	return apply32(z, func(x float32) float32 { return math32.Max(0, x) })
}

// Derivative32 is the single precision ReLU derivative.
func (ReLU) Derivative32(z []float32) []float32 {
	return apply32(z, func(x float32) float32 {
		if x > 0 {
			return 1
		}
		return 0
	})
}

// Index returns KindReLU.
func (ReLU) Index() int { return KindReLU }

// Name returns "relu".
func (ReLU) Name() string { return "relu" }

// SiLU applies x·σ(x).
type SiLU struct{}

// Activate applies x·σ(x) element-wise.
func (SiLU) Activate(z *mat.Dense) *mat.Dense {
	return apply(z, func(x float64) float64 { return x * sigmoid(x) })
}

// Derivative returns σ(x) + x·σ(x)·(1-σ(x)).
func (SiLU) Derivative(z *mat.Dense) *mat.Dense {
	return apply(z, func(x float64) float64 {
		s := sigmoid(x)
		return s + x*s*(1-s)
	})
}

// Activate32 applies x·σ(x) in single precision.
func (SiLU) Activate32(z []float32) []float32 {
	return apply32(z, func(x float32) float32 { return x * sigmoid32(x) })
}

// Derivative32 is the single precision SiLU derivative.
func (SiLU) Derivative32(z []float32) []float32 {
	return apply32(z, func(x float32) float32 {
		s := sigmoid32(x)
		return s + x*s*(1-s)
	})
}

// Index returns KindSiLU.
func (SiLU) Index() int { return KindSiLU }

// Name returns "silu".
func (SiLU) Name() string { return "silu" }

// Softmax normalizes each column of z into a probability distribution.
//
// Derivative returns the diagonal of the softmax Jacobian, s·(1-s), which is
// what the element-wise backpropagation step consumes.
type Softmax struct{}

// Activate applies softmax to every column, shifted by the column max for
// numerical stability.
func (Softmax) Activate(z *mat.Dense) *mat.Dense {
	r, c := z.Dims()
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		maxVal := math.Inf(-1)
		for i := 0; i < r; i++ {
			maxVal = math.Max(maxVal, z.At(i, j))
		}
		var sum float64
		for i := 0; i < r; i++ {
			e := math.Exp(z.At(i, j) - maxVal)
			out.Set(i, j, e)
			sum += e
		}
		for i := 0; i < r; i++ {
			out.Set(i, j, out.At(i, j)/sum)
		}
	}
	return out
}

// Derivative returns s·(1-s) per element.
func (s Softmax) Derivative(z *mat.Dense) *mat.Dense {
	out := s.Activate(z)
	out.Apply(func(_, _ int, v float64) float64 { return v * (1 - v) }, out)
	return out
}

// Activate32 applies softmax to a single example in single precision.
func (Softmax) Activate32(z []float32) []float32 {
	maxVal := math32.Inf(-1)
	for _, v := range z {
		maxVal = math32.Max(maxVal, v)
	}
	out := make([]float32, len(z))
	var sum float32
	for i, v := range z {
		out[i] = math32.Exp(v - maxVal)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Derivative32 returns s·(1-s) in single precision.
func (s Softmax) Derivative32(z []float32) []float32 {
	out := s.Activate32(z)
	for i, v := range out {
		out[i] = v * (1 - v)
	}
	return out
}

// Index returns KindSoftmax.
func (Softmax) Index() int { return KindSoftmax }

// Name returns "softmax".
func (Softmax) Name() string { return "softmax" }
