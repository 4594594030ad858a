package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a batch of equally shaped matrices stored row-major as
// [batch, rows, cols] in a single float64 slice.
//
// It is the batched analog of *mat.Dense: Matrix(i) returns a view of the
// i-th example that shares memory with the tensor, so backends can write
// per-example results in place.
//
// Example:
//
//	x, _ := tensor.FromMatrices(mat.NewDense(2, 1, []float64{1, 2}))
//	first := x.Matrix(0) // 2x1 view
type Tensor struct {
	shape Shape
	data  []float64
}

// New creates a zero-filled tensor with shape [batch, rows, cols].
func New(batch, rows, cols int) (*Tensor, error) {
	shape := Shape{batch, rows, cols}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor: %w", err)
	}
	return &Tensor{shape: shape, data: make([]float64, shape.NumElements())}, nil
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	if len(shape) != 3 {
		return nil, fmt.Errorf("tensor: expected [batch, rows, cols], got %v", shape)
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor: %w", err)
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t := &Tensor{shape: shape.Clone(), data: make([]float64, len(data))}
	copy(t.data, data)
	return t, nil
}

// FromMatrices stacks matrices of identical shape along a new leading axis.
func FromMatrices(ms ...*mat.Dense) (*Tensor, error) {
	if len(ms) == 0 {
		return nil, fmt.Errorf("tensor: FromMatrices requires at least one matrix")
	}
	first := DimsOf(ms[0])
	t, err := New(len(ms), first[0], first[1])
	if err != nil {
		return nil, err
	}
	for i, m := range ms {
		if err := Mismatch("tensor.FromMatrices", first, DimsOf(m)); err != nil {
			return nil, fmt.Errorf("matrix %d: %w", i, err)
		}
		t.Matrix(i).Copy(m)
	}
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Batch returns the size of the leading axis.
func (t *Tensor) Batch() int {
	return t.shape[0]
}

// Rows returns the row count of each example.
func (t *Tensor) Rows() int {
	return t.shape[1]
}

// Cols returns the column count of each example.
func (t *Tensor) Cols() int {
	return t.shape[2]
}

// ExampleShape returns the 2-D shape of one example.
func (t *Tensor) ExampleShape() Shape {
	return Shape{t.shape[1], t.shape[2]}
}

// Data returns the underlying storage (zero-copy).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor) Data() []float64 {
	return t.data
}

// Matrix returns a view of example i that shares memory with the tensor.
// Panics if i is out of range.
func (t *Tensor) Matrix(i int) *mat.Dense {
	if i < 0 || i >= t.shape[0] {
		panic(fmt.Sprintf("index %d out of bounds for batch of size %d", i, t.shape[0]))
	}
	n := t.shape[1] * t.shape[2]
	return mat.NewDense(t.shape[1], t.shape[2], t.data[i*n:(i+1)*n:(i+1)*n])
}

// At returns the element at [b, i, j].
func (t *Tensor) At(b, i, j int) float64 {
	return t.data[t.offset(b, i, j)]
}

// Set sets the element at [b, i, j].
func (t *Tensor) Set(value float64, b, i, j int) {
	t.data[t.offset(b, i, j)] = value
}

func (t *Tensor) offset(indices ...int) int {
	offset := 0
	strides := t.shape.ComputeStrides()
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.shape[i]))
		}
		offset += idx * strides[i]
	}
	return offset
}

// Clone creates a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), data: data}
}

// SumBatch reduces the leading axis and returns a [rows, cols] matrix.
func (t *Tensor) SumBatch() *mat.Dense {
	n := t.shape[1] * t.shape[2]
	sum := make([]float64, n)
	for b := 0; b < t.shape[0]; b++ {
		floats.Add(sum, t.data[b*n:(b+1)*n])
	}
	return mat.NewDense(t.shape[1], t.shape[2], sum)
}

// String returns a human-readable representation of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor[float64]%v", t.shape)
}
