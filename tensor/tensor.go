package tensor

import (
	"math"
	"math/rand"
)

// Tensor is an n-dimensional float32 array stored flat in row-major order.
type Tensor struct {
	Data  []float32
	Shape []int
}

func New(shape ...int) *Tensor {
	size := 1
	for _, s := range shape {
		size *= s
	}
	return &Tensor{Data: make([]float32, size), Shape: shape}
}

func From(data []float32, shape []int) *Tensor {
	return &Tensor{Data: data, Shape: shape}
}

func (t *Tensor) Numel() int {
	n := 1
	for _, s := range t.Shape {
		n *= s
	}
	return n
}

func (t *Tensor) Clone() *Tensor {
	d := make([]float32, len(t.Data))
	copy(d, t.Data)
	return &Tensor{Data: d, Shape: append([]int{}, t.Shape...)}
}

// SameShape reports whether t and o have identical dimensions.
func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.Shape) != len(o.Shape) {
		return false
	}
	for i, s := range t.Shape {
		if o.Shape[i] != s {
			return false
		}
	}
	return true
}

// Add two tensors element-wise (must have same size)
func Add(a, b *Tensor) *Tensor {
	out := New(a.Shape...)
	for i := range a.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	return out
}

// Scale tensor by scalar
func Scale(x *Tensor, s float32) *Tensor {
	out := New(x.Shape...)
	for i := range x.Data {
		out.Data[i] = x.Data[i] * s
	}
	return out
}

// Randn fills a new tensor with standard Gaussian samples via Box-Muller.
func Randn(rng *rand.Rand, shape ...int) *Tensor {
	out := New(shape...)
	size := len(out.Data)
	for i := 0; i < size-1; i += 2 {
		u1 := rng.Float64()
		u2 := rng.Float64()
		for u1 == 0 {
			u1 = rng.Float64()
		}
		r := math.Sqrt(-2 * math.Log(u1))
		theta := 2 * math.Pi * u2
		out.Data[i] = float32(r * math.Cos(theta))
		out.Data[i+1] = float32(r * math.Sin(theta))
	}
	if size%2 == 1 {
		u1 := rng.Float64()
		u2 := rng.Float64()
		for u1 == 0 {
			u1 = rng.Float64()
		}
		out.Data[size-1] = float32(math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2))
	}
	return out
}
