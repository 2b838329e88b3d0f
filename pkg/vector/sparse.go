// Package vector implements the sparse vector type and the distance
// metrics the clustering engine runs over.
package vector

import "math"

// Sparse is a logical mapping from non-negative integer index to a
// double-precision value, carrying an explicit dimension. The value at
// any index absent from Values is zero. Two sparse vectors of
// different dimensions are incomparable.
type Sparse struct {
	Dim    int
	Values map[int]float64
}

// New returns an empty sparse vector of the given dimension.
func New(dim int) Sparse {
	return Sparse{Dim: dim, Values: make(map[int]float64)}
}

// FromDense builds a sparse vector from a dense slice, skipping zeros.
func FromDense(values []float64) Sparse {
	v := New(len(values))
	for i, x := range values {
		if x != 0 {
			v.Values[i] = x
		}
	}
	return v
}

// Dense materializes the vector as a dense slice.
func (v Sparse) Dense() []float64 {
	out := make([]float64, v.Dim)
	for i, x := range v.Values {
		out[i] = x
	}
	return out
}

// At returns the value at index i, or zero if absent.
func (v Sparse) At(i int) float64 {
	return v.Values[i]
}

// HasNull reports whether the vector's self-dot is undefined, i.e. it
// carries a NaN component. Such vectors are treated as null at ingest.
func (v Sparse) HasNull() bool {
	for _, x := range v.Values {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

// ErrDimensionMismatch is returned whenever two vectors of different
// dimensions are compared.
type ErrDimensionMismatch struct {
	A, B int
}

func (e *ErrDimensionMismatch) Error() string {
	return "vector: dimension mismatch"
}

func checkDims(u, v Sparse) error {
	if u.Dim != v.Dim {
		return &ErrDimensionMismatch{A: u.Dim, B: v.Dim}
	}
	return nil
}

// Dot computes the inner product of u and v.
func Dot(u, v Sparse) (float64, error) {
	if err := checkDims(u, v); err != nil {
		return 0, err
	}
	// Iterate the smaller map for a tighter inner loop.
	small, large := u.Values, v.Values
	if len(v.Values) < len(u.Values) {
		small, large = v.Values, u.Values
	}
	var sum float64
	for i, x := range small {
		sum += x * large[i]
	}
	return sum, nil
}

// Norm2 returns the Euclidean (l2) norm of v.
func Norm2(v Sparse) float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize returns the unit-l2-norm vector in the direction of v. The
// zero vector maps to itself.
func Normalize(v Sparse) Sparse {
	n := Norm2(v)
	if n == 0 {
		return v
	}
	out := New(v.Dim)
	for i, x := range v.Values {
		out.Values[i] = x / n
	}
	return out
}

// Sub returns u - v, componentwise.
func Sub(u, v Sparse) (Sparse, error) {
	if err := checkDims(u, v); err != nil {
		return Sparse{}, err
	}
	out := New(u.Dim)
	for i, x := range u.Values {
		out.Values[i] = x
	}
	for i, x := range v.Values {
		out.Values[i] -= x
	}
	return out, nil
}
