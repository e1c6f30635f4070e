package morph

import (
	"fmt"
	"math"
)

// Dense is a row-major float64 matrix.
type Dense struct {
	Rows, Cols int
	Data       []float64
}

// NewDense returns a zero r×c matrix.
func NewDense(r, c int) *Dense {
	return &Dense{Rows: r, Cols: c, Data: make([]float64, r*c)}
}

func (d *Dense) At(i, j int) float64     { return d.Data[i*d.Cols+j] }
func (d *Dense) Set(i, j int, v float64) { d.Data[i*d.Cols+j] = v }

// Row aliases row i.
func (d *Dense) Row(i int) []float64 { return d.Data[i*d.Cols : (i+1)*d.Cols] }

// T returns the transpose.
func (d *Dense) T() *Dense {
	out := NewDense(d.Cols, d.Rows)
	for i := 0; i < d.Rows; i++ {
		for j := 0; j < d.Cols; j++ {
			out.Data[j*d.Rows+i] = d.Data[i*d.Cols+j]
		}
	}
	return out
}

// MulVec returns d·v.
func (d *Dense) MulVec(v []float64) []float64 {
	out := make([]float64, d.Rows)
	for i := range out {
		var s float64
		for j, x := range d.Row(i) {
			s += x * v[j]
		}
		out[i] = s
	}
	return out
}

// cholesky returns lower-triangular L with L·Lᵀ = a, or an error if a is not
// symmetric positive definite.
func cholesky(a *Dense) (*Dense, error) {
	n := a.Rows
	l := NewDense(n, n)
	for j := 0; j < n; j++ {
		s := a.At(j, j)
		lj := l.Row(j)
		for k := 0; k < j; k++ {
			s -= lj[k] * lj[k]
		}
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("not positive definite at pivot %d", j)
		}
		d := math.Sqrt(s)
		lj[j] = d
		for i := j + 1; i < n; i++ {
			li := l.Row(i)
			t := a.At(i, j)
			for k := 0; k < j; k++ {
				t -= li[k] * lj[k]
			}
			li[j] = t / d
		}
	}
	return l, nil
}

// invLower inverts a lower-triangular matrix with non-zero diagonal.
func invLower(l *Dense) *Dense {
	n := l.Rows
	inv := NewDense(n, n)
	for j := 0; j < n; j++ {
		inv.Set(j, j, 1/l.At(j, j))
		for i := j + 1; i < n; i++ {
			var s float64
			li := l.Row(i)
			for k := j; k < i; k++ {
				s += li[k] * inv.At(k, j)
			}
			inv.Set(i, j, -s/li[i])
		}
	}
	return inv
}

// spdInverse inverts a symmetric positive definite matrix via its Cholesky
// factor: a^-1 = L^-T · L^-1.
func spdInverse(a *Dense) (*Dense, error) {
	l, err := cholesky(a)
	if err != nil {
		return nil, err
	}
	li := invLower(l)
	n := a.Rows
	out := NewDense(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			var s float64
			for k := i; k < n; k++ {
				s += li.At(k, i) * li.At(k, j)
			}
			out.Set(i, j, s)
			out.Set(j, i, s)
		}
	}
	return out, nil
}
