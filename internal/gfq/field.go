// Package gfq implements dense linear algebra over a small prime field GF(q):
// reduced echelon forms, rank, kernels, linear solves and inverses. Entries
// are stored reduced in [0,q).
package gfq

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/tuneinsight/lattigo/v4/ring"
)

var (
	// ErrSingular reports a square matrix without an inverse.
	ErrSingular = errors.New("gfq: matrix is singular")
	// ErrInconsistent reports a linear system with no solution.
	ErrInconsistent = errors.New("gfq: system has no solution")
	// ErrShape reports operands whose dimensions do not agree.
	ErrShape = errors.New("gfq: dimension mismatch")
)

// Field is GF(q) for a prime q < 2^16.
type Field struct {
	Q   uint64
	inv []uint64
}

// Rand is the randomness needed to fill matrices.
type Rand interface {
	Intn(n int) int
}

// New returns the field of order q.
func New(q uint64) (*Field, error) {
	if q < 2 || q >= 1<<16 {
		return nil, fmt.Errorf("gfq: modulus %d out of range", q)
	}
	if !new(big.Int).SetUint64(q).ProbablyPrime(20) {
		return nil, fmt.Errorf("gfq: modulus %d is not prime", q)
	}
	f := &Field{Q: q, inv: make([]uint64, q)}
	for a := uint64(1); a < q; a++ {
		f.inv[a] = ring.ModExp(a, q-2, q)
	}
	return f, nil
}

// MustNew is New for constant moduli.
func MustNew(q uint64) *Field {
	f, err := New(q)
	if err != nil {
		panic(err)
	}
	return f
}

// Reduce maps any integer into [0,q).
func (f *Field) Reduce(x int64) uint64 {
	r := x % int64(f.Q)
	if r < 0 {
		r += int64(f.Q)
	}
	return uint64(r)
}

// Center maps a field element to its representative in (-q/2, q/2].
func (f *Field) Center(x uint64) int64 {
	x %= f.Q
	if x > f.Q/2 {
		return int64(x) - int64(f.Q)
	}
	return int64(x)
}

// Inv returns a^-1. It panics on zero.
func (f *Field) Inv(a uint64) uint64 {
	a %= f.Q
	if a == 0 {
		panic("gfq: inverse of zero")
	}
	return f.inv[a]
}

func (f *Field) Add(a, b uint64) uint64 { return (a + b) % f.Q }
func (f *Field) Sub(a, b uint64) uint64 { return (a + f.Q - b%f.Q) % f.Q }
func (f *Field) Mul(a, b uint64) uint64 { return (a * b) % f.Q }
func (f *Field) Neg(a uint64) uint64    { return (f.Q - a%f.Q) % f.Q }

// Vec is a column vector of field elements.
type Vec []uint64

// NewVec returns a zero vector of length n.
func (f *Field) NewVec(n int) Vec { return make(Vec, n) }

// VecFromInts reduces integer coordinates into the field.
func (f *Field) VecFromInts(xs []int64) Vec {
	v := make(Vec, len(xs))
	for i, x := range xs {
		v[i] = f.Reduce(x)
	}
	return v
}

// Centered returns the coordinates of v lifted to (-q/2, q/2].
func (f *Field) Centered(v Vec) []int64 {
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = f.Center(x)
	}
	return out
}

// ScaleVec returns c*v.
func (f *Field) ScaleVec(c uint64, v Vec) Vec {
	out := make(Vec, len(v))
	c %= f.Q
	for i, x := range v {
		out[i] = (c * x) % f.Q
	}
	return out
}

// AddVec returns a+b.
func (f *Field) AddVec(a, b Vec) Vec {
	out := make(Vec, len(a))
	for i := range a {
		out[i] = (a[i] + b[i]) % f.Q
	}
	return out
}

// SubVec returns a-b.
func (f *Field) SubVec(a, b Vec) Vec {
	out := make(Vec, len(a))
	for i := range a {
		out[i] = (a[i] + f.Q - b[i]) % f.Q
	}
	return out
}

// IsZero reports whether every coordinate is zero.
func (v Vec) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Equal reports coordinate-wise equality.
func (v Vec) Equal(w Vec) bool {
	if len(v) != len(w) {
		return false
	}
	for i := range v {
		if v[i] != w[i] {
			return false
		}
	}
	return true
}

// Key returns a compact map key for v. Entries must fit in a byte pair.
func (v Vec) Key() string {
	b := make([]byte, 2*len(v))
	for i, x := range v {
		b[2*i] = byte(x >> 8)
		b[2*i+1] = byte(x)
	}
	return string(b)
}

// FirstNonZero returns the index of the first non-zero coordinate or -1.
func (v Vec) FirstNonZero() int {
	for i, x := range v {
		if x != 0 {
			return i
		}
	}
	return -1
}
