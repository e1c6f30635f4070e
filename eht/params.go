// Package eht models the EHT signature scheme as seen by the attack: key and
// parameter types, the message hash oracle, the signature codec, the public
// verification relation and a synthetic key generator for simulations.
package eht

import (
	"errors"
	"fmt"
	"math"

	"eht-attack/internal/gfq"
)

// Params fixes the scheme constants and key shape.
type Params struct {
	Q uint64 // field modulus
	M int    // rows of A and C (residue length)
	N int    // columns of A
	K int    // block width of T's diagonal blocks

	Diag   []uint64 // diagonal block of every column of T
	Norm1  int      // l1 norm of each row of C
	ZBound int64    // |z_i| bound
	EBound int64    // |e_i| counted as small
	Accept int      // small coordinates needed for a valid signature
	Guard  int64    // residues with a coordinate this large have wrapped mod q
	Embed  int64    // CVP embedding weight
}

// DefaultParams returns the attacked instance (q=47, m=460, n=256).
func DefaultParams() Params {
	return Params{
		Q: 47, M: 460, N: 256, K: 2,
		Diag:   []uint64{1, 7},
		Norm1:  9,
		ZBound: 3,
		EBound: 13,
		Accept: 451,
		Guard:  20,
		Embed:  9,
	}
}

// WithShape returns a copy for an m×n public key. The acceptance threshold
// keeps the same slack as the attacked instance.
func (p Params) WithShape(m, n int) (Params, error) {
	cp := p
	cp.Diag = append([]uint64(nil), p.Diag...)
	cp.M, cp.N = m, n
	cp.Accept = m - (p.M - p.Accept)
	if cp.Accept < 1 {
		cp.Accept = 1
	}
	return cp, cp.Validate()
}

// Validate checks the shape constraints every stage relies on.
func (p Params) Validate() error {
	if p.Q < 3 || p.Q > 255 {
		return fmt.Errorf("eht: modulus %d unsupported (residues are stored one byte per coordinate)", p.Q)
	}
	if p.K != 2 || len(p.Diag) != p.K {
		return fmt.Errorf("eht: block width %d unsupported (need 2 with a 2-entry diagonal)", p.K)
	}
	if p.Diag[0]%p.Q != 1 || p.Diag[1]%p.Q == 0 {
		return errors.New("eht: diagonal block must be [1, c] with c != 0")
	}
	if p.N <= 0 || p.M <= p.N {
		return fmt.Errorf("eht: need m > n > 0, got m=%d n=%d", p.M, p.N)
	}
	if p.D() < 0 {
		return fmt.Errorf("eht: k*n=%d smaller than m=%d", p.K*p.N, p.M)
	}
	if p.Accept > p.M {
		return fmt.Errorf("eht: acceptance threshold %d exceeds m=%d", p.Accept, p.M)
	}
	if 2*p.ZBound+1 > int64(p.Q) || 2*p.EBound+1 > int64(p.Q) {
		return errors.New("eht: bounds exceed the field")
	}
	return nil
}

// D is the number of extra columns of C (m + d = k·n).
func (p Params) D() int { return p.K*p.N - p.M }

// Field returns GF(q).
func (p Params) Field() *gfq.Field { return gfq.MustNew(p.Q) }

// PairConst is the second diagonal entry of T (7 in the attacked instance).
func (p Params) PairConst() uint64 { return p.Diag[1] % p.Q }

// MaxKnownColumns is the deepest column ordering Phase A can confirm.
func (p Params) MaxKnownColumns() int { return p.K * (p.M - p.N - 1) }

// PayloadBytes is the size of an encoded x vector.
func (p Params) PayloadBytes() int {
	return int(math.Ceil(float64(p.N) * math.Log(float64(p.Q)) / math.Log(256)))
}
