package eht

import (
	"fmt"

	"eht-attack/internal/gfq"
)

// PublicKey is the m×n matrix A.
type PublicKey struct {
	A *gfq.Matrix
}

// PrivateKey is the trapdoor (C, T, B) with C·T = A·B.
type PrivateKey struct {
	C *gfq.Matrix // m×(m+d) sparse
	T *gfq.Matrix // (m+d)×n lower block-triangular
	B *gfq.Matrix // n×n invertible
}

// CheckShape validates a private key against the public key it claims to
// match. Recovered keys are allowed a different inner dimension.
func (sk *PrivateKey) CheckShape(pk *PublicKey) error {
	m, n := pk.A.Rows, pk.A.Cols
	switch {
	case sk.C.Rows != m:
		return fmt.Errorf("%w: C has %d rows, A has %d", ErrMalformed, sk.C.Rows, m)
	case sk.T.Rows != sk.C.Cols:
		return fmt.Errorf("%w: T has %d rows, C has %d columns", ErrMalformed, sk.T.Rows, sk.C.Cols)
	case sk.T.Cols != n:
		return fmt.Errorf("%w: T has %d columns, want %d", ErrMalformed, sk.T.Cols, n)
	case sk.B.Rows != n || sk.B.Cols != n:
		return fmt.Errorf("%w: B is %dx%d, want %dx%d", ErrMalformed, sk.B.Rows, sk.B.Cols, n, n)
	}
	return nil
}

// CheckConsistency verifies C·T == A·B exactly.
func CheckConsistency(pk *PublicKey, sk *PrivateKey) error {
	if err := sk.CheckShape(pk); err != nil {
		return err
	}
	if !sk.C.Mul(sk.T).Equal(pk.A.Mul(sk.B)) {
		return Contract("key", "C·T != A·B")
	}
	return nil
}
