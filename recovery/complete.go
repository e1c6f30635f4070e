package recovery

import (
	"fmt"

	"eht-attack/eht"
	"eht-attack/internal/gfq"
	"eht-attack/internal/prng"
)

// RecoverT rebuilds the 2l×l lower-right block of T for the known columns
// cPart of C (m×2l, pairs left to right). Row pair r gets the diagonal block
// and every entry left of it is forced by C·T ∈ span(A) once the columns to
// the right of the pair are projected away. A ContractError means cPart is
// not a prefix of any key consistent with A.
func (r *Recoverer) RecoverT(cPart *gfq.Matrix) (*gfq.Matrix, error) {
	f := r.f
	m := r.p.M
	l := cPart.Cols / 2
	t := f.NewMatrix(2*l, l)
	for pair := 0; pair < l; pair++ {
		row := 2 * pair
		rest := 2 * (l - pair - 1)
		k := f.Identity(m)
		if rest > 0 {
			k = cPart.Slice(0, m, 2*l-rest, 2*l).LeftKernel()
		}
		kc := k.Mul(cPart)
		basis := k.Mul(r.a).ColumnEchelon()

		t.Set(row, pair, r.p.Diag[0])
		t.Set(row+1, pair, r.p.Diag[1])
		v := basis.Reduce(kc.Col(row + 1))
		for col := 0; col < pair; col++ {
			t.Set(row, col, 0)
			t.Set(row+1, col, 0)
			kct := basis.Reduce(kc.MulVec(t.Col(col)))
			p := v.FirstNonZero()
			if p < 0 {
				return nil, &eht.ContractError{Stage: "phase-b", Detail: "pair column lies in span of K·A", Index: pair}
			}
			u := f.Mul(f.Neg(kct[p]), f.Inv(v[p]))
			if !f.AddVec(kct, f.ScaleVec(u, v)).IsZero() {
				return nil, &eht.ContractError{Stage: "phase-b", Detail: "residue not cancelled by one entry", Index: pair}
			}
			t.Set(row+1, col, u)
		}
	}
	r.logf("recovered T block %dx%d", t.Rows, t.Cols)
	return t, nil
}

// Complete embeds the known blocks into an m×(m+1) C and an (m+1)×n T, then
// fills the rest at random: B until invertible, C by unit bumps on its
// unknown columns until C[:, :m] is invertible. The top of T follows from
// C[:, :m]^-1·A·B and the result satisfies C·T = A·B exactly.
func (r *Recoverer) Complete(cPart, tPart *gfq.Matrix, rnd *prng.Source) (*eht.PrivateKey, error) {
	f := r.f
	m, n := r.p.M, r.p.N
	l := cPart.Cols / 2
	if tPart.Rows != 2*l || tPart.Cols != l || 2*l > m {
		return nil, fmt.Errorf("recovery: blocks C %dx%d and T %dx%d do not fit m=%d",
			cPart.Rows, cPart.Cols, tPart.Rows, tPart.Cols, m)
	}
	c := f.NewMatrix(m, m+1)
	c.Paste(0, m+1-2*l, cPart)
	t := f.NewMatrix(m+1, n)
	t.Paste(m+1-2*l, n-l, tPart)

	known, err := r.a.SolveRight(c.Mul(t).Slice(0, m, n-l, n))
	if err != nil {
		return nil, &eht.ContractError{Stage: "complete", Detail: "known columns of C·T outside span of A", Index: -1}
	}
	b := f.NewMatrix(n, n)
	b.Paste(0, n-l, known)
	refills := 0
	for !b.IsInvertible() {
		if refills >= r.opts.MaxFillTrials {
			return nil, fmt.Errorf("recovery: B after %d refills: %w", refills, eht.ErrNotInvertible)
		}
		b.Paste(0, 0, f.Random(n, n-l, rnd))
		refills++
	}

	unknown := m + 1 - 2*l
	bumps, checks := 0, 0
	for {
		if nonZeroColumns(c, unknown) {
			checks++
			if c.Slice(0, m, 0, m).IsInvertible() {
				break
			}
		}
		if bumps >= r.opts.MaxFillTrials {
			return nil, fmt.Errorf("recovery: C after %d bumps: %w", bumps, eht.ErrNotInvertible)
		}
		i, j := rnd.Intn(m), rnd.Intn(unknown)
		c.Set(i, j, c.At(i, j)+1)
		bumps++
	}
	r.logf("fill: %d B refills, %d C bumps, %d rank checks", refills, bumps, checks)

	cInv, err := c.Slice(0, m, 0, m).Inverse()
	if err != nil {
		return nil, err
	}
	t.Paste(0, 0, cInv.Mul(r.a.Mul(b).Slice(0, m, 0, n-l)))

	key := &eht.PrivateKey{C: c, T: t, B: b}
	if err := eht.CheckConsistency(&eht.PublicKey{A: r.a}, key); err != nil {
		return nil, err
	}
	r.logf("key recovery successful")
	return key, nil
}

// nonZeroColumns reports whether the first k columns of c all have a nonzero
// entry. A zero column makes C[:, :m] singular without a rank computation.
func nonZeroColumns(c *gfq.Matrix, k int) bool {
	for j := 0; j < k; j++ {
		if c.Col(j).IsZero() {
			return false
		}
	}
	return true
}
