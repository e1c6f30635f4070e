// Package lll implements exact integral LLL reduction (delta = 3/4) on
// integer row bases and the embedding technique for bounded-distance CVP.
// Only small dimensions are needed, so all arithmetic is big.Int.
package lll

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrDependent reports a basis whose rows are linearly dependent.
	ErrDependent = errors.New("lll: basis rows are linearly dependent")
	// ErrNoEmbedding reports a reduced basis without a row carrying the
	// embedding weight.
	ErrNoEmbedding = errors.New("lll: embedding row not found after reduction")
)

// Reduce LLL-reduces the rows of b in place. The Gram-Schmidt data is kept
// as integers (d_i and λ_ij scaled by d_j) so no rounding ever occurs.
func Reduce(b [][]*big.Int) error {
	n := len(b)
	if n == 0 {
		return nil
	}
	// 1-based indices below follow the usual statement of the algorithm.
	d := make([]*big.Int, n+1)
	lam := make([][]*big.Int, n+1)
	for i := range lam {
		lam[i] = make([]*big.Int, n+1)
		for j := range lam[i] {
			lam[i][j] = new(big.Int)
		}
		d[i] = new(big.Int)
	}
	d[0].SetInt64(1)
	d[1] = dot(b[0], b[0])
	if d[1].Sign() == 0 {
		return ErrDependent
	}
	if n == 1 {
		return nil
	}

	row := func(i int) []*big.Int { return b[i-1] }
	k, kmax := 2, 1
	t := new(big.Int)
	t2 := new(big.Int)
	for k <= n {
		if k > kmax {
			kmax = k
			for j := 1; j <= k; j++ {
				u := dot(row(k), row(j))
				for i := 1; i < j; i++ {
					u.Mul(u, d[i])
					t.Mul(lam[k][i], lam[j][i])
					u.Sub(u, t)
					u.Quo(u, d[i-1])
				}
				if j < k {
					lam[k][j] = u
				} else {
					if u.Sign() == 0 {
						return ErrDependent
					}
					d[k] = u
				}
			}
		}
		red(b, lam, d, k, k-1)
		// Lovász: swap when 4·d_k·d_(k-2) < 3·d_(k-1)^2 - 4·λ_(k,k-1)^2
		t.Mul(d[k], d[k-2])
		t.Lsh(t, 2)
		t2.Mul(d[k-1], d[k-1])
		t2.Mul(t2, big.NewInt(3))
		sq := new(big.Int).Mul(lam[k][k-1], lam[k][k-1])
		sq.Lsh(sq, 2)
		t2.Sub(t2, sq)
		if t.Cmp(t2) < 0 {
			swap(b, lam, d, k, kmax)
			if k > 2 {
				k--
			}
			continue
		}
		for l := k - 2; l >= 1; l-- {
			red(b, lam, d, k, l)
		}
		k++
	}
	return nil
}

// red size-reduces row k against row l.
func red(b [][]*big.Int, lam [][]*big.Int, d []*big.Int, k, l int) {
	two := new(big.Int).Lsh(lam[k][l], 1)
	abs := new(big.Int).Abs(two)
	if abs.Cmp(d[l]) <= 0 {
		return
	}
	// q = round(λ_kl / d_l) = floor((2λ_kl + d_l) / (2 d_l))
	num := two.Add(two, d[l])
	den := new(big.Int).Lsh(d[l], 1)
	q := floorDiv(num, den)
	t := new(big.Int)
	bk, bl := b[k-1], b[l-1]
	for i := range bk {
		t.Mul(q, bl[i])
		bk[i].Sub(bk[i], t)
	}
	t.Mul(q, d[l])
	lam[k][l].Sub(lam[k][l], t)
	for i := 1; i < l; i++ {
		t.Mul(q, lam[l][i])
		lam[k][i].Sub(lam[k][i], t)
	}
}

// swap exchanges rows k-1 and k and updates the Gram-Schmidt data.
func swap(b [][]*big.Int, lam [][]*big.Int, d []*big.Int, k, kmax int) {
	b[k-1], b[k-2] = b[k-2], b[k-1]
	for j := 1; j <= k-2; j++ {
		lam[k][j], lam[k-1][j] = lam[k-1][j], lam[k][j]
	}
	l := new(big.Int).Set(lam[k][k-1])
	// B = (d_(k-2)·d_k + λ²) / d_(k-1)
	bb := new(big.Int).Mul(d[k-2], d[k])
	bb.Add(bb, new(big.Int).Mul(l, l))
	bb.Quo(bb, d[k-1])
	t := new(big.Int)
	for i := k + 1; i <= kmax; i++ {
		ti := new(big.Int).Set(lam[i][k])
		// λ_ik = (d_k·λ_(i,k-1) - λ·t) / d_(k-1)
		nk := new(big.Int).Mul(d[k], lam[i][k-1])
		t.Mul(l, ti)
		nk.Sub(nk, t)
		nk.Quo(nk, d[k-1])
		lam[i][k] = nk
		// λ_(i,k-1) = (B·t + λ·λ_ik) / d_k
		nk1 := new(big.Int).Mul(bb, ti)
		t.Mul(l, nk)
		nk1.Add(nk1, t)
		nk1.Quo(nk1, d[k])
		lam[i][k-1] = nk1
	}
	d[k-1] = bb
}

func dot(a, b []*big.Int) *big.Int {
	s := new(big.Int)
	t := new(big.Int)
	for i := range a {
		t.Mul(a[i], b[i])
		s.Add(s, t)
	}
	return s
}

// floorDiv returns floor(a/b) for b > 0.
func floorDiv(a, b *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(a, b, new(big.Int))
	if m.Sign() < 0 {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

// FromInt64 copies an integer basis into big.Int rows.
func FromInt64(rows [][]int64) [][]*big.Int {
	out := make([][]*big.Int, len(rows))
	for i, r := range rows {
		out[i] = make([]*big.Int, len(r))
		for j, x := range r {
			out[i][j] = big.NewInt(x)
		}
	}
	return out
}

// CVP looks for a lattice vector close to target by embedding: the rows of
// basis and (target, weight) are reduced together, and a reduced row ending
// in ±weight gives the error e = target - v (sign fixed so the last entry is
// +weight). Only errors that are short relative to the lattice are found.
func CVP(basis [][]int64, target []int64, weight int64) ([]int64, error) {
	dim := len(target)
	emb := make([][]int64, 0, len(basis)+1)
	for i, r := range basis {
		if len(r) != dim {
			return nil, fmt.Errorf("lll: basis row %d has %d entries, target has %d", i, len(r), dim)
		}
		emb = append(emb, append(append([]int64(nil), r...), 0))
	}
	emb = append(emb, append(append([]int64(nil), target...), weight))
	b := FromInt64(emb)
	if err := Reduce(b); err != nil {
		return nil, err
	}
	w := big.NewInt(weight)
	nw := big.NewInt(-weight)
	for _, r := range b {
		last := r[dim]
		var neg bool
		switch {
		case last.Cmp(w) == 0:
		case last.Cmp(nw) == 0:
			neg = true
		default:
			continue
		}
		e := make([]int64, dim)
		fits := true
		for i := 0; i < dim; i++ {
			if !r[i].IsInt64() {
				fits = false
				break
			}
			e[i] = r[i].Int64()
			if neg {
				e[i] = -e[i]
			}
		}
		if fits {
			return e, nil
		}
	}
	return nil, ErrNoEmbedding
}
