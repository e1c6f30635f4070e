package gfq

import "fmt"

// Echelon returns the reduced row echelon form of m and its pivot columns.
func (m *Matrix) Echelon() (*Matrix, []int) {
	e := m.Clone()
	return e, e.rref(e.Cols)
}

// rref reduces e in place (Gauss-Jordan), taking pivots only in the first
// limit columns. Columns past limit are carried along as an augmented block.
func (e *Matrix) rref(limit int) []int {
	q := e.F.Q
	var pivots []int
	r := 0
	for c := 0; c < limit && r < e.Rows; c++ {
		p := -1
		for i := r; i < e.Rows; i++ {
			if e.Data[i*e.Cols+c] != 0 {
				p = i
				break
			}
		}
		if p < 0 {
			continue
		}
		if p != r {
			rp, rr := e.Row(p), e.Row(r)
			for j := c; j < e.Cols; j++ {
				rp[j], rr[j] = rr[j], rp[j]
			}
		}
		pivot := e.Row(r)
		inv := e.F.Inv(pivot[c])
		for j := c; j < e.Cols; j++ {
			pivot[j] = pivot[j] * inv % q
		}
		for i := 0; i < e.Rows; i++ {
			if i == r {
				continue
			}
			row := e.Row(i)
			f := row[c]
			if f == 0 {
				continue
			}
			nf := q - f
			for j := c; j < e.Cols; j++ {
				row[j] = (row[j] + nf*pivot[j]) % q
			}
		}
		pivots = append(pivots, c)
		r++
	}
	return pivots
}

// Rank returns the rank of m.
func (m *Matrix) Rank() int {
	_, piv := m.Echelon()
	return len(piv)
}

// IsInvertible reports whether m is square with full rank.
func (m *Matrix) IsInvertible() bool {
	return m.Rows == m.Cols && m.Rank() == m.Rows
}

// RightKernel returns a basis of {v : m·v = 0}.
func (m *Matrix) RightKernel() []Vec {
	e, piv := m.Echelon()
	isPivot := make([]bool, m.Cols)
	for _, p := range piv {
		isPivot[p] = true
	}
	var basis []Vec
	for f := 0; f < m.Cols; f++ {
		if isPivot[f] {
			continue
		}
		v := make(Vec, m.Cols)
		v[f] = 1
		for i, p := range piv {
			v[p] = m.F.Neg(e.At(i, f))
		}
		basis = append(basis, v)
	}
	return basis
}

// LeftKernel returns a matrix whose rows form a basis of {k : k·m = 0}.
func (m *Matrix) LeftKernel() *Matrix {
	basis := m.Transpose().RightKernel()
	k := m.F.NewMatrix(len(basis), m.Rows)
	for i, v := range basis {
		copy(k.Row(i), v)
	}
	return k
}

// SolveRight returns a particular X with m·X = y. Free variables are zero.
func (m *Matrix) SolveRight(y *Matrix) (*Matrix, error) {
	if y.Rows != m.Rows {
		return nil, fmt.Errorf("%w: solve %dx%d against %d rows", ErrShape, m.Rows, m.Cols, y.Rows)
	}
	aug := m.F.NewMatrix(m.Rows, m.Cols+y.Cols)
	aug.Paste(0, 0, m)
	aug.Paste(0, m.Cols, y)
	piv := aug.rref(m.Cols)
	for i := len(piv); i < aug.Rows; i++ {
		if !Vec(aug.Row(i)[m.Cols:]).IsZero() {
			return nil, ErrInconsistent
		}
	}
	x := m.F.NewMatrix(m.Cols, y.Cols)
	for i, p := range piv {
		copy(x.Row(p), aug.Row(i)[m.Cols:])
	}
	return x, nil
}

// SolveVec returns a particular v with m·v = y.
func (m *Matrix) SolveVec(y Vec) (Vec, error) {
	x, err := m.SolveRight(m.F.FromColumns(len(y), []Vec{y}))
	if err != nil {
		return nil, err
	}
	return x.Col(0), nil
}

// Inverse returns m^-1.
func (m *Matrix) Inverse() (*Matrix, error) {
	if m.Rows != m.Cols {
		return nil, fmt.Errorf("%w: inverse of %dx%d", ErrShape, m.Rows, m.Cols)
	}
	n := m.Rows
	aug := m.F.NewMatrix(n, 2*n)
	aug.Paste(0, 0, m)
	aug.Paste(0, n, m.F.Identity(n))
	if piv := aug.rref(n); len(piv) < n {
		return nil, ErrSingular
	}
	return aug.Slice(0, n, n, 2*n), nil
}

// ColumnBasis is a reduced column echelon basis of a column span: basis
// vector i has a 1 at row Pivots[i] and a 0 at every other pivot row.
type ColumnBasis struct {
	F      *Field
	Vecs   []Vec
	Pivots []int
}

// ColumnEchelon returns the reduced column echelon basis of m's column span.
func (m *Matrix) ColumnEchelon() *ColumnBasis {
	e, piv := m.Transpose().Echelon()
	cb := &ColumnBasis{F: m.F, Pivots: piv, Vecs: make([]Vec, len(piv))}
	for i := range piv {
		cb.Vecs[i] = append(Vec(nil), e.Row(i)...)
	}
	return cb
}

// Rank is the dimension of the span.
func (b *ColumnBasis) Rank() int { return len(b.Pivots) }

// Reduce returns x minus its component along the basis, indexed by pivot
// rows. The result vanishes at every pivot row; it is zero iff x lies in the
// span.
func (b *ColumnBasis) Reduce(x Vec) Vec {
	q := b.F.Q
	acc := make([]uint64, len(x))
	copy(acc, x)
	for i, p := range b.Pivots {
		c := x[p]
		if c == 0 {
			continue
		}
		nc := q - c
		for j, v := range b.Vecs[i] {
			acc[j] += nc * v
		}
	}
	out := make(Vec, len(x))
	for j := range acc {
		out[j] = acc[j] % q
	}
	return out
}

// Contains reports whether x lies in the span.
func (b *ColumnBasis) Contains(x Vec) bool { return b.Reduce(x).IsZero() }
