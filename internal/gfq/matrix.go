package gfq

import "fmt"

// Matrix is a dense row-major matrix over F.
type Matrix struct {
	F          *Field
	Rows, Cols int
	Data       []uint64
}

// NewMatrix returns the zero r×c matrix.
func (f *Field) NewMatrix(r, c int) *Matrix {
	return &Matrix{F: f, Rows: r, Cols: c, Data: make([]uint64, r*c)}
}

// Identity returns the n×n identity.
func (f *Field) Identity(n int) *Matrix {
	m := f.NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Data[i*n+i] = 1
	}
	return m
}

// FromRows builds a matrix from integer rows, reducing every entry mod q.
func (f *Field) FromRows(rows [][]int64) (*Matrix, error) {
	if len(rows) == 0 {
		return f.NewMatrix(0, 0), nil
	}
	c := len(rows[0])
	m := f.NewMatrix(len(rows), c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("gfq: row %d has %d entries, want %d", i, len(row), c)
		}
		for j, x := range row {
			m.Data[i*c+j] = f.Reduce(x)
		}
	}
	return m, nil
}

// FromColumns builds the matrix whose columns are vs.
func (f *Field) FromColumns(rows int, vs []Vec) *Matrix {
	m := f.NewMatrix(rows, len(vs))
	for j, v := range vs {
		m.SetCol(j, v)
	}
	return m
}

// Random returns a uniformly random r×c matrix.
func (f *Field) Random(r, c int, rnd Rand) *Matrix {
	m := f.NewMatrix(r, c)
	for i := range m.Data {
		m.Data[i] = uint64(rnd.Intn(int(f.Q)))
	}
	return m
}

// IntRows returns the entries as integer rows in [0,q).
func (m *Matrix) IntRows() [][]int64 {
	out := make([][]int64, m.Rows)
	for i := range out {
		out[i] = make([]int64, m.Cols)
		for j := range out[i] {
			out[i][j] = int64(m.Data[i*m.Cols+j])
		}
	}
	return out
}

func (m *Matrix) At(i, j int) uint64     { return m.Data[i*m.Cols+j] }
func (m *Matrix) Set(i, j int, v uint64) { m.Data[i*m.Cols+j] = v % m.F.Q }

// Row returns row i as a slice aliasing the matrix storage.
func (m *Matrix) Row(i int) Vec { return m.Data[i*m.Cols : (i+1)*m.Cols] }

// Col returns a copy of column j.
func (m *Matrix) Col(j int) Vec {
	v := make(Vec, m.Rows)
	for i := range v {
		v[i] = m.Data[i*m.Cols+j]
	}
	return v
}

// SetCol overwrites column j with v.
func (m *Matrix) SetCol(j int, v Vec) {
	for i := 0; i < m.Rows; i++ {
		m.Data[i*m.Cols+j] = v[i] % m.F.Q
	}
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{F: m.F, Rows: m.Rows, Cols: m.Cols, Data: make([]uint64, len(m.Data))}
	copy(out.Data, m.Data)
	return out
}

// Transpose returns mᵀ.
func (m *Matrix) Transpose() *Matrix {
	out := m.F.NewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			out.Data[j*m.Rows+i] = m.Data[i*m.Cols+j]
		}
	}
	return out
}

// Slice returns a copy of rows [r0,r1) and columns [c0,c1).
func (m *Matrix) Slice(r0, r1, c0, c1 int) *Matrix {
	out := m.F.NewMatrix(r1-r0, c1-c0)
	for i := r0; i < r1; i++ {
		copy(out.Row(i-r0), m.Data[i*m.Cols+c0:i*m.Cols+c1])
	}
	return out
}

// Paste copies b into m with its top-left corner at (r0,c0).
func (m *Matrix) Paste(r0, c0 int, b *Matrix) {
	for i := 0; i < b.Rows; i++ {
		copy(m.Data[(r0+i)*m.Cols+c0:(r0+i)*m.Cols+c0+b.Cols], b.Row(i))
	}
}

// Mul returns m·b. Products are accumulated unreduced; q < 2^16 keeps the
// running sums far from overflow for any realistic inner dimension.
func (m *Matrix) Mul(b *Matrix) *Matrix {
	if m.Cols != b.Rows {
		panic(fmt.Sprintf("gfq: Mul %dx%d by %dx%d", m.Rows, m.Cols, b.Rows, b.Cols))
	}
	q := m.F.Q
	out := m.F.NewMatrix(m.Rows, b.Cols)
	acc := make([]uint64, b.Cols)
	for i := 0; i < m.Rows; i++ {
		for j := range acc {
			acc[j] = 0
		}
		for k, a := range m.Row(i) {
			if a == 0 {
				continue
			}
			for j, x := range b.Row(k) {
				acc[j] += a * x
			}
		}
		row := out.Row(i)
		for j := range acc {
			row[j] = acc[j] % q
		}
	}
	return out
}

// MulVec returns m·v.
func (m *Matrix) MulVec(v Vec) Vec {
	if m.Cols != len(v) {
		panic(fmt.Sprintf("gfq: MulVec %dx%d by %d", m.Rows, m.Cols, len(v)))
	}
	out := make(Vec, m.Rows)
	for i := 0; i < m.Rows; i++ {
		var acc uint64
		for k, a := range m.Row(i) {
			acc += a * v[k]
		}
		out[i] = acc % m.F.Q
	}
	return out
}

// Add returns m+b.
func (m *Matrix) Add(b *Matrix) *Matrix {
	m.mustMatch(b)
	out := m.Clone()
	for i, x := range b.Data {
		out.Data[i] = (out.Data[i] + x) % m.F.Q
	}
	return out
}

// Sub returns m-b.
func (m *Matrix) Sub(b *Matrix) *Matrix {
	m.mustMatch(b)
	out := m.Clone()
	for i, x := range b.Data {
		out.Data[i] = (out.Data[i] + m.F.Q - x) % m.F.Q
	}
	return out
}

// IsZero reports whether all entries vanish.
func (m *Matrix) IsZero() bool { return Vec(m.Data).IsZero() }

// Equal reports entry-wise equality of same-shaped matrices.
func (m *Matrix) Equal(b *Matrix) bool {
	return m.Rows == b.Rows && m.Cols == b.Cols && Vec(m.Data).Equal(b.Data)
}

func (m *Matrix) mustMatch(b *Matrix) {
	if m.Rows != b.Rows || m.Cols != b.Cols {
		panic(fmt.Sprintf("gfq: shape %dx%d vs %dx%d", m.Rows, m.Cols, b.Rows, b.Cols))
	}
}
