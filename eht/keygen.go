package eht

import (
	"fmt"
	"os"

	"eht-attack/internal/gfq"
	"eht-attack/internal/prng"
)

// KeygenOpts controls synthetic key generation.
type KeygenOpts struct {
	MaxTrials int  // resampling cap for C and B (default 64)
	Verbose   bool // log rejected trials
}

// GenerateKey samples a key with the scheme's structure: sparse C with rows
// of l1 norm Norm1, T lower block-triangular with Diag on its diagonal blocks,
// B uniform invertible and A = C·T·B^-1. It exists to simulate the attack.
func GenerateKey(p Params, rnd *prng.Source, opts *KeygenOpts) (*PublicKey, *PrivateKey, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	if opts == nil {
		opts = &KeygenOpts{}
	}
	maxTrials := opts.MaxTrials
	if maxTrials <= 0 {
		maxTrials = 64
	}
	verbose := opts.Verbose || DebugOn
	f := p.Field()

	var c *gfq.Matrix
	for trial := 1; ; trial++ {
		if trial > maxTrials {
			return nil, nil, fmt.Errorf("keygen: C: %w", ErrNotInvertible)
		}
		c = sparseC(p, f, rnd)
		if c.Rank() == p.M && noZeroColumn(c) {
			break
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "[keygen] trial %d: C rejected\n", trial)
		}
	}
	t := triangularT(p, f, rnd)

	var b, bInv *gfq.Matrix
	for trial := 1; ; trial++ {
		if trial > maxTrials {
			return nil, nil, fmt.Errorf("keygen: B: %w", ErrNotInvertible)
		}
		b = f.Random(p.N, p.N, rnd)
		var err error
		if bInv, err = b.Inverse(); err == nil {
			break
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "[keygen] trial %d: B singular\n", trial)
		}
	}
	a := c.Mul(t).Mul(bInv)
	return &PublicKey{A: a}, &PrivateKey{C: c, T: t, B: b}, nil
}

// sparseC spreads Norm1 units of magnitude over random columns of each row
// with a random sign per entry.
func sparseC(p Params, f *gfq.Field, rnd *prng.Source) *gfq.Matrix {
	cols := p.M + p.D()
	c := f.NewMatrix(p.M, cols)
	mag := make([]int64, cols)
	for i := 0; i < p.M; i++ {
		for j := range mag {
			mag[j] = 0
		}
		for u := 0; u < p.Norm1; u++ {
			mag[rnd.Intn(cols)]++
		}
		for j, v := range mag {
			if v == 0 {
				continue
			}
			if rnd.Intn(2) == 1 {
				v = -v
			}
			c.Set(i, j, f.Reduce(v))
		}
	}
	return c
}

// triangularT puts Diag at rows (2c, 2c+1) of column c and uniform entries
// below it.
func triangularT(p Params, f *gfq.Field, rnd *prng.Source) *gfq.Matrix {
	rows := p.K * p.N
	t := f.NewMatrix(rows, p.N)
	for col := 0; col < p.N; col++ {
		t.Set(p.K*col, col, p.Diag[0])
		t.Set(p.K*col+1, col, p.Diag[1])
		for r := p.K*col + p.K; r < rows; r++ {
			t.Set(r, col, uint64(rnd.Intn(int(p.Q))))
		}
	}
	return t
}

func noZeroColumn(m *gfq.Matrix) bool {
	for j := 0; j < m.Cols; j++ {
		if m.Col(j).IsZero() {
			return false
		}
	}
	return true
}

// SampleResidues draws count residues C·z with z uniform in the z bound.
// Real residues come from signatures; these stand in for them in tests.
func SampleResidues(p Params, sk *PrivateKey, count int, rnd *prng.Source) []gfq.Vec {
	f := sk.C.F
	out := make([]gfq.Vec, count)
	z := make(gfq.Vec, sk.C.Cols)
	span := int(2*p.ZBound + 1)
	for s := range out {
		for j := range z {
			z[j] = f.Reduce(int64(rnd.Intn(span)) - p.ZBound)
		}
		out[s] = sk.C.MulVec(z)
	}
	return out
}
