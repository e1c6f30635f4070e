// Package forge signs arbitrary messages with a (possibly recovered) EHT
// private key. A preimage a of h under C is split along T: the dense leading
// block is handled by a CVP over the q-ary lattice spanned by T's leading
// columns, the trailing block-triangular columns greedily one pair at a time.
// The true key is fully triangular, so the same code is the legitimate signer.
package forge

import (
	"fmt"
	"log"
	"time"

	"eht-attack/eht"
	"eht-attack/internal/gfq"
	"eht-attack/internal/prng"
	"eht-attack/lll"
	"eht-attack/prof"
)

// Opts tunes signing. Zero values take the defaults.
type Opts struct {
	MaxTrials int // fresh preimages tried per message (default 200)
	Verbose   bool
}

// Stats counts what happened across the trials of one signature.
type Stats struct {
	Trials      int
	CVPFailures int // no embedding row, or an error outside the z bound
	Rejected    int // e = C·z below the acceptance threshold
	Small       int // small coordinates of the accepted e
}

// Preimage is an accepted solution: A·X = h - E with E = C·Z and |Z| bounded.
type Preimage struct {
	X, Y, Z, E gfq.Vec
	Stats      Stats
}

// Forger holds the key-dependent precomputation.
type Forger struct {
	p    eht.Params
	f    *gfq.Field
	sk   *eht.PrivateKey
	h    eht.Hasher
	opts Opts

	pivots []int       // columns of C forming an invertible m×m block
	free   []int       // the remaining columns, set at random
	cpInv  *gfq.Matrix // inverse of C restricted to pivots
	tri    int         // trailing block-triangular columns of T
	tul    *gfq.Matrix // dense leading block of T
	basis  [][]int64   // q-ary lattice basis for the columns of tul
}

// New prepares a forger for sk. C must have full row rank.
func New(p eht.Params, sk *eht.PrivateKey, h eht.Hasher, opts *Opts) (*Forger, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if sk.C.Rows != p.M || sk.T.Rows != sk.C.Cols || sk.T.Cols != p.N || sk.B.Rows != p.N || sk.B.Cols != p.N {
		return nil, fmt.Errorf("forge: %w: key shape does not match m=%d n=%d", eht.ErrMalformed, p.M, p.N)
	}
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.MaxTrials <= 0 {
		o.MaxTrials = 200
	}
	o.Verbose = o.Verbose || eht.DebugOn
	f := sk.C.F
	fg := &Forger{p: p, f: f, sk: sk, h: h, opts: o}

	_, piv := sk.C.Echelon()
	if len(piv) != p.M {
		return nil, fmt.Errorf("forge: C has rank %d, need %d: %w", len(piv), p.M, eht.ErrNotInvertible)
	}
	isPiv := make([]bool, sk.C.Cols)
	cp := f.NewMatrix(p.M, p.M)
	for k, j := range piv {
		isPiv[j] = true
		cp.SetCol(k, sk.C.Col(j))
	}
	for j := range isPiv {
		if !isPiv[j] {
			fg.free = append(fg.free, j)
		}
	}
	var err error
	if fg.cpInv, err = cp.Inverse(); err != nil {
		return nil, err
	}
	fg.pivots = piv

	fg.tri = triangular(sk.T)
	rows, nonTri := sk.T.Rows, p.N-fg.tri
	if nonTri > 0 {
		fg.tul = sk.T.Slice(0, rows-2*fg.tri, 0, nonTri)
		fg.basis = latticeBasis(fg.tul)
	}
	if o.Verbose {
		log.Printf("[forge] %d triangular columns, CVP dimension %d", fg.tri, rows-2*fg.tri)
	}
	return fg, nil
}

// Triangular is the number of trailing columns handled greedily.
func (fg *Forger) Triangular() int { return fg.tri }

// triangular counts trailing columns i of T (from the right) that vanish
// above their diagonal pair, i.e. T[:rows-2(i+1), col] == 0.
func triangular(t *gfq.Matrix) int {
	tri := 0
	for i := 0; i < t.Cols; i++ {
		col := t.Cols - 1 - i
		top := t.Rows - 2*(i+1)
		if top < 0 || !t.Slice(0, top, col, col+1).IsZero() {
			break
		}
		tri++
	}
	return tri
}

// latticeBasis returns a full-rank row basis of {tul·y} + qZ^R: the nonzero
// rows of the reduced echelon form of tulᵀ plus q·e_j for every non-pivot j.
func latticeBasis(tul *gfq.Matrix) [][]int64 {
	ech, piv := tul.Transpose().Echelon()
	r := tul.Rows
	isPiv := make([]bool, r)
	basis := make([][]int64, 0, r)
	for i, j := range piv {
		isPiv[j] = true
		row := make([]int64, r)
		for k, v := range ech.Row(i) {
			row[k] = int64(v)
		}
		basis = append(basis, row)
	}
	for j := 0; j < r; j++ {
		if !isPiv[j] {
			row := make([]int64, r)
			row[j] = int64(tul.F.Q)
			basis = append(basis, row)
		}
	}
	return basis
}

// Sign hashes msg and returns the signed message x‖msg.
func (fg *Forger) Sign(msg []byte, rnd *prng.Source) ([]byte, Stats, error) {
	h, err := fg.h.Hash(msg)
	if err != nil {
		return nil, Stats{}, err
	}
	pre, err := fg.Preimage(h, rnd)
	if err != nil {
		return nil, pre.statsOrZero(), err
	}
	sm, err := eht.EncodeSignature(fg.p, pre.X, msg)
	return sm, pre.Stats, err
}

func (pre *Preimage) statsOrZero() Stats {
	if pre == nil {
		return Stats{}
	}
	return pre.Stats
}

// Preimage finds x with h - A·x = C·z, |z| <= ZBound and at least Accept
// small coordinates. Each trial draws a fresh preimage of h under C. On
// ErrAcceptanceExhausted the returned Preimage carries the trial stats.
func (fg *Forger) Preimage(h gfq.Vec, rnd *prng.Source) (*Preimage, error) {
	defer prof.Track(time.Now(), "forge")
	if len(h) != fg.p.M {
		return nil, fmt.Errorf("forge: target has %d coordinates, want %d", len(h), fg.p.M)
	}
	var st Stats
	for st.Trials < fg.opts.MaxTrials {
		st.Trials++
		a := fg.lift(h, rnd)
		y, ok, err := fg.leading(a)
		if err != nil {
			return nil, err
		}
		if !ok {
			st.CVPFailures++
			continue
		}
		z, err := fg.trailing(a, y)
		if err != nil {
			return nil, err
		}
		e := fg.sk.C.MulVec(z)
		small := eht.CountSmall(fg.p, e)
		if small < fg.p.Accept {
			st.Rejected++
			if fg.opts.Verbose {
				log.Printf("[forge] trial %d: %d/%d small, rejected", st.Trials, small, fg.p.M)
			}
			continue
		}
		st.Small = small
		if fg.opts.Verbose {
			log.Printf("[forge] trial %d: %d/%d small, accepted", st.Trials, small, fg.p.M)
		}
		return &Preimage{X: fg.sk.B.MulVec(y), Y: y, Z: z, E: e, Stats: st}, nil
	}
	return &Preimage{Stats: st}, fmt.Errorf("forge: %d trials: %w", st.Trials, eht.ErrAcceptanceExhausted)
}

// lift returns a uniformly chosen a with C·a = h.
func (fg *Forger) lift(h gfq.Vec, rnd *prng.Source) gfq.Vec {
	f := fg.f
	a := f.NewVec(fg.sk.C.Cols)
	rhs := append(gfq.Vec(nil), h...)
	for _, j := range fg.free {
		a[j] = uint64(rnd.Intn(int(f.Q)))
		if a[j] == 0 {
			continue
		}
		for i := range rhs {
			rhs[i] = f.Sub(rhs[i], f.Mul(fg.sk.C.At(i, j), a[j]))
		}
	}
	for k, v := range fg.cpInv.MulVec(rhs) {
		a[fg.pivots[k]] = v
	}
	return a
}

// leading solves the dense block: y[:nonTri] with a[:R] - tul·y short. It
// reports false when the CVP misses or its error leaves the z bound.
func (fg *Forger) leading(a gfq.Vec) (gfq.Vec, bool, error) {
	f := fg.f
	y := f.NewVec(fg.p.N)
	if fg.tul == nil {
		return y, true, nil
	}
	r := fg.tul.Rows
	target := make([]int64, r)
	for i := range target {
		target[i] = int64(a[i])
	}
	e, err := lll.CVP(fg.basis, target, fg.p.Embed)
	if err != nil {
		return nil, false, nil
	}
	shifted := f.NewVec(r)
	for i, ei := range e {
		if c := f.Center(f.Reduce(ei)); c > fg.p.ZBound || c < -fg.p.ZBound {
			return nil, false, nil
		}
		shifted[i] = f.Sub(a[i], f.Reduce(ei))
	}
	yt, err := fg.tul.SolveVec(shifted)
	if err != nil {
		return nil, false, &eht.ContractError{Stage: "forge", Detail: "CVP point outside the column space of T", Index: -1}
	}
	copy(y, yt)
	return y, true, nil
}

// trailing fixes y on the triangular columns, left to right. Column col has
// its diagonal pair (d0, d1) at rows ind, ind+1 and nothing above, so z[ind]
// can be pinned within the bound and y chosen to make z[ind+1] smallest.
func (fg *Forger) trailing(a, y gfq.Vec) (gfq.Vec, error) {
	f := fg.f
	t := fg.sk.T
	z := f.SubVec(a, t.MulVec(y))
	nonTri := fg.p.N - fg.tri
	r0 := t.Rows - 2*fg.tri
	bound := fg.p.ZBound
	for i := 0; i < fg.tri; i++ {
		ind, col := r0+2*i, nonTri+i
		d0, d1 := t.At(ind, col), t.At(ind+1, col)
		if d0 == 0 {
			return nil, &eht.ContractError{Stage: "forge", Detail: "zero diagonal in triangular block", Index: col}
		}
		d0Inv := f.Inv(d0)
		var best uint64
		bestDist, bestDev := int64(-1), int64(0)
		for dev := bound; dev >= -bound; dev-- {
			yy := f.Mul(d0Inv, f.Sub(z[ind], f.Reduce(dev)))
			dist := f.Center(f.Sub(z[ind+1], f.Mul(d1, yy)))
			if dist < 0 {
				dist = -dist
			}
			adev := dev
			if adev < 0 {
				adev = -adev
			}
			if bestDist < 0 || dist < bestDist || (dist == bestDist && adev < bestDev) {
				best, bestDist, bestDev = yy, dist, adev
			}
		}
		y[col] = best
		for k := ind; k < t.Rows; k++ {
			z[k] = f.Sub(z[k], f.Mul(best, t.At(k, col)))
		}
	}
	for i, zi := range z {
		if c := f.Center(zi); c > bound || c < -bound {
			return nil, fmt.Errorf("forge: z[%d] = %d: %w", i, c, eht.ErrBoundViolation)
		}
	}
	return z, nil
}
