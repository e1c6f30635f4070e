// Package recovery rebuilds a working private key from the public key and a
// pool of candidate columns of C with unknown order and sign.
//
// Phase A orders the columns two at a time. With the rightmost 2l columns of
// C known, a left kernel K of those columns removes them from C·T = A·B, and
// the next pair (i, j) must satisfy sgn·K·c_i + 7·K·c_j ∈ span(K·A). Reducing
// every K·c by an echelon basis of K·A turns this into an exact equality
// lookup between reduced vectors. Phase B recovers the matching block of T
// and the key is completed with random fill until C and B are invertible.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"eht-attack/eht"
	"eht-attack/internal/gfq"
	"eht-attack/internal/par"
	"eht-attack/internal/prng"
	"eht-attack/prof"
)

// Opts tunes recovery. Zero values take the defaults.
type Opts struct {
	MaxFillTrials int // cap on B refills and on C bumps (default 100000)
	Workers       int // goroutines for candidate reduction (default GOMAXPROCS)
	Verbose       bool
}

// Pick places candidate Index, multiplied by Sign (±1), as a column of C.
type Pick struct {
	Index int
	Sign  int
}

// Recoverer holds the read-only inputs shared by both phases.
type Recoverer struct {
	p     eht.Params
	f     *gfq.Field
	a     *gfq.Matrix
	cands []gfq.Vec
	opts  Opts
}

// New validates the candidate pool against the public key.
func New(p eht.Params, pk *eht.PublicKey, cols [][]int64, opts *Opts) (*Recoverer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if pk.A.Rows != p.M || pk.A.Cols != p.N {
		return nil, fmt.Errorf("recovery: public key is %dx%d, params say %dx%d", pk.A.Rows, pk.A.Cols, p.M, p.N)
	}
	if p.MaxKnownColumns() < 2 {
		return nil, fmt.Errorf("recovery: m=%d n=%d leaves no column pair to recover", p.M, p.N)
	}
	f := pk.A.F
	cands := make([]gfq.Vec, len(cols))
	for i, c := range cols {
		if len(c) != p.M {
			return nil, fmt.Errorf("recovery: candidate %d has %d entries, want %d", i, len(c), p.M)
		}
		cands[i] = f.VecFromInts(c)
	}
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.MaxFillTrials <= 0 {
		o.MaxFillTrials = 100000
	}
	o.Verbose = o.Verbose || eht.DebugOn
	return &Recoverer{p: p, f: f, a: pk.A, cands: cands, opts: o}, nil
}

// Candidates is the size of the pool.
func (r *Recoverer) Candidates() int { return len(r.cands) }

// BuildCRight lays out the picked columns left to right.
func (r *Recoverer) BuildCRight(known []Pick) *gfq.Matrix {
	c := r.f.NewMatrix(r.p.M, len(known))
	for j, pk := range known {
		col := r.cands[pk.Index]
		if pk.Sign < 0 {
			col = r.f.ScaleVec(r.f.Neg(1), col)
		}
		c.SetCol(j, col)
	}
	return c
}

// Solve runs both phases and completes the key. The returned order lists the
// recovered rightmost columns of C.
func (r *Recoverer) Solve(ctx context.Context, rnd *prng.Source) (*eht.PrivateKey, []Pick, error) {
	defer prof.Track(time.Now(), "recover")
	var tPart *gfq.Matrix
	order, err := r.Order(ctx, func(o []Pick) error {
		t, err := r.RecoverT(r.BuildCRight(o))
		if err != nil {
			return err
		}
		tPart = t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	key, err := r.Complete(r.BuildCRight(order), tPart, rnd)
	if err != nil {
		return nil, nil, err
	}
	return key, order, nil
}

func (r *Recoverer) logf(format string, args ...any) {
	if r.opts.Verbose {
		log.Printf("[recover] "+format, args...)
	}
}

// frame is one level of the column search: the confirmed columns and the
// extensions still to try.
type frame struct {
	known    []Pick
	exts     [][]Pick
	next     int
	expanded bool
}

// Order searches for a full-depth column order, depth first with an explicit
// stack. accept, when set, vets each full-depth order; a ContractError from
// it marks a dead end and the search backtracks, any other error aborts.
func (r *Recoverer) Order(ctx context.Context, accept func([]Pick) error) ([]Pick, error) {
	depth := r.p.MaxKnownColumns()
	stack := []*frame{{}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]
		if len(top.known) >= depth {
			if accept == nil {
				return top.known, nil
			}
			err := accept(top.known)
			if err == nil {
				return top.known, nil
			}
			var ce *eht.ContractError
			if !errors.As(err, &ce) {
				return nil, err
			}
			r.logf("dead end at full depth: %v", err)
			stack = stack[:len(stack)-1]
			continue
		}
		if !top.expanded {
			top.exts = r.Extensions(top.known)
			top.expanded = true
		}
		if top.next >= len(top.exts) {
			if len(top.known) > 0 {
				r.logf("backtrack from step %d", len(top.known)/2)
			}
			stack = stack[:len(stack)-1]
			continue
		}
		ext := top.exts[top.next]
		top.next++
		r.logf("found pair for step %d: (%d,%+d) (%d,%+d)", len(top.known)/2,
			ext[0].Index, ext[0].Sign, ext[1].Index, ext[1].Sign)
		stack = append(stack, &frame{known: ext})
	}
	return nil, eht.ErrSearchExhausted
}

// Extensions lists every candidate pair that can extend known, in a stable
// order: j ascending, sign -1 before +1, i ascending. Each extension places
// the new pair to the left of the known columns.
func (r *Recoverer) Extensions(known []Pick) [][]Pick {
	f := r.f
	var k *gfq.Matrix
	if len(known) > 0 {
		k = r.BuildCRight(known).LeftKernel()
	}
	ka := r.a
	if k != nil {
		ka = k.Mul(r.a)
	}
	basis := ka.ColumnEchelon()

	used := make(map[int]bool, len(known))
	for _, pk := range known {
		used[pk.Index] = true
	}
	idx := make([]int, 0, len(r.cands)-len(known))
	for i := range r.cands {
		if !used[i] {
			idx = append(idx, i)
		}
	}
	reduced := make([]gfq.Vec, len(idx))
	par.Ranges(len(idx), r.opts.Workers, func(_, lo, hi int) {
		for t := lo; t < hi; t++ {
			v := r.cands[idx[t]]
			if k != nil {
				v = k.MulVec(v)
			}
			reduced[t] = basis.Reduce(v)
		}
	})

	table := make(map[string][]int, len(reduced))
	for t, v := range reduced {
		key := v.Key()
		table[key] = append(table[key], t)
	}
	c := r.p.PairConst()
	var out [][]Pick
	for j, v := range reduced {
		for _, sgn := range []int{-1, 1} {
			// sgn·v_i + c·v_j = 0  <=>  v_i = sgn·(-c)·v_j
			coef := f.Reduce(-int64(sgn) * int64(c))
			for _, i := range table[f.ScaleVec(coef, v).Key()] {
				if i == j {
					continue
				}
				ext := make([]Pick, 0, len(known)+2)
				ext = append(ext, Pick{Index: idx[i], Sign: sgn}, Pick{Index: idx[j], Sign: 1})
				out = append(out, append(ext, known...))
			}
		}
	}
	return out
}
