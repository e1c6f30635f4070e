// Package morph turns residue samples C·z into whitened vectors: samples of
// a skewed parallelepiped are mapped close to samples of a hypercube, so the
// secret directions become moment extremes (Ducas-Nguyen morphing).
package morph

import (
	"fmt"
	"log"
	"time"

	"eht-attack/eht"
	"eht-attack/internal/gfq"
	"eht-attack/internal/par"
	"eht-attack/prof"
)

// Opts tunes decorrelation. Zero values take the defaults.
type Opts struct {
	Scale   float64 // per-coordinate range of z, samples are divided by it (default 3)
	Workers int     // goroutines for covariance and whitening (default GOMAXPROCS)
	Verbose bool
}

// State is the decorrelation output consumed by descent.
type State struct {
	Li      *Dense // inverse whitening transform, m×m
	Vecs    *Dense // whitened samples, one per row
	Kept    int
	Dropped int
}

// Filter centres residues into (-q/2, q/2], drops every sample with a
// coordinate of magnitude >= p.Guard (it has wrapped around mod q) and
// divides the rest by scale.
func Filter(p eht.Params, es []gfq.Vec, scale float64) (kept [][]float64, dropped int) {
	f := p.Field()
	for _, e := range es {
		row := make([]float64, len(e))
		ok := true
		for j, x := range e {
			c := f.Center(x)
			if c >= p.Guard || -c >= p.Guard {
				ok = false
				break
			}
			row[j] = float64(c) / scale
		}
		if !ok {
			dropped++
			continue
		}
		kept = append(kept, row)
	}
	return kept, dropped
}

// Decorrelate computes Li and the whitened samples. With G = scale·cov(X) and
// L the Cholesky factor of G^-1, each sample x maps to Lᵀ·x and Li = (Lᵀ)^-1.
func Decorrelate(p eht.Params, es []gfq.Vec, opts *Opts) (*State, error) {
	if opts == nil {
		opts = &Opts{}
	}
	scale := opts.Scale
	if scale == 0 {
		scale = 3
	}
	verbose := opts.Verbose || eht.DebugOn
	defer prof.Track(time.Now(), "morph")

	xs, dropped := Filter(p, es, scale)
	if verbose {
		log.Printf("[morph] %d samples, %d dropped for wraparound", len(es), dropped)
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("%w: %d usable samples after the wraparound guard", eht.ErrDegenerateInput, len(xs))
	}
	dim := len(xs[0])

	cov := covariance(xs, opts.Workers)
	for i := range cov.Data {
		cov.Data[i] *= scale
	}
	gInv, err := spdInverse(cov)
	if err != nil {
		return nil, fmt.Errorf("%w: covariance %v", eht.ErrDegenerateInput, err)
	}
	l, err := cholesky(gInv)
	if err != nil {
		return nil, fmt.Errorf("%w: inverse covariance %v", eht.ErrDegenerateInput, err)
	}
	if verbose {
		log.Printf("[morph] cholesky of %dx%d inverse covariance done", dim, dim)
	}

	vecs := NewDense(len(xs), dim)
	par.Ranges(len(xs), opts.Workers, func(_, lo, hi int) {
		for s := lo; s < hi; s++ {
			x := xs[s]
			out := vecs.Row(s)
			// (Lᵀx)_i = sum_{j>=i} L[j][i] x_j
			for j := 0; j < dim; j++ {
				xj := x[j]
				if xj == 0 {
					continue
				}
				lj := l.Row(j)
				for i := 0; i <= j; i++ {
					out[i] += lj[i] * xj
				}
			}
		}
	})

	return &State{
		Li:      invLower(l).T(),
		Vecs:    vecs,
		Kept:    len(xs),
		Dropped: dropped,
	}, nil
}

// covariance is the sample covariance with an N-1 denominator. Each worker
// accumulates the lower triangle of its own partial scatter matrix.
func covariance(xs [][]float64, workers int) *Dense {
	n, dim := len(xs), len(xs[0])
	mean := make([]float64, dim)
	for _, x := range xs {
		for j, v := range x {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	parts := make([]*Dense, par.Chunks(n, workers))
	par.Ranges(n, workers, func(w, lo, hi int) {
		acc := NewDense(dim, dim)
		c := make([]float64, dim)
		for s := lo; s < hi; s++ {
			for j, v := range xs[s] {
				c[j] = v - mean[j]
			}
			for i := 0; i < dim; i++ {
				ci := c[i]
				if ci == 0 {
					continue
				}
				row := acc.Row(i)
				for j := 0; j <= i; j++ {
					row[j] += ci * c[j]
				}
			}
		}
		parts[w] = acc
	})

	cov := NewDense(dim, dim)
	for _, part := range parts {
		if part == nil {
			continue
		}
		for i := range cov.Data {
			cov.Data[i] += part.Data[i]
		}
	}
	denom := float64(n - 1)
	for i := 0; i < dim; i++ {
		for j := 0; j <= i; j++ {
			v := cov.At(i, j) / denom
			cov.Set(i, j, v)
			cov.Set(j, i, v)
		}
	}
	return cov
}
