// Package descent searches whitened samples for directions of minimal fourth
// moment (projected gradient descent on the unit sphere) and maps each
// minimum back to an integer candidate column of C.
package descent

import (
	"context"
	"fmt"
	"math"

	"eht-attack/eht"
	"eht-attack/internal/prng"
	"eht-attack/morph"
)

// Opts tunes the descent. Zero values take the defaults.
type Opts struct {
	Delta    float64 // step size (default 0.7)
	Tol      float64 // stop once the moment improves by less than this (default 1e-5)
	MaxSteps int     // per-attempt step cap (default 10000)
	Workers  int     // concurrent attempts (default GOMAXPROCS)
	Trace    bool    // keep the per-step moment values in each Result
	Verbose  bool
}

func (o *Opts) withDefaults() Opts {
	out := Opts{}
	if o != nil {
		out = *o
	}
	if out.Delta == 0 {
		out.Delta = 0.7
	}
	if out.Tol == 0 {
		out.Tol = 1e-5
	}
	if out.MaxSteps <= 0 {
		out.MaxSteps = 10000
	}
	out.Verbose = out.Verbose || eht.DebugOn
	return out
}

// Mom4 returns mean((X·w)^4) over the sample rows of x and its gradient
// 4·mean((X·w)^3 · x).
func Mom4(x *morph.Dense, w []float64) (float64, []float64) {
	grad := make([]float64, x.Cols)
	var mom float64
	for s := 0; s < x.Rows; s++ {
		row := x.Row(s)
		var t float64
		for j, v := range row {
			t += v * w[j]
		}
		t2 := t * t
		mom += t2 * t2
		c := 4 * t2 * t
		for j, v := range row {
			grad[j] += c * v
		}
	}
	n := float64(x.Rows)
	for j := range grad {
		grad[j] /= n
	}
	return mom / n, grad
}

// Descend walks from w0 until the moment stops improving by Tol and returns
// the last point before that step. Hitting MaxSteps yields ErrConvergence.
func Descend(ctx context.Context, x *morph.Dense, w0 []float64, opts *Opts) (w []float64, m float64, steps int, trace []float64, err error) {
	o := opts.withDefaults()
	w = append([]float64(nil), w0...)
	normalize(w)
	m, g := Mom4(x, w)
	if o.Trace {
		trace = append(trace, m)
	}
	wnew := make([]float64, len(w))
	for steps = 1; steps <= o.MaxSteps; steps++ {
		if err := ctx.Err(); err != nil {
			return w, m, steps, trace, err
		}
		for j := range w {
			wnew[j] = w[j] - o.Delta*g[j]
		}
		normalize(wnew)
		mnew, gnew := Mom4(x, wnew)
		if m-mnew < o.Tol {
			return w, m, steps, trace, nil
		}
		if o.Trace {
			trace = append(trace, mnew)
		}
		w, wnew = wnew, w
		m, g = mnew, gnew
	}
	return w, m, o.MaxSteps, trace, fmt.Errorf("%w after %d steps (mom4 %.6f)", eht.ErrConvergence, o.MaxSteps, m)
}

// Finish maps a descent minimum back through Li: scale by
// ((1/3 - m)·15/2)^(1/4) when m < 1/3, round, and flip the sign so the first
// non-zero entry is positive. A zero result means the attempt failed.
func Finish(li *morph.Dense, w []float64, m float64) []int64 {
	gamma := 1.0
	if m < 1.0/3 {
		gamma = math.Sqrt(math.Sqrt((1.0/3 - m) * 15 / 2))
	}
	v := li.MulVec(w)
	out := make([]int64, len(v))
	for i, x := range v {
		out[i] = int64(math.Round(gamma * x))
	}
	canonicalSign(out)
	return out
}

func canonicalSign(v []int64) {
	for _, x := range v {
		if x == 0 {
			continue
		}
		if x < 0 {
			for i := range v {
				v[i] = -v[i]
			}
		}
		return
	}
}

// RandomUnit draws an isotropic unit vector.
func RandomUnit(dim int, rnd *prng.Source) []float64 {
	w := make([]float64, dim)
	for i := range w {
		w[i] = rnd.NormFloat64()
	}
	normalize(w)
	return w
}

func normalize(w []float64) {
	var s float64
	for _, x := range w {
		s += x * x
	}
	if s == 0 {
		return
	}
	inv := 1 / math.Sqrt(s)
	for i := range w {
		w[i] *= inv
	}
}

// IsZero reports whether every coordinate vanishes.
func IsZero(v []int64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// L1 is the l1 norm of v.
func L1(v []int64) int64 {
	var s int64
	for _, x := range v {
		if x < 0 {
			x = -x
		}
		s += x
	}
	return s
}
