package descent

import (
	"context"
	"errors"
	"math"
	"testing"

	"eht-attack/eht"
	"eht-attack/internal/prng"
	"eht-attack/morph"
)

// cubeState holds samples uniform in [-1,1]^dim with an identity Li: the
// hidden basis is the standard one.
func cubeState(dim, n int, seed int64) *morph.State {
	rnd := prng.FromInt(seed)
	vecs := morph.NewDense(n, dim)
	for i := range vecs.Data {
		vecs.Data[i] = 2*rnd.Float64() - 1
	}
	li := morph.NewDense(dim, dim)
	for i := 0; i < dim; i++ {
		li.Set(i, i, 1)
	}
	return &morph.State{Li: li, Vecs: vecs, Kept: n}
}

func isBasisVector(v []int64) bool {
	ones := 0
	for _, x := range v {
		switch x {
		case 0:
		case 1:
			ones++
		default:
			return false
		}
	}
	return ones == 1
}

func TestOrthogonalBasisConverges(t *testing.T) {
	st := cubeState(6, 20000, 1)
	for i := 0; i < 4; i++ {
		rnd := prng.FromInt(int64(100 + i))
		w, m, steps, _, err := Descend(context.Background(), st.Vecs, RandomUnit(6, rnd), &Opts{MaxSteps: 100})
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		// the cube's fourth moment along a basis vector is 1/5
		if math.Abs(m-0.2) > 0.01 {
			t.Fatalf("start %d: mom4 %.4f after %d steps", i, m, steps)
		}
		v := Finish(st.Li, w, m)
		if !isBasisVector(v) {
			t.Fatalf("start %d: %v is not a standard basis vector", i, v)
		}
	}
}

func TestMom4Gradient(t *testing.T) {
	st := cubeState(4, 500, 2)
	w := RandomUnit(4, prng.FromInt(3))
	m, g := Mom4(st.Vecs, w)
	const h = 1e-6
	for j := range w {
		wp := append([]float64(nil), w...)
		wp[j] += h
		mp, _ := Mom4(st.Vecs, wp)
		if d := math.Abs((mp-m)/h - g[j]); d > 1e-4 {
			t.Fatalf("gradient coordinate %d off by %g", j, d)
		}
	}
}

func TestFinish(t *testing.T) {
	li := morph.NewDense(3, 3)
	for i := 0; i < 3; i++ {
		li.Set(i, i, 2)
	}
	// m >= 1/3 leaves the scale at 1; the sign is flipped to make the
	// first non-zero entry positive
	got := Finish(li, []float64{0, -1.1, 0.6}, 0.4)
	if want := []int64{0, 2, -1}; got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("Finish = %v, want %v", got, want)
	}
	// m = 1/3 - 2/15 gives gamma = 1
	got = Finish(li, []float64{1, 0, 0}, 1.0/3-2.0/15)
	if got[0] != 2 {
		t.Fatalf("gamma scaling wrong: %v", got)
	}
}

func TestStepCapYieldsZeroSentinel(t *testing.T) {
	st := cubeState(6, 2000, 4)
	s := NewStream(st, 3, prng.FromInt(5), &Opts{MaxSteps: 1, Workers: 2})
	defer s.Close()
	for i := 0; i < 3; i++ {
		r, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !errors.Is(r.Err, eht.ErrConvergence) || r.Recovered() {
			t.Fatalf("attempt %d: err=%v vec=%v", r.Attempt, r.Err, r.Vec)
		}
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrDone) {
		t.Fatalf("want ErrDone, got %v", err)
	}
}

func TestStreamIndependentOfWorkers(t *testing.T) {
	st := cubeState(5, 4000, 6)
	collect := func(workers int) [][]int64 {
		s := NewStream(st, 6, prng.FromInt(7), &Opts{Workers: workers})
		defer s.Close()
		var out [][]int64
		for {
			r, err := s.Next(context.Background())
			if errors.Is(err, ErrDone) {
				return out
			}
			if err != nil {
				t.Fatalf("next: %v", err)
			}
			if r.Attempt != len(out) {
				t.Fatalf("attempt %d delivered out of order", r.Attempt)
			}
			out = append(out, r.Vec)
		}
	}
	a, b := collect(1), collect(4)
	if len(a) != 6 || len(b) != 6 {
		t.Fatalf("got %d and %d results", len(a), len(b))
	}
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("attempt %d differs between worker counts", i)
			}
		}
	}
}

func TestStreamRestartAndCancel(t *testing.T) {
	st := cubeState(5, 2000, 8)
	s := NewStream(st, 2, prng.FromInt(9), nil)
	first, err := s.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	s.Restart(prng.FromInt(9))
	again, err := s.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if again.Attempt != 0 || L1(again.Vec) != L1(first.Vec) {
		t.Fatalf("restart with the same seed changed attempt 0")
	}
	s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s2 := NewStream(st, 2, prng.FromInt(10), nil)
	if _, err := s2.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestSchemeResiduesDescendToColumns(t *testing.T) {
	p, err := eht.DefaultParams().WithShape(40, 24)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	_, sk, err := eht.GenerateKey(p, prng.FromInt(11), nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	st, err := morph.Decorrelate(p, eht.SampleResidues(p, sk, 50000, prng.FromInt(12)), nil)
	if err != nil {
		t.Fatalf("decorrelate: %v", err)
	}
	f := sk.C.F
	cols := make(map[string]int, 2*sk.C.Cols)
	for j := 0; j < sk.C.Cols; j++ {
		c := sk.C.Col(j)
		cols[c.Key()] = j
		cols[f.ScaleVec(f.Neg(1), c).Key()] = j
	}

	const attempts = 20
	s := NewStream(st, attempts, prng.FromInt(13), nil)
	defer s.Close()
	found := 0
	for {
		r, err := s.Next(context.Background())
		if errors.Is(err, ErrDone) {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if !r.Recovered() {
			continue
		}
		v := f.VecFromInts(r.Vec)
		if _, ok := cols[v.Key()]; !ok {
			t.Fatalf("attempt %d: %v is not a signed column of C", r.Attempt, r.Vec)
		}
		found++
	}
	if found < attempts/2 {
		t.Fatalf("only %d of %d attempts recovered a column", found, attempts)
	}
}
