package forge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"eht-attack/eht"
	"eht-attack/internal/gfq"
	"eht-attack/internal/prng"
	"eht-attack/recovery"
)

func testKey(t *testing.T, seed int64) (eht.Params, *eht.PublicKey, *eht.PrivateKey) {
	t.Helper()
	p, err := eht.DefaultParams().WithShape(40, 24)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	pk, sk, err := eht.GenerateKey(p, prng.FromInt(seed), nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	return p, pk, sk
}

// recoveredKey rebuilds a key from the shuffled, sign-flipped columns of sk.
func recoveredKey(t *testing.T, p eht.Params, pk *eht.PublicKey, sk *eht.PrivateKey, seed int64) *eht.PrivateKey {
	t.Helper()
	f := p.Field()
	rnd := prng.FromInt(seed).Fork("shuffle")
	var cols [][]int64
	for _, src := range rnd.Perm(sk.C.Cols) {
		col := f.Centered(sk.C.Col(src))
		if rnd.Intn(2) == 1 {
			for i := range col {
				col[i] = -col[i]
			}
		}
		cols = append(cols, col)
	}
	r, err := recovery.New(p, pk, cols, nil)
	if err != nil {
		t.Fatalf("recovery: %v", err)
	}
	key, _, err := r.Solve(context.Background(), prng.FromInt(seed).Fork("fill"))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	return key
}

func checkPreimage(t *testing.T, p eht.Params, pk *eht.PublicKey, sk *eht.PrivateKey, h gfq.Vec, pre *Preimage) {
	t.Helper()
	f := p.Field()
	for i, zi := range pre.Z {
		if c := f.Center(zi); c > p.ZBound || c < -p.ZBound {
			t.Fatalf("z[%d] = %d out of bound", i, c)
		}
	}
	if !sk.C.MulVec(pre.Z).Equal(pre.E) {
		t.Fatalf("E != C·Z")
	}
	if !f.SubVec(h, pk.A.MulVec(pre.X)).Equal(pre.E) {
		t.Fatalf("h - A·X != E")
	}
	if got := eht.CountSmall(p, pre.E); got < p.Accept || got != pre.Stats.Small {
		t.Fatalf("small count %d (stats %d), threshold %d", got, pre.Stats.Small, p.Accept)
	}
}

func TestLegitimateSigning(t *testing.T) {
	p, pk, sk := testKey(t, 1)
	h := eht.NewShakeHasher(p)
	fg, err := New(p, sk, h, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if fg.Triangular() != p.N {
		t.Fatalf("true key has %d triangular columns, want %d", fg.Triangular(), p.N)
	}
	rnd := prng.FromInt(11)
	for k := 0; k < 3; k++ {
		msg := []byte(fmt.Sprintf("legit %d", k))
		target, _ := h.Hash(msg)
		pre, err := fg.Preimage(target, rnd)
		if err != nil {
			t.Fatalf("preimage: %v", err)
		}
		checkPreimage(t, p, pk, sk, target, pre)

		sm, _, err := fg.Sign(msg, rnd)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		v, err := eht.Verify(p, pk, sm, h)
		if err != nil || !v.Accepted {
			t.Fatalf("verify: %+v %v", v, err)
		}
	}
}

func TestForgeWithRecoveredKey(t *testing.T) {
	for _, seed := range []int64{2, 3} {
		p, pk, sk := testKey(t, seed)
		key := recoveredKey(t, p, pk, sk, seed)
		h := eht.NewShakeHasher(p)
		fg, err := New(p, key, h, nil)
		if err != nil {
			t.Fatalf("seed %d: new: %v", seed, err)
		}
		if fg.Triangular() != p.MaxKnownColumns()/2 {
			t.Fatalf("seed %d: %d triangular columns", seed, fg.Triangular())
		}
		rnd := prng.FromInt(seed).Fork("forge")
		for k := 0; k < 3; k++ {
			msg := []byte(fmt.Sprintf("forged %d", k))
			target, _ := h.Hash(msg)
			pre, err := fg.Preimage(target, rnd)
			if err != nil {
				t.Fatalf("seed %d: preimage: %v", seed, err)
			}
			checkPreimage(t, p, pk, key, target, pre)

			sm, st, err := fg.Sign(msg, rnd)
			if err != nil {
				t.Fatalf("seed %d: sign: %v", seed, err)
			}
			v, err := eht.Verify(p, pk, sm, h)
			if err != nil || !v.Accepted || v.Small != st.Small {
				t.Fatalf("seed %d: verify %+v stats %+v err %v", seed, v, st, err)
			}
		}
	}
}

func TestAcceptanceExhausted(t *testing.T) {
	p, _, sk := testKey(t, 4)
	p.EBound = 0
	p.Accept = p.M
	fg, err := New(p, sk, eht.NewShakeHasher(p), &Opts{MaxTrials: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, st, err := fg.Sign([]byte("never"), prng.FromInt(1))
	if !errors.Is(err, eht.ErrAcceptanceExhausted) || !eht.IsRetryable(err) {
		t.Fatalf("got %v, want ErrAcceptanceExhausted", err)
	}
	if st.Trials != 3 || st.Rejected+st.CVPFailures != 3 {
		t.Fatalf("stats %+v", st)
	}
}

func TestTriangularDetection(t *testing.T) {
	f := gfq.MustNew(47)
	tm, _ := f.FromRows([][]int64{
		{5, 0, 0},
		{2, 0, 0},
		{3, 0, 0},
		{4, 1, 0},
		{1, 7, 1},
		{9, 2, 7},
	})
	if got := triangular(tm); got != 3 {
		t.Fatalf("triangular = %d, want 3", got)
	}
	tm.Set(1, 1, 4)
	if got := triangular(tm); got != 1 {
		t.Fatalf("triangular = %d, want 1", got)
	}
	tm.Set(0, 2, 1)
	if got := triangular(tm); got != 0 {
		t.Fatalf("triangular = %d, want 0", got)
	}
}

func TestNewRejectsRankDeficientC(t *testing.T) {
	p, _, sk := testKey(t, 5)
	bad := &eht.PrivateKey{C: sk.C.Clone(), T: sk.T, B: sk.B}
	for j := 0; j < bad.C.Cols; j++ {
		bad.C.Set(0, j, 0)
	}
	if _, err := New(p, bad, eht.NewShakeHasher(p), nil); !errors.Is(err, eht.ErrNotInvertible) {
		t.Fatalf("got %v, want ErrNotInvertible", err)
	}
}
