package eht

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"eht-attack/internal/gfq"
	"eht-attack/internal/prng"
)

func smallParams(t *testing.T) Params {
	t.Helper()
	p, err := DefaultParams().WithShape(40, 24)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	return p
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	if p.D() != 52 || p.MaxKnownColumns() != 406 {
		t.Fatalf("d=%d maxKnown=%d", p.D(), p.MaxKnownColumns())
	}
	if p.PayloadBytes() != 178 {
		t.Fatalf("payload bytes = %d, want 178", p.PayloadBytes())
	}
	if _, err := p.WithShape(10, 10); err == nil {
		t.Fatalf("square shape accepted")
	}
}

func TestEncodeKnownValue(t *testing.T) {
	p, err := DefaultParams().WithShape(3, 2)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	sm, err := EncodeSignature(p, gfq.Vec{1, 2}, []byte("hi"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if want := []byte{0, 49, 'h', 'i'}; !bytes.Equal(sm, want) {
		t.Fatalf("encoded %v, want %v", sm, want)
	}
	x, msg, err := DecodeSignature(p, sm)
	if err != nil || !x.Equal(gfq.Vec{1, 2}) || string(msg) != "hi" {
		t.Fatalf("decode: x=%v msg=%q err=%v", x, msg, err)
	}
	if _, _, err := DecodeSignature(p, []byte{0xff, 0xff}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("oversized payload accepted: %v", err)
	}
	if _, err := EncodeSignature(p, gfq.Vec{47, 0}, nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("unreduced payload accepted: %v", err)
	}
}

func TestCodecFullSize(t *testing.T) {
	p := DefaultParams()
	f := p.Field()
	rnd := prng.FromInt(5)
	x := f.Random(p.N, 1, rnd).Col(0)
	x[0] = 46
	sm, err := EncodeSignature(p, x, []byte("message"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(sm) != p.PayloadBytes()+len("message") {
		t.Fatalf("signed message length %d", len(sm))
	}
	got, msg, err := DecodeSignature(p, sm)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Equal(x) || string(msg) != "message" {
		t.Fatalf("round trip mismatch")
	}
}

func TestGenerateKeyStructure(t *testing.T) {
	p := smallParams(t)
	pk, sk, err := GenerateKey(p, prng.FromInt(1), nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if err := CheckConsistency(pk, sk); err != nil {
		t.Fatalf("consistency: %v", err)
	}
	f := sk.C.F
	for i := 0; i < sk.C.Rows; i++ {
		var l1 int64
		for _, x := range sk.C.Row(i) {
			v := f.Center(x)
			if v < 0 {
				v = -v
			}
			l1 += v
		}
		if l1 != int64(p.Norm1) {
			t.Fatalf("row %d has l1 norm %d", i, l1)
		}
	}
	for col := 0; col < p.N; col++ {
		if sk.T.At(2*col, col) != 1 || sk.T.At(2*col+1, col) != 7 {
			t.Fatalf("column %d diagonal block wrong", col)
		}
		for r := 0; r < 2*col; r++ {
			if sk.T.At(r, col) != 0 {
				t.Fatalf("T[%d,%d] above the diagonal block is non-zero", r, col)
			}
		}
	}
	broken := &PrivateKey{C: sk.C, T: sk.T, B: f.Identity(p.N)}
	var ce *ContractError
	if err := CheckConsistency(pk, broken); !errors.As(err, &ce) {
		t.Fatalf("inconsistent key passed: %v", err)
	}
}

func TestShakeHasher(t *testing.T) {
	p := smallParams(t)
	h := NewShakeHasher(p)
	a, _ := h.Hash([]byte("abc"))
	b, _ := h.Hash([]byte("abc"))
	c, _ := h.Hash([]byte("abd"))
	if len(a) != p.M || !a.Equal(b) || a.Equal(c) {
		t.Fatalf("hash not a deterministic function of the message")
	}
	for _, x := range a {
		if x >= p.Q {
			t.Fatalf("coordinate %d out of range", x)
		}
	}
}

func TestCommandHasher(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}
	h := &CommandHasher{Path: sh, Args: []string{"-c", "cat >/dev/null; printf '\\001\\002\\003'"}, Q: 47, M: 3}
	v, err := h.Hash([]byte("msg"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !v.Equal(gfq.Vec{1, 2, 3}) {
		t.Fatalf("got %v", v)
	}
	h.M = 4
	if _, err := h.Hash(nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("short oracle output accepted: %v", err)
	}
}

func TestResidueMatchesCz(t *testing.T) {
	p := smallParams(t)
	pk, sk, err := GenerateKey(p, prng.FromInt(2), nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	f := sk.C.F
	rnd := prng.FromInt(3)
	// any y gives x = B·y with h - A·x = C·(a - T·y) when C·a = h
	y := f.Random(p.N, 1, rnd).Col(0)
	a := f.Random(sk.C.Cols, 1, rnd).Col(0)
	msg := []byte("residue")
	h := fixedHasher{v: sk.C.MulVec(a)}
	sm, err := EncodeSignature(p, sk.B.MulVec(y), msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	e, gotMsg, err := Residue(p, pk, sm, h)
	if err != nil {
		t.Fatalf("residue: %v", err)
	}
	want := sk.C.MulVec(f.SubVec(a, sk.T.MulVec(y)))
	if !e.Equal(want) || string(gotMsg) != "residue" {
		t.Fatalf("residue != C·(a - T·y)")
	}
}

func TestCountSmall(t *testing.T) {
	p := DefaultParams()
	e := gfq.Vec{0, 13, 14, 33, 34, 46}
	if got := CountSmall(p, e); got != 4 {
		t.Fatalf("CountSmall = %d, want 4", got)
	}
}

type fixedHasher struct{ v gfq.Vec }

func (h fixedHasher) Hash([]byte) (gfq.Vec, error) { return h.v, nil }

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{ErrConvergence, true},
		{fmt.Errorf("fill: %w", ErrNotInvertible), true},
		{fmt.Errorf("forge: %w", ErrAcceptanceExhausted), true},
		{ErrSearchExhausted, false},
		{ErrBoundViolation, false},
		{Contract("key", "C·T != A·B"), false},
	}
	for _, c := range cases {
		if got := IsRetryable(c.err); got != c.want {
			t.Fatalf("IsRetryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}
