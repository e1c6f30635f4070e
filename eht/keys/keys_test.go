package keys

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"eht-attack/eht"
	"eht-attack/internal/prng"
)

func TestSaveLoadKeys(t *testing.T) {
	p, err := eht.DefaultParams().WithShape(40, 24)
	if err != nil {
		t.Fatal(err)
	}
	pk, sk, err := eht.GenerateKey(p, prng.FromInt(9), nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	dir := t.TempDir()
	pubPath := filepath.Join(dir, "public.json")
	privPath := filepath.Join(dir, "private.json")
	if err := SavePublic(pubPath, pk); err != nil {
		t.Fatalf("save public: %v", err)
	}
	if err := SavePrivate(privPath, sk); err != nil {
		t.Fatalf("save private: %v", err)
	}
	pk2, err := LoadPublic(pubPath, p)
	if err != nil {
		t.Fatalf("load public: %v", err)
	}
	sk2, err := LoadPrivate(privPath, p, true)
	if err != nil {
		t.Fatalf("load private: %v", err)
	}
	if !pk2.A.Equal(pk.A) || !sk2.C.Equal(sk.C) || !sk2.T.Equal(sk.T) || !sk2.B.Equal(sk.B) {
		t.Fatalf("keys changed on disk round trip")
	}
	if err := eht.CheckConsistency(pk2, sk2); err != nil {
		t.Fatalf("reloaded key inconsistent: %v", err)
	}

	other, _ := p.WithShape(41, 24)
	if _, err := LoadPublic(pubPath, other); err == nil {
		t.Fatalf("shape mismatch accepted")
	}
	if _, err := LoadPrivate(privPath, other, true); err == nil {
		t.Fatalf("strict private load accepted wrong shape")
	}
	sk3, p3, err := LoadPrivateAnyShape(privPath, eht.DefaultParams())
	if err != nil || p3.M != p.M || p3.N != p.N || p3.Accept != p.Accept || !sk3.B.Equal(sk.B) {
		t.Fatalf("any-shape load: params %+v err %v", p3, err)
	}
}

func TestSchemeShapeLoad(t *testing.T) {
	p, err := eht.DefaultParams().WithShape(40, 24)
	if err != nil {
		t.Fatal(err)
	}
	_, sk, err := eht.GenerateKey(p, prng.FromInt(10), nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	dir := t.TempDir()
	schemePath := filepath.Join(dir, "scheme.json")
	if err := SavePrivate(schemePath, sk); err != nil {
		t.Fatal(err)
	}
	got, gp, err := LoadSchemePrivate(schemePath, eht.DefaultParams())
	if err != nil {
		t.Fatalf("scheme key: %v", err)
	}
	if gp.M != p.M || gp.N != p.N || got.C.Cols != p.M+p.D() {
		t.Fatalf("scheme key loaded as %dx%d with m=%d n=%d", got.C.Rows, got.C.Cols, gp.M, gp.N)
	}

	// a recovered key has inner dimension m+1
	f := p.Field()
	rec := &eht.PrivateKey{C: f.NewMatrix(p.M, p.M+1), T: f.NewMatrix(p.M+1, p.N), B: sk.B}
	recPath := filepath.Join(dir, "recovered.json")
	if err := SavePrivate(recPath, rec); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadSchemePrivate(recPath, eht.DefaultParams()); !errors.Is(err, ErrInnerDim) {
		t.Fatalf("recovered key under scheme load: %v", err)
	}
	if _, _, err := LoadPrivateAnyShape(recPath, eht.DefaultParams()); err != nil {
		t.Fatalf("recovered key under any-shape load: %v", err)
	}
}

func TestRejectUnreducedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"A": [[1, 2], [3, 47]]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPublicAnyShape(path, 47); !errors.Is(err, eht.ErrMalformed) {
		t.Fatalf("want ErrMalformed, got %v", err)
	}
}
