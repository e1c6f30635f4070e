package keys

import (
	"errors"
	"fmt"

	"eht-attack/eht"
)

// ErrInnerDim reports a key whose inner dimension is not the scheme's m+d,
// which is the case for recovered keys.
var ErrInnerDim = errors.New("keys: inner dimension is not m+d")

// PrivateKey is the on-disk private key: {"C": ..., "T": ..., "B": ...}.
type PrivateKey struct {
	C [][]int64 `json:"C"`
	T [][]int64 `json:"T"`
	B [][]int64 `json:"B"`
}

// SavePrivate writes sk as indented JSON.
func SavePrivate(path string, sk *eht.PrivateKey) error {
	return writeJSON(path, PrivateKey{C: sk.C.IntRows(), T: sk.T.IntRows(), B: sk.B.IntRows()})
}

// LoadPrivate reads a private key. With strict set the scheme's own shapes
// are enforced (C: m×(m+d), T: (m+d)×n, B: n×n); recovered keys carry a
// different inner dimension and are loaded with strict unset.
func LoadPrivate(path string, p eht.Params, strict bool) (*eht.PrivateKey, error) {
	var raw PrivateKey
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	f := p.Field()
	c, err := toMatrix(f, "C", raw.C)
	if err != nil {
		return nil, err
	}
	t, err := toMatrix(f, "T", raw.T)
	if err != nil {
		return nil, err
	}
	b, err := toMatrix(f, "B", raw.B)
	if err != nil {
		return nil, err
	}
	sk := &eht.PrivateKey{C: c, T: t, B: b}
	inner := c.Cols
	if strict {
		inner = p.M + p.D()
		if c.Rows == p.M && c.Cols != inner {
			return nil, fmt.Errorf("%s: %w: C has %d columns, want %d", path, ErrInnerDim, c.Cols, inner)
		}
	}
	switch {
	case c.Rows != p.M || c.Cols != inner:
		return nil, fmt.Errorf("%s: C is %dx%d, want %dx%d", path, c.Rows, c.Cols, p.M, inner)
	case t.Rows != inner || t.Cols != p.N:
		return nil, fmt.Errorf("%s: T is %dx%d, want %dx%d", path, t.Rows, t.Cols, inner, p.N)
	case b.Rows != p.N || b.Cols != p.N:
		return nil, fmt.Errorf("%s: B is %dx%d, want %dx%d", path, b.Rows, b.Cols, p.N, p.N)
	}
	return sk, nil
}

// LoadPrivateAnyShape reads a private key whose shape is not known in
// advance and returns it with base resized to m = rows of C, n = columns of T.
func LoadPrivateAnyShape(path string, base eht.Params) (*eht.PrivateKey, eht.Params, error) {
	return loadShaped(path, base, false)
}

// LoadSchemePrivate is LoadPrivateAnyShape for keys of the scheme itself:
// C must be m×(m+d). Recovered keys fail with ErrInnerDim.
func LoadSchemePrivate(path string, base eht.Params) (*eht.PrivateKey, eht.Params, error) {
	return loadShaped(path, base, true)
}

func loadShaped(path string, base eht.Params, strict bool) (*eht.PrivateKey, eht.Params, error) {
	var raw PrivateKey
	if err := readJSON(path, &raw); err != nil {
		return nil, eht.Params{}, err
	}
	if len(raw.C) == 0 || len(raw.T) == 0 {
		return nil, eht.Params{}, fmt.Errorf("%w: %s: empty key", eht.ErrMalformed, path)
	}
	p, err := base.WithShape(len(raw.C), len(raw.T[0]))
	if err != nil {
		return nil, eht.Params{}, fmt.Errorf("%s: %w", path, err)
	}
	sk, err := LoadPrivate(path, p, strict)
	return sk, p, err
}
