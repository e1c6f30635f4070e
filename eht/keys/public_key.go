package keys

import (
	"encoding/json"
	"fmt"
	"os"

	"eht-attack/eht"
	"eht-attack/internal/gfq"
)

// PublicKey is the on-disk public key: {"A": [[...], ...]}.
type PublicKey struct {
	A [][]int64 `json:"A"`
}

// SavePublic writes pk as indented JSON.
func SavePublic(path string, pk *eht.PublicKey) error {
	return writeJSON(path, PublicKey{A: pk.A.IntRows()})
}

// LoadPublic reads a public key and checks it against p's shape.
func LoadPublic(path string, p eht.Params) (*eht.PublicKey, error) {
	var raw PublicKey
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	a, err := toMatrix(p.Field(), "A", raw.A)
	if err != nil {
		return nil, err
	}
	if a.Rows != p.M || a.Cols != p.N {
		return nil, fmt.Errorf("%s: A is %dx%d, want %dx%d", path, a.Rows, a.Cols, p.M, p.N)
	}
	return &eht.PublicKey{A: a}, nil
}

// LoadPublicAnyShape reads a public key without a shape expectation.
func LoadPublicAnyShape(path string, q uint64) (*eht.PublicKey, error) {
	var raw PublicKey
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	a, err := toMatrix(gfq.MustNew(q), "A", raw.A)
	if err != nil {
		return nil, err
	}
	return &eht.PublicKey{A: a}, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// toMatrix validates that every entry is already reduced.
func toMatrix(f *gfq.Field, name string, rows [][]int64) (*gfq.Matrix, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", eht.ErrMalformed, name)
	}
	for i, row := range rows {
		for j, x := range row {
			if x < 0 || uint64(x) >= f.Q {
				return nil, fmt.Errorf("%w: %s[%d][%d] = %d outside [0,%d)", eht.ErrMalformed, name, i, j, x, f.Q)
			}
		}
	}
	m, err := f.FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", eht.ErrMalformed, name, err)
	}
	return m, nil
}
