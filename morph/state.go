package morph

import (
	"fmt"

	ehtio "eht-attack/eht/io"
)

// Save writes <base>.Li.npy and <base>.vecs.npy.
func (s *State) Save(base string) error {
	liPath, vecsPath := ehtio.StatePaths(base)
	if err := ehtio.WriteNPY(liPath, s.Li.Rows, s.Li.Cols, s.Li.Data); err != nil {
		return err
	}
	return ehtio.WriteNPY(vecsPath, s.Vecs.Rows, s.Vecs.Cols, s.Vecs.Data)
}

// Load reads a state written by Save (or by the NumPy tooling).
func Load(base string) (*State, error) {
	liPath, vecsPath := ehtio.StatePaths(base)
	r, c, li, err := ehtio.ReadNPY(liPath)
	if err != nil {
		return nil, err
	}
	if r != c {
		return nil, fmt.Errorf("%s: Li is %dx%d, want square", liPath, r, c)
	}
	vr, vc, vecs, err := ehtio.ReadNPY(vecsPath)
	if err != nil {
		return nil, err
	}
	if vc != c {
		return nil, fmt.Errorf("%s: samples have %d coordinates, Li is %dx%d", vecsPath, vc, r, c)
	}
	return &State{
		Li:   &Dense{Rows: r, Cols: c, Data: li},
		Vecs: &Dense{Rows: vr, Cols: vc, Data: vecs},
		Kept: vr,
	}, nil
}
