// Package io reads and writes the attack's on-disk artifacts: residue sample
// files, decorrelation state in NumPy .npy form and candidate column files.
package io

import (
	"bufio"
	"fmt"
	stdio "io"
	"os"

	"eht-attack/internal/gfq"
)

// ReadResidueFile loads fixed-size residue records, one byte per coordinate.
func ReadResidueFile(path string, record int) ([]gfq.Vec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if record <= 0 || len(data)%record != 0 {
		return nil, fmt.Errorf("%s: length %d is not a multiple of the %d-byte record size", path, len(data), record)
	}
	out := make([]gfq.Vec, len(data)/record)
	for i := range out {
		v := make(gfq.Vec, record)
		for j, b := range data[i*record : (i+1)*record] {
			v[j] = uint64(b)
		}
		out[i] = v
	}
	return out, nil
}

// ResidueWriter appends records to a sample stream.
type ResidueWriter struct {
	w     *bufio.Writer
	q     uint64
	count int
}

// NewResidueWriter wraps w; coordinates must already be reduced mod q.
func NewResidueWriter(w stdio.Writer, q uint64) *ResidueWriter {
	return &ResidueWriter{w: bufio.NewWriter(w), q: q}
}

// Write appends one record.
func (rw *ResidueWriter) Write(e gfq.Vec) error {
	for i, x := range e {
		if x >= rw.q {
			return fmt.Errorf("residue coordinate %d = %d not reduced mod %d", i, x, rw.q)
		}
		if err := rw.w.WriteByte(byte(x)); err != nil {
			return err
		}
	}
	rw.count++
	return nil
}

// Count is the number of records written so far.
func (rw *ResidueWriter) Count() int { return rw.count }

// Flush pushes buffered records to the underlying writer.
func (rw *ResidueWriter) Flush() error { return rw.w.Flush() }

// WriteResidueFile writes all records to path.
func WriteResidueFile(path string, q uint64, es []gfq.Vec) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	rw := NewResidueWriter(f, q)
	for _, e := range es {
		if err := rw.Write(e); err != nil {
			f.Close()
			return err
		}
	}
	if err := rw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
