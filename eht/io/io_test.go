package io

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eht-attack/internal/gfq"
)

func TestResidueFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.bin")
	es := []gfq.Vec{{0, 1, 46}, {23, 24, 5}}
	if err := WriteResidueFile(path, 47, es); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadResidueFile(path, 3)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || !got[0].Equal(es[0]) || !got[1].Equal(es[1]) {
		t.Fatalf("records changed: %v", got)
	}
	if _, err := ReadResidueFile(path, 4); err == nil {
		t.Fatalf("length not a multiple of the record size was accepted")
	}
	var buf bytes.Buffer
	if err := NewResidueWriter(&buf, 47).Write(gfq.Vec{47}); err == nil {
		t.Fatalf("unreduced coordinate accepted")
	}
}

func TestNPYRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.npy")
	data := []float64{1.5, -2, 0, 3.25, 1e-9, -7}
	if err := WriteNPY(path, 2, 3, data); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if (len(raw)-8*len(data))%64 != 0 {
		t.Fatalf("header not padded to 64 bytes: %d", len(raw)-8*len(data))
	}
	r, c, got, err := ReadNPY(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if r != 2 || c != 3 {
		t.Fatalf("shape (%d, %d)", r, c)
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("value %d: %v != %v", i, got[i], data[i])
		}
	}
}

func TestReadNPYRejectsOtherDtypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "i.npy")
	header := "{'descr': '<i8', 'fortran_order': False, 'shape': (1,), }"
	header += strings.Repeat(" ", 64-(10+len(header)+1)%64) + "\n"
	raw := append([]byte("\x93NUMPY\x01\x00"), byte(len(header)), 0)
	raw = append(raw, header...)
	raw = append(raw, make([]byte, 8)...)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := ReadNPY(path); err == nil {
		t.Fatalf("int64 array accepted")
	}
}

func TestColumns(t *testing.T) {
	in := "[1, -2, 3]\n\n[0, 0, 46]\n"
	cols, err := ReadColumns(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(cols) != 2 || cols[0][1] != -2 || cols[1][2] != 46 {
		t.Fatalf("parsed %v", cols)
	}
	var buf bytes.Buffer
	for _, c := range cols {
		if err := WriteColumn(&buf, c); err != nil {
			t.Fatal(err)
		}
	}
	if buf.String() != "[1, -2, 3]\n[0, 0, 46]\n" {
		t.Fatalf("formatted %q", buf.String())
	}
	if _, err := ReadColumns(strings.NewReader("[1, 2]\n[1]\n")); err == nil {
		t.Fatalf("ragged columns accepted")
	}
}
