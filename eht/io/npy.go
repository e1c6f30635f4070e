package io

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

var npyMagic = []byte("\x93NUMPY")

// WriteNPY stores a rows×cols float64 matrix (C order, little-endian) in
// NumPy .npy version 1.0 format.
func WriteNPY(path string, rows, cols int, data []float64) error {
	if len(data) != rows*cols {
		return fmt.Errorf("npy: %d values for shape (%d, %d)", len(data), rows, cols)
	}
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	// magic(6) + version(2) + length(2) + header, padded to 64 with a final newline
	total := 10 + len(header) + 1
	if pad := total % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.Grow(10 + len(header) + 8*len(data))
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	var b [8]byte
	for _, v := range data {
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
		buf.Write(b[:])
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadNPY loads a 1-D or 2-D little-endian float64 array in C order.
// One-dimensional arrays are returned as a single row.
func ReadNPY(path string) (rows, cols int, data []float64, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, nil, err
	}
	if len(raw) < 10 || !bytes.Equal(raw[:6], npyMagic) {
		return 0, 0, nil, fmt.Errorf("%s: not a .npy file", path)
	}
	var hlen, off int
	switch raw[6] {
	case 1:
		hlen, off = int(binary.LittleEndian.Uint16(raw[8:10])), 10
	case 2, 3:
		if len(raw) < 12 {
			return 0, 0, nil, fmt.Errorf("%s: truncated header", path)
		}
		hlen, off = int(binary.LittleEndian.Uint32(raw[8:12])), 12
	default:
		return 0, 0, nil, fmt.Errorf("%s: unsupported .npy version %d", path, raw[6])
	}
	if len(raw) < off+hlen {
		return 0, 0, nil, fmt.Errorf("%s: truncated header", path)
	}
	header := string(raw[off : off+hlen])
	if !strings.Contains(header, "'descr': '<f8'") {
		return 0, 0, nil, fmt.Errorf("%s: only little-endian float64 arrays are supported", path)
	}
	if strings.Contains(header, "'fortran_order': True") {
		return 0, 0, nil, fmt.Errorf("%s: fortran-ordered arrays are not supported", path)
	}
	shape, err := parseShape(header)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("%s: %w", path, err)
	}
	switch len(shape) {
	case 1:
		rows, cols = 1, shape[0]
	case 2:
		rows, cols = shape[0], shape[1]
	default:
		return 0, 0, nil, fmt.Errorf("%s: %d-dimensional arrays are not supported", path, len(shape))
	}
	body := raw[off+hlen:]
	if len(body) != 8*rows*cols {
		return 0, 0, nil, fmt.Errorf("%s: %d data bytes for shape %v", path, len(body), shape)
	}
	data = make([]float64, rows*cols)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[8*i:]))
	}
	return rows, cols, data, nil
}

func parseShape(header string) ([]int, error) {
	i := strings.Index(header, "'shape':")
	if i < 0 {
		return nil, fmt.Errorf("npy header has no shape")
	}
	rest := header[i+len("'shape':"):]
	lo, hi := strings.Index(rest, "("), strings.Index(rest, ")")
	if lo < 0 || hi < lo {
		return nil, fmt.Errorf("npy header shape malformed")
	}
	var dims []int
	for _, part := range strings.Split(rest[lo+1:hi], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("npy header shape: %w", err)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// StatePaths names the two decorrelation state files for a base path.
func StatePaths(base string) (li, vecs string) {
	return base + ".Li.npy", base + ".vecs.npy"
}
