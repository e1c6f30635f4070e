// Package colstore collects candidate columns of C produced by descent
// workers. A file store serves a single host, a Redis list lets workers on
// several hosts feed one pool.
package colstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ehtio "eht-attack/eht/io"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("colstore: store is closed")
	// ErrReadOnly is returned by Append on a store opened with OpenFileReadOnly.
	ErrReadOnly = errors.New("colstore: store is read-only")
)

// Store is an append-only pool of candidate columns.
type Store interface {
	// Append adds one column.
	Append(ctx context.Context, col []int64) error
	// All returns every column in append order.
	All(ctx context.Context) ([][]int64, error)
	// Close releases the backend.
	Close() error
}

// FileStore appends columns to a JSONL file, one array per line.
type FileStore struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *bufio.Writer
}

// OpenFile opens path for appending, creating it if needed. Existing lines
// stay part of the pool.
func OpenFile(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("colstore: %w", err)
	}
	return &FileStore{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

// OpenFileReadOnly opens an existing column file for reading. A missing file
// is an error.
func OpenFileReadOnly(path string) (*FileStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("colstore: %w", err)
	}
	return &FileStore{path: path, f: f}, nil
}

func (s *FileStore) Append(_ context.Context, col []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return ErrClosed
	}
	if s.w == nil {
		return ErrReadOnly
	}
	if err := ehtio.WriteColumn(s.w, col); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *FileStore) All(_ context.Context) ([][]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil, ErrClosed
	}
	if s.w != nil {
		if err := s.w.Flush(); err != nil {
			return nil, err
		}
	}
	return ehtio.ReadColumnFile(s.path)
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	var err error
	if s.w != nil {
		err = s.w.Flush()
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f = nil
	return err
}

// Canonical returns col negated if needed so its first nonzero entry is
// positive. Descent emits columns only up to sign.
func Canonical(col []int64) []int64 {
	out := append([]int64(nil), col...)
	for _, x := range out {
		if x == 0 {
			continue
		}
		if x < 0 {
			for i := range out {
				out[i] = -out[i]
			}
		}
		break
	}
	return out
}

// Dedup keeps the first occurrence of every column up to sign and drops
// zero columns.
func Dedup(cols [][]int64) [][]int64 {
	seen := make(map[string]bool, len(cols))
	out := make([][]int64, 0, len(cols))
	for _, col := range cols {
		c := Canonical(col)
		zero := true
		for _, x := range c {
			if x != 0 {
				zero = false
				break
			}
		}
		if zero {
			continue
		}
		key := ehtio.FormatColumn(c)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, col)
	}
	return out
}
