package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	stdio "io"
	"os"
	"strconv"
	"strings"
)

// ReadColumns parses one JSON integer array per line. Blank lines are skipped.
func ReadColumns(r stdio.Reader) ([][]int64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var cols [][]int64
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var col []int64
		if err := json.Unmarshal([]byte(text), &col); err != nil {
			return nil, fmt.Errorf("column line %d: %w", line, err)
		}
		if len(cols) > 0 && len(col) != len(cols[0]) {
			return nil, fmt.Errorf("column line %d has %d entries, earlier lines have %d", line, len(col), len(cols[0]))
		}
		cols = append(cols, col)
	}
	return cols, sc.Err()
}

// ReadColumnFile is ReadColumns on a file.
func ReadColumnFile(path string) ([][]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cols, err := ReadColumns(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cols, nil
}

// FormatColumn renders a column as "[a, b, c]".
func FormatColumn(col []int64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range col {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatInt(x, 10))
	}
	sb.WriteByte(']')
	return sb.String()
}

// WriteColumn appends one column line.
func WriteColumn(w stdio.Writer, col []int64) error {
	_, err := fmt.Fprintln(w, FormatColumn(col))
	return err
}
