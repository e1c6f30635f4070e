package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// TraceRecord is one descent attempt as logged by the descend command.
type TraceRecord struct {
	Attempt int       `json:"attempt"`
	Moment  float64   `json:"moment"`
	Steps   int       `json:"steps"`
	Found   bool      `json:"found"`
	Trace   []float64 `json:"trace,omitempty"`
}

// TraceWriter appends records as JSON lines.
type TraceWriter struct {
	enc *json.Encoder
}

// NewTraceWriter wraps w.
func NewTraceWriter(w io.Writer) *TraceWriter { return &TraceWriter{enc: json.NewEncoder(w)} }

// Write appends one record.
func (tw *TraceWriter) Write(rec TraceRecord) error { return tw.enc.Encode(rec) }

// ReadTraces loads a JSON-lines trace log.
func ReadTraces(path string) ([]TraceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	var out []TraceRecord
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec TraceRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
