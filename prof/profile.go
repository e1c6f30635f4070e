// Package prof collects wall-clock timings of attack stages.
package prof

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Entry is one timed stage run.
type Entry struct {
	Label string
	Dur   time.Duration
}

var (
	mu     sync.Mutex
	record []Entry
)

// Track records the time since start under label. Use as
// defer prof.Track(time.Now(), "stage").
func Track(start time.Time, label string) {
	elapsed := time.Since(start)
	mu.Lock()
	record = append(record, Entry{Label: label, Dur: elapsed})
	mu.Unlock()
}

// SnapshotAndReset returns the collected entries and clears them.
func SnapshotAndReset() []Entry {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Entry, len(record))
	copy(out, record)
	record = nil
	return out
}

// Total is the accumulated time and run count of one label.
type Total struct {
	Label string
	Count int
	Sum   time.Duration
}

// Summarize folds entries per label, slowest first.
func Summarize(entries []Entry) []Total {
	idx := make(map[string]int)
	var out []Total
	for _, e := range entries {
		i, ok := idx[e.Label]
		if !ok {
			i = len(out)
			idx[e.Label] = i
			out = append(out, Total{Label: e.Label})
		}
		out[i].Count++
		out[i].Sum += e.Dur
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Sum > out[b].Sum })
	return out
}

// Print writes a one-line-per-label timing table.
func Print(w io.Writer, entries []Entry) {
	for _, t := range Summarize(entries) {
		fmt.Fprintf(w, "[prof] %-14s %4dx %v\n", t.Label, t.Count, t.Sum.Round(time.Millisecond))
	}
}
