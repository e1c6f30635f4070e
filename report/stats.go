// Package report summarises attack artefacts (residue samples, descent
// traces) and renders them as go-echarts HTML pages.
package report

import (
	"encoding/json"
	"math"
	"os"
	"sort"
)

// Stats is a one-dimensional summary.
type Stats struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Min      float64 `json:"min"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Max      float64 `json:"max"`
	IQR      float64 `json:"iqr"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis_excess"`
}

// ComputeStats summarises x. The standard deviation uses n-1.
func ComputeStats(x []float64) Stats {
	n := len(x)
	if n == 0 {
		return Stats{}
	}
	cp := append([]float64(nil), x...)
	sort.Float64s(cp)
	q1, q3 := quantileSorted(cp, 0.25), quantileSorted(cp, 0.75)
	var m float64
	for _, v := range x {
		m += v
	}
	m /= float64(n)
	var m2, m3, m4 float64
	for _, v := range x {
		d := v - m
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	st := Stats{Count: n, Mean: m, Min: cp[0], Q1: q1, Median: quantileSorted(cp, 0.5), Q3: q3, Max: cp[n-1], IQR: q3 - q1}
	if n > 1 {
		st.Std = math.Sqrt(m2 / float64(n-1))
	}
	if m2 > 0 {
		m2n, m3n, m4n := m2/float64(n), m3/float64(n), m4/float64(n)
		st.Skewness = m3n / math.Pow(m2n, 1.5)
		st.Kurtosis = m4n/m2n/m2n - 3.0
	}
	return st
}

func quantileSorted(sorted []float64, p float64) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := p * float64(len(sorted)-1)
	l := int(math.Floor(pos))
	r := int(math.Ceil(pos))
	if l == r {
		return sorted[l]
	}
	w := pos - float64(l)
	return sorted[l]*(1-w) + sorted[r]*w
}

// FreedmanDiaconisBins picks a bin count from the IQR, clamped to [1, 200]
// for degenerate spreads and to [10, 2000] otherwise. Residue coordinates
// are small integers, so the lower clamp is lower than for continuous data.
func FreedmanDiaconisBins(x []float64) int {
	n := len(x)
	if n < 2 {
		return 1
	}
	cp := append([]float64(nil), x...)
	sort.Float64s(cp)
	iqr := quantileSorted(cp, 0.75) - quantileSorted(cp, 0.25)
	bw := 2 * iqr * math.Pow(float64(n), -1.0/3.0)
	if bw <= 0 {
		if n < 200 {
			return n
		}
		return 200
	}
	k := int(math.Ceil((cp[n-1] - cp[0]) / bw))
	if k < 10 {
		k = 10
	}
	if k > 2000 {
		k = 2000
	}
	return k
}

// Histogram buckets values into nbins equal-width bins.
func Histogram(values []float64, nbins int) (edges []float64, counts []int) {
	if len(values) == 0 {
		return []float64{0, 1}, []int{0}
	}
	minv, maxv := values[0], values[0]
	for _, v := range values {
		minv = math.Min(minv, v)
		maxv = math.Max(maxv, v)
	}
	if nbins < 1 {
		nbins = 1
	}
	width := (maxv - minv) / float64(nbins)
	if width <= 0 {
		width = 1
	}
	edges = make([]float64, nbins+1)
	for i := range edges {
		edges[i] = minv + float64(i)*width
	}
	counts = make([]int, nbins)
	for _, v := range values {
		idx := int(math.Floor((v - minv) / width))
		if idx < 0 {
			idx = 0
		}
		if idx >= nbins {
			idx = nbins - 1
		}
		counts[idx]++
	}
	return edges, counts
}

// SaveJSON writes v indented.
func SaveJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
