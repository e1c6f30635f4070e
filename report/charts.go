package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Page collects charts into one HTML document.
type Page struct {
	page   *components.Page
	charts int
}

// NewPage returns an empty page.
func NewPage() *Page { return &Page{page: components.NewPage()} }

// Len is the number of charts added so far.
func (p *Page) Len() int { return p.charts }

func toBarItems(vals []int) []opts.BarData {
	out := make([]opts.BarData, len(vals))
	for i, v := range vals {
		out[i] = opts.BarData{Value: v}
	}
	return out
}

// AddHistogram adds a bar chart of values with its summary as subtitle.
// Empty inputs are skipped.
func (p *Page) AddHistogram(title string, values []float64) {
	if len(values) == 0 {
		return
	}
	st := ComputeStats(values)
	nbins := FreedmanDiaconisBins(values)
	edges, counts := Histogram(values, nbins)
	xLabels := make([]string, nbins)
	for i := range xLabels {
		xLabels[i] = fmt.Sprintf("%.2f", 0.5*(edges[i]+edges[i+1]))
	}
	bar := charts.NewBar()
	subtitle := fmt.Sprintf("n=%d, mean=%.3f, std=%.3f, kurtosis=%.3f", st.Count, st.Mean, st.Std, st.Kurtosis)
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}, opts.DataZoom{Type: "slider"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(xLabels).
		AddSeries("count", toBarItems(counts)).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))
	p.page.AddCharts(bar)
	p.charts++
}

// AddTraces plots the fourth-moment trajectory of up to limit attempts.
func (p *Page) AddTraces(title string, recs []TraceRecord, limit int) {
	longest := 0
	var shown []TraceRecord
	for _, rec := range recs {
		if len(rec.Trace) == 0 {
			continue
		}
		if limit > 0 && len(shown) == limit {
			break
		}
		shown = append(shown, rec)
		longest = max(longest, len(rec.Trace))
	}
	if len(shown) == 0 {
		return
	}
	steps := make([]int, longest)
	for i := range steps {
		steps[i] = i
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d attempts", len(shown))}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "step"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mom4"}),
	)
	line.SetXAxis(steps)
	for _, rec := range shown {
		data := make([]opts.LineData, len(rec.Trace))
		for i, v := range rec.Trace {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(fmt.Sprintf("attempt %d", rec.Attempt), data)
	}
	p.page.AddCharts(line)
	p.charts++
}

// AddMoments plots the final moment of every attempt, which separates
// converged attempts (near the mom4 minimum) from the rest.
func (p *Page) AddMoments(title string, recs []TraceRecord) {
	if len(recs) == 0 {
		return
	}
	found := make([]opts.ScatterData, 0, len(recs))
	failed := make([]opts.ScatterData, 0, len(recs))
	for _, rec := range recs {
		d := opts.ScatterData{Value: []any{rec.Attempt, rec.Moment}}
		if rec.Found {
			found = append(found, d)
		} else {
			failed = append(failed, d)
		}
	}
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("%d/%d attempts found a column", len(found), len(recs))}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "600px"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "attempt", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mom4", Type: "value"}),
	)
	sc.AddSeries("found", found).AddSeries("failed", failed)
	p.page.AddCharts(sc)
	p.charts++
}

// Render writes the page to path.
func (p *Page) Render(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := p.page.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
