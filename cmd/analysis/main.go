//go:build analysis

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"eht-attack/eht"
	ehtio "eht-attack/eht/io"
	"eht-attack/morph"
	"eht-attack/report"
)

func main() {
	samples := flag.String("samples", "", "residue sample file")
	m := flag.Int("m", 460, "residue length")
	state := flag.String("state", "", "decorrelation state base path (optional)")
	traces := flag.String("traces", "", "descent trace log (optional)")
	limit := flag.Int("limit", 20, "descent traces to plot")
	outDir := flag.String("out", "Measure_Reports", "output directory for reports")
	flag.Parse()

	if *samples == "" && *state == "" && *traces == "" {
		log.Fatalf("nothing to analyse: pass -samples, -state or -traces")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}
	page := report.NewPage()
	outStats := map[string]report.Stats{}

	if *samples != "" {
		f := eht.DefaultParams().Field()
		es, err := ehtio.ReadResidueFile(*samples, *m)
		if err != nil {
			log.Fatalf("read samples: %v", err)
		}
		var coords, linf []float64
		for _, e := range es {
			var worst int64
			for _, c := range f.Centered(e) {
				coords = append(coords, float64(c))
				worst = max(worst, c, -c)
			}
			linf = append(linf, float64(worst))
		}
		log.Printf("[analysis] %d samples", len(es))
		outStats["residue"] = report.ComputeStats(coords)
		outStats["residue_linf"] = report.ComputeStats(linf)
		page.AddHistogram("residue coordinates (centred)", coords)
		page.AddHistogram("per-sample max |e_i|", linf)
	}

	if *state != "" {
		st, err := morph.Load(*state)
		if err != nil {
			log.Fatalf("load state: %v", err)
		}
		// The whitened cube should look uniform: excess kurtosis near -1.2.
		outStats["whitened"] = report.ComputeStats(st.Vecs.Data)
		page.AddHistogram("whitened coordinates", st.Vecs.Data)
	}

	if *traces != "" {
		recs, err := report.ReadTraces(*traces)
		if err != nil {
			log.Fatalf("read traces: %v", err)
		}
		moments := make([]float64, len(recs))
		for i, r := range recs {
			moments[i] = r.Moment
		}
		outStats["final_moment"] = report.ComputeStats(moments)
		page.AddMoments("final fourth moment per attempt", recs)
		page.AddTraces("descent trajectories", recs, *limit)
	}

	ts := time.Now().Format("20060102_150405")
	jsonPath := filepath.Join(*outDir, fmt.Sprintf("attack_stats_%s.json", ts))
	if err := report.SaveJSON(jsonPath, outStats); err != nil {
		log.Printf("warn: save stats: %v", err)
	}
	htmlPath := filepath.Join(*outDir, fmt.Sprintf("attack_report_%s.html", ts))
	if err := page.Render(htmlPath); err != nil {
		log.Fatalf("render html: %v", err)
	}
	fmt.Println("Report page:", htmlPath)
	fmt.Println("Stats JSON:", jsonPath)
}
