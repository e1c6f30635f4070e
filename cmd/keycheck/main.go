package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"eht-attack/eht"
	"eht-attack/eht/keys"
	"eht-attack/internal/prng"
	"eht-attack/report"
)

func maxAbs(vals []int64) int64 {
	var m int64
	for _, v := range vals {
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

func main() {
	samples := flag.Int("samples", 200, "residues to sample from the private key")
	seed := flag.Int64("seed", 1, "PRNG seed")
	flag.Parse()
	if flag.NArg() != 2 {
		log.Fatalf("usage: keycheck [-samples N] <public.json> <private.json>")
	}

	kind := "scheme"
	sk, p, err := keys.LoadSchemePrivate(flag.Arg(1), eht.DefaultParams())
	if errors.Is(err, keys.ErrInnerDim) {
		kind = "recovered"
		sk, p, err = keys.LoadPrivateAnyShape(flag.Arg(1), eht.DefaultParams())
	}
	if err != nil {
		log.Fatalf("load private: %v", err)
	}
	pk, err := keys.LoadPublic(flag.Arg(0), p)
	if err != nil {
		log.Fatalf("load public: %v", err)
	}
	if err := eht.CheckConsistency(pk, sk); err != nil {
		log.Fatalf("consistency: %v", err)
	}
	fmt.Printf("C·T == A·B holds (%s key, C %dx%d, T %dx%d)\n", kind, sk.C.Rows, sk.C.Cols, sk.T.Rows, sk.T.Cols)

	f := p.Field()
	var coords []float64
	var worst int64
	accepted := 0
	for _, e := range eht.SampleResidues(p, sk, *samples, prng.FromInt(*seed)) {
		c := f.Centered(e)
		worst = max(worst, maxAbs(c))
		for _, x := range c {
			coords = append(coords, float64(x))
		}
		if eht.CountSmall(p, e) >= p.Accept {
			accepted++
		}
	}
	st := report.ComputeStats(coords)
	fmt.Println("Residue Linf:", worst)
	fmt.Printf("Residue coordinates: mean=%.3f std=%.3f kurtosis=%.3f\n", st.Mean, st.Std, st.Kurtosis)
	fmt.Printf("Accepted: %d/%d\n", accepted, *samples)
}
