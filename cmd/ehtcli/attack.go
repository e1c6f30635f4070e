package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"eht-attack/colstore"
	"eht-attack/descent"
	"eht-attack/eht"
	ehtio "eht-attack/eht/io"
	"eht-attack/eht/keys"
	"eht-attack/forge"
	"eht-attack/morph"
	"eht-attack/recovery"
	"eht-attack/report"

	"github.com/dustin/go-humanize"
)

func runDecorrelate(args []string) {
	fs := flag.NewFlagSet("decorrelate", flag.ExitOnError)
	m := fs.Int("m", 460, "residue length (bytes per record)")
	n := fs.Int("n", 256, "columns of the public key")
	workers := fs.Int("workers", 0, "goroutines")
	verbose := fs.Bool("v", false, "verbose")
	rest := positional(fs, args, 2, 2)

	p := shape(*m, *n)
	es, err := ehtio.ReadResidueFile(rest[0], p.M)
	if err != nil {
		log.Fatalf("read samples: %v", err)
	}
	log.Printf("[morph] %s samples of length %d", humanize.Comma(int64(len(es))), p.M)
	st, err := morph.Decorrelate(p, es, &morph.Opts{Workers: *workers, Verbose: *verbose})
	if err != nil {
		log.Fatalf("decorrelate: %v", err)
	}
	if err := st.Save(rest[1]); err != nil {
		log.Fatalf("save state: %v", err)
	}
	li, vecs := ehtio.StatePaths(rest[1])
	fmt.Printf("kept %s, dropped %s; wrote %s and %s\n",
		humanize.Comma(int64(st.Kept)), humanize.Comma(int64(st.Dropped)), li, vecs)
}

func runDescend(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("descend", flag.ExitOnError)
	workers := fs.Int("workers", 0, "concurrent attempts")
	seed := fs.Int64("seed", 0, "PRNG seed (0: time based)")
	maxSteps := fs.Int("max-steps", 0, "per-attempt step cap")
	tracePath := fs.String("trace", "", "append per-attempt traces to this file")
	redisAddr := fs.String("redis", "", "Redis address; <out> names the list")
	verbose := fs.Bool("v", false, "verbose")
	rest := positional(fs, args, 2, 3)

	attempts := 100
	if len(rest) == 3 {
		n, err := strconv.Atoi(rest[2])
		if err != nil || n <= 0 {
			log.Fatalf("descend: bad iteration count %q", rest[2])
		}
		attempts = n
	}
	st, err := morph.Load(rest[0])
	if err != nil {
		log.Fatalf("load state: %v", err)
	}
	store := openStore(*redisAddr, rest[1], false)
	defer store.Close()

	var tw *report.TraceWriter
	if *tracePath != "" {
		f, err := os.OpenFile(*tracePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("trace: %v", err)
		}
		defer f.Close()
		tw = report.NewTraceWriter(f)
	}

	opts := &descent.Opts{Workers: *workers, MaxSteps: *maxSteps, Trace: tw != nil, Verbose: *verbose}
	stream := descent.NewStream(st, attempts, seedSource(*seed), opts)
	defer stream.Close()
	found := 0
	for {
		res, err := stream.Next(ctx)
		if errors.Is(err, descent.ErrDone) {
			break
		}
		if err != nil {
			log.Fatalf("descend: %v", err)
		}
		if tw != nil {
			rec := report.TraceRecord{Attempt: res.Attempt, Moment: res.Moment, Steps: res.Steps, Found: res.Recovered(), Trace: res.Trace}
			if err := tw.Write(rec); err != nil {
				log.Fatalf("trace: %v", err)
			}
		}
		if !res.Recovered() {
			continue
		}
		if err := store.Append(ctx, res.Vec); err != nil {
			log.Fatalf("store column: %v", err)
		}
		found++
	}
	fmt.Printf("%d/%d attempts produced a column\n", found, attempts)
}

func runRecover(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("recover-key", flag.ExitOnError)
	verbose := fs.Bool("v", false, "log every recovered pair")
	seed := fs.Int64("seed", 0, "PRNG seed (0: time based)")
	workers := fs.Int("workers", 0, "goroutines for candidate reduction")
	redisAddr := fs.String("redis", "", "Redis address; <cols> names the list")
	rest := positional(fs, args, 3, 3)

	pk, err := keys.LoadPublicAnyShape(rest[0], eht.DefaultParams().Q)
	if err != nil {
		log.Fatalf("load public: %v", err)
	}
	p := shape(pk.A.Rows, pk.A.Cols)
	store := openStore(*redisAddr, rest[1], true)
	all, err := store.All(ctx)
	store.Close()
	if err != nil {
		log.Fatalf("read columns: %v", err)
	}
	cols := colstore.Dedup(all)
	log.Printf("[recover] %s candidate columns (%s distinct), need %d ordered",
		humanize.Comma(int64(len(all))), humanize.Comma(int64(len(cols))), p.MaxKnownColumns())

	r, err := recovery.New(p, pk, cols, &recovery.Opts{Workers: *workers, Verbose: *verbose})
	if err != nil {
		log.Fatalf("recover: %v", err)
	}
	sk, _, err := r.Solve(ctx, seedSource(*seed))
	if err != nil {
		log.Fatalf("recover: %v", err)
	}
	if err := keys.SavePrivate(rest[2], sk); err != nil {
		log.Fatalf("save private: %v", err)
	}
	fmt.Println("Key recovery successful:", rest[2])
}

func runForge(args []string) {
	fs := flag.NewFlagSet("forge", flag.ExitOnError)
	seed := fs.Int64("seed", 0, "PRNG seed (0: time based)")
	maxTrials := fs.Int("max", 200, "preimage trials")
	oracle := fs.String("oracle", "", "external hash oracle")
	verbose := fs.Bool("v", false, "verbose")
	raw := fs.Bool("raw", false, "write the signed message as raw bytes instead of hex")
	rest := positional(fs, args, 2, 2)

	sk, p, err := keys.LoadPrivateAnyShape(rest[0], eht.DefaultParams())
	if err != nil {
		log.Fatalf("load private: %v", err)
	}
	fg, err := forge.New(p, sk, hasher(p, *oracle), &forge.Opts{MaxTrials: *maxTrials, Verbose: *verbose})
	if err != nil {
		log.Fatalf("forge: %v", err)
	}
	sm, st, err := fg.Sign([]byte(rest[1]), seedSource(*seed))
	if err != nil {
		log.Fatalf("forge: %v (stats %+v)", err, st)
	}
	log.Printf("[forge] accepted after %d trials: %d/%d small coordinates", st.Trials, st.Small, p.M)
	if err := writeSigned(os.Stdout, sm, *raw); err != nil {
		log.Fatalf("write: %v", err)
	}
}

// writeSigned emits a signed message as one hex line, or as the bare bytes
// when raw is set.
func writeSigned(w io.Writer, sm []byte, raw bool) error {
	if raw {
		_, err := w.Write(sm)
		return err
	}
	_, err := fmt.Fprintln(w, hex.EncodeToString(sm))
	return err
}
