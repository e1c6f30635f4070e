package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"eht-attack/colstore"
	"eht-attack/eht"
	"eht-attack/internal/prng"
	"eht-attack/prof"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ehtcli <command> [flags] <args>

Attack pipeline:
  decorrelate <samples> <state>     whiten residue samples, write <state>.Li.npy and <state>.vecs.npy
             -m <int>               record size / residue length (default: 460)
             -workers <int>         goroutines (default: GOMAXPROCS)
  descend <state> <out> [iters]     run fourth-moment descents, append candidate columns to <out>
             -workers <int>         concurrent attempts (default: GOMAXPROCS)
             -seed <int>            PRNG seed (default: time based)
             -max-steps <int>       per-attempt step cap (default: 10000)
             -trace <file>          append per-attempt moment traces (JSON lines)
             -redis <addr>          store columns in the Redis list <out> instead of a file
  recover-key <pub> <cols> <priv>   rebuild a working private key from candidate columns
             -v                     log every recovered pair
             -seed <int>            PRNG seed for the random completion
             -redis <addr>          read columns from the Redis list <cols>
  forge <priv> <message>            sign a message, print the signed message as hex
             -raw                   write the raw signed bytes instead
             -seed <int>            PRNG seed
             -max <int>             preimage trials (default: 200)
             -oracle <path>         external hash oracle (default: built-in SHAKE256)

Simulation and utilities:
  keygen <pub> <priv>               synthetic key  (-m, -n, -seed)
  siggen <priv> <count>             hex signed messages of random messages (-seed, -oracle)
  residues <pub>                    hex signed messages on stdin -> residue records on stdout
  verify <pub>                      hex signed message on stdin, exit 1 when rejected`)
	os.Exit(2)
}

func main() {
	log.SetFlags(log.Ltime)
	if len(os.Args) < 2 {
		usage()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	args := os.Args[2:]
	switch os.Args[1] {
	case "decorrelate":
		runDecorrelate(args)
	case "descend":
		runDescend(ctx, args)
	case "recover-key":
		runRecover(ctx, args)
	case "forge":
		runForge(args)
	case "keygen":
		runKeygen(args)
	case "siggen":
		runSiggen(args)
	case "residues":
		runResidues(args)
	case "verify":
		runVerify(args)
	default:
		usage()
	}
	if eht.DebugOn {
		prof.Print(os.Stderr, prof.SnapshotAndReset())
	}
}

// positional parses fs and requires between lo and hi positional arguments.
func positional(fs *flag.FlagSet, args []string, lo, hi int) []string {
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < lo || len(rest) > hi {
		fmt.Fprintf(os.Stderr, "%s: expected %d to %d arguments, got %d\n", fs.Name(), lo, hi, len(rest))
		fs.Usage()
		os.Exit(2)
	}
	return rest
}

func seedSource(seed int64) *prng.Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
		log.Printf("seed %d", seed)
	}
	return prng.FromInt(seed)
}

func shape(m, n int) eht.Params {
	p, err := eht.DefaultParams().WithShape(m, n)
	if err != nil {
		log.Fatalf("params: %v", err)
	}
	eht.Dbg(os.Stderr, "[params] %+v\n", p)
	return p
}

func hasher(p eht.Params, oracle string) eht.Hasher {
	if oracle == "" {
		return eht.NewShakeHasher(p)
	}
	return &eht.CommandHasher{Path: oracle, Q: p.Q, M: p.M}
}

// openStore picks the Redis list named target when addr is set, else the
// column file at target. A read-only file store requires the file to exist.
func openStore(addr, target string, readOnly bool) colstore.Store {
	if addr != "" {
		s, err := colstore.NewRedisStore(colstore.RedisConfig{Addr: addr, Password: os.Getenv("EHT_REDIS_PASSWORD")}, target)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		return s
	}
	open := colstore.OpenFile
	if readOnly {
		open = colstore.OpenFileReadOnly
	}
	s, err := open(target)
	if err != nil {
		log.Fatalf("open %s: %v", target, err)
	}
	return s
}
