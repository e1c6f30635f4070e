package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"eht-attack/eht"
	ehtio "eht-attack/eht/io"
	"eht-attack/eht/keys"
	"eht-attack/forge"

	"github.com/dustin/go-humanize"
)

func runKeygen(args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	m := fs.Int("m", 460, "rows of A")
	n := fs.Int("n", 256, "columns of A")
	seed := fs.Int64("seed", 0, "PRNG seed (0: time based)")
	verbose := fs.Bool("v", false, "log rejected trials")
	rest := positional(fs, args, 2, 2)

	p := shape(*m, *n)
	pk, sk, err := eht.GenerateKey(p, seedSource(*seed), &eht.KeygenOpts{Verbose: *verbose})
	if err != nil {
		log.Fatalf("keygen: %v", err)
	}
	if err := keys.SavePublic(rest[0], pk); err != nil {
		log.Fatalf("save public: %v", err)
	}
	if err := keys.SavePrivate(rest[1], sk); err != nil {
		log.Fatalf("save private: %v", err)
	}
	fmt.Printf("keys written: %s, %s (m=%d n=%d d=%d)\n", rest[0], rest[1], p.M, p.N, p.D())
}

// randomMessage draws n bytes from r and hex encodes them.
func randomMessage(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return []byte(hex.EncodeToString(buf)), nil
}

// runSiggen signs random messages with the legitimate key. Every signature
// leaks one residue C·z, which is the raw material of the attack.
func runSiggen(args []string) {
	fs := flag.NewFlagSet("siggen", flag.ExitOnError)
	seed := fs.Int64("seed", 0, "PRNG seed (0: time based)")
	oracle := fs.String("oracle", "", "external hash oracle")
	rest := positional(fs, args, 2, 2)

	count, err := strconv.Atoi(rest[1])
	if err != nil || count <= 0 {
		log.Fatalf("siggen: bad count %q", rest[1])
	}
	sk, p, err := keys.LoadSchemePrivate(rest[0], eht.DefaultParams())
	if err != nil {
		log.Fatalf("load private: %v", err)
	}
	fg, err := forge.New(p, sk, hasher(p, *oracle), nil)
	if err != nil {
		log.Fatalf("signer: %v", err)
	}
	rnd := seedSource(*seed)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for i := 0; i < count; i++ {
		msg, err := randomMessage(rnd, 16)
		if err != nil {
			log.Fatalf("message %d: %v", i, err)
		}
		sm, _, err := fg.Sign(msg, rnd)
		if err != nil {
			log.Fatalf("sign %d: %v", i, err)
		}
		fmt.Fprintln(out, hex.EncodeToString(sm))
		if (i+1)%10000 == 0 {
			log.Printf("[siggen] %s signatures", humanize.Comma(int64(i+1)))
		}
	}
}

func runResidues(args []string) {
	fs := flag.NewFlagSet("residues", flag.ExitOnError)
	oracle := fs.String("oracle", "", "external hash oracle")
	rest := positional(fs, args, 1, 1)

	pk, err := keys.LoadPublicAnyShape(rest[0], eht.DefaultParams().Q)
	if err != nil {
		log.Fatalf("load public: %v", err)
	}
	p := shape(pk.A.Rows, pk.A.Cols)
	h := hasher(p, *oracle)
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	rw := ehtio.NewResidueWriter(os.Stdout, p.Q)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		sm, err := hex.DecodeString(string(text))
		if err != nil {
			log.Fatalf("line %d: %v", line, err)
		}
		e, _, err := eht.Residue(p, pk, sm, h)
		if err != nil {
			log.Fatalf("line %d: %v", line, err)
		}
		if err := rw.Write(e); err != nil {
			log.Fatalf("write: %v", err)
		}
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("read: %v", err)
	}
	if err := rw.Flush(); err != nil {
		log.Fatalf("write: %v", err)
	}
	log.Printf("[residues] %s records (%s)", humanize.Comma(int64(rw.Count())), humanize.Bytes(uint64(rw.Count()*p.M)))
}

func runVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	oracle := fs.String("oracle", "", "external hash oracle")
	raw := fs.Bool("raw", false, "stdin holds raw bytes instead of hex")
	rest := positional(fs, args, 1, 1)

	pk, err := keys.LoadPublicAnyShape(rest[0], eht.DefaultParams().Q)
	if err != nil {
		log.Fatalf("load public: %v", err)
	}
	p := shape(pk.A.Rows, pk.A.Cols)
	in, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("read: %v", err)
	}
	sm := in
	if !*raw {
		if sm, err = hex.DecodeString(string(bytes.TrimSpace(in))); err != nil {
			log.Fatalf("decode: %v", err)
		}
	}
	v, err := eht.Verify(p, pk, sm, hasher(p, *oracle))
	if err != nil {
		log.Fatalf("verify: %v", err)
	}
	fmt.Printf("small coordinates: %d/%d (threshold %d)\n", v.Small, p.M, p.Accept)
	if !v.Accepted {
		fmt.Println("REJECTED")
		os.Exit(1)
	}
	fmt.Println("ACCEPTED")
}
