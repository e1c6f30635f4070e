package eht

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"eht-attack/internal/gfq"

	"golang.org/x/crypto/sha3"
)

// Hasher maps a message to its target vector h in GF(q)^m.
type Hasher interface {
	Hash(msg []byte) (gfq.Vec, error)
}

// ShakeHasher expands SHAKE256(domain || msg) by rejection sampling. It is
// the hash used by simulated instances.
type ShakeHasher struct {
	Q      uint64
	M      int
	Domain string
}

// NewShakeHasher returns the default simulation hash for p.
func NewShakeHasher(p Params) *ShakeHasher {
	return &ShakeHasher{Q: p.Q, M: p.M, Domain: "EHT-SIM-H"}
}

func (h *ShakeHasher) Hash(msg []byte) (gfq.Vec, error) {
	xof := sha3.NewShake256()
	xof.Write([]byte(h.Domain))
	xof.Write(msg)
	limit := byte(256 - 256%h.Q)
	out := make(gfq.Vec, h.M)
	var buf [64]byte
	for i := 0; i < h.M; {
		xof.Read(buf[:])
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out[i] = uint64(b) % h.Q
			if i++; i == h.M {
				break
			}
		}
	}
	return out, nil
}

// CommandHasher runs an external hash oracle: the message is written to its
// stdin and m bytes, one reduced coordinate each, are read from stdout.
type CommandHasher struct {
	Path string
	Args []string
	Q    uint64
	M    int
	Ctx  context.Context
}

func (h *CommandHasher) Hash(msg []byte) (gfq.Vec, error) {
	ctx := h.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	cmd := exec.CommandContext(ctx, h.Path, h.Args...)
	cmd.Stdin = bytes.NewReader(msg)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("hash oracle %s: %w (%s)", h.Path, err, bytes.TrimSpace(stderr.Bytes()))
	}
	if len(out) != h.M {
		return nil, fmt.Errorf("%w: hash oracle returned %d bytes, want %d", ErrMalformed, len(out), h.M)
	}
	v := make(gfq.Vec, h.M)
	for i, b := range out {
		if uint64(b) >= h.Q {
			return nil, fmt.Errorf("%w: hash coordinate %d = %d not reduced", ErrMalformed, i, b)
		}
		v[i] = uint64(b)
	}
	return v, nil
}
