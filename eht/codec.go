package eht

import (
	"fmt"
	"math/big"

	"eht-attack/internal/gfq"
)

// EncodeSignature packs x as the base-q number x_0 q^(n-1) + ... + x_(n-1),
// written big-endian in PayloadBytes bytes, followed by the message.
func EncodeSignature(p Params, x gfq.Vec, msg []byte) ([]byte, error) {
	if len(x) != p.N {
		return nil, fmt.Errorf("%w: payload has %d coordinates, want %d", ErrMalformed, len(x), p.N)
	}
	q := new(big.Int).SetUint64(p.Q)
	acc := new(big.Int)
	digit := new(big.Int)
	for i, xi := range x {
		if xi >= p.Q {
			return nil, fmt.Errorf("%w: coordinate %d = %d not reduced", ErrMalformed, i, xi)
		}
		acc.Mul(acc, q)
		acc.Add(acc, digit.SetUint64(xi))
	}
	size := p.PayloadBytes()
	out := make([]byte, size+len(msg))
	acc.FillBytes(out[:size])
	copy(out[size:], msg)
	return out, nil
}

// DecodeSignature splits a signed message into x and the message.
func DecodeSignature(p Params, sm []byte) (gfq.Vec, []byte, error) {
	size := p.PayloadBytes()
	if len(sm) < size {
		return nil, nil, fmt.Errorf("%w: signed message of %d bytes shorter than payload %d", ErrMalformed, len(sm), size)
	}
	acc := new(big.Int).SetBytes(sm[:size])
	q := new(big.Int).SetUint64(p.Q)
	bound := new(big.Int).Exp(q, big.NewInt(int64(p.N)), nil)
	if acc.Cmp(bound) >= 0 {
		return nil, nil, fmt.Errorf("%w: payload exceeds q^n", ErrMalformed)
	}
	x := make(gfq.Vec, p.N)
	r := new(big.Int)
	for i := p.N - 1; i >= 0; i-- {
		acc.QuoRem(acc, q, r)
		x[i] = r.Uint64()
	}
	msg := append([]byte(nil), sm[size:]...)
	return x, msg, nil
}
