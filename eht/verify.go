package eht

import (
	"fmt"

	"eht-attack/internal/gfq"
)

// Verdict is the outcome of checking a signed message.
type Verdict struct {
	Small    int // coordinates of e with |e_i| <= EBound
	Accepted bool
}

// Residue returns e = h - A·x for a signed message (the C·z sample an
// observer learns from each signature) together with the message.
func Residue(p Params, pk *PublicKey, sm []byte, h Hasher) (gfq.Vec, []byte, error) {
	x, msg, err := DecodeSignature(p, sm)
	if err != nil {
		return nil, nil, err
	}
	if pk.A.Rows != p.M || pk.A.Cols != p.N {
		return nil, nil, fmt.Errorf("%w: public key %dx%d, params %dx%d", ErrMalformed, pk.A.Rows, pk.A.Cols, p.M, p.N)
	}
	target, err := h.Hash(msg)
	if err != nil {
		return nil, nil, err
	}
	f := pk.A.F
	return f.SubVec(target, pk.A.MulVec(x)), msg, nil
}

// CountSmall counts coordinates of e within EBound of zero mod q.
func CountSmall(p Params, e gfq.Vec) int {
	count := 0
	for _, ei := range e {
		if int64(ei) <= p.EBound || int64(ei) >= int64(p.Q)-p.EBound {
			count++
		}
	}
	return count
}

// Verify applies the public acceptance rule to a signed message.
func Verify(p Params, pk *PublicKey, sm []byte, h Hasher) (Verdict, error) {
	e, _, err := Residue(p, pk, sm, h)
	if err != nil {
		return Verdict{}, err
	}
	small := CountSmall(p, e)
	return Verdict{Small: small, Accepted: small >= p.Accept}, nil
}
