// Package prng provides the explicit deterministic random stream threaded
// through every stage of the attack. Streams are keyed blake2b XOFs from
// lattigo; child streams for parallel work are derived with Fork.
package prng

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/tuneinsight/lattigo/v4/utils"
	"golang.org/x/crypto/sha3"
)

// Source is a seeded random stream. It is not safe for concurrent use; give
// each goroutine its own stream via Fork.
type Source struct {
	key []byte
	r   utils.PRNG
	buf [8]byte

	spare    float64
	hasSpare bool
}

// New returns a stream keyed by seed. Seeds longer than 64 bytes are hashed.
func New(seed []byte) (*Source, error) {
	key := append([]byte(nil), seed...)
	if len(key) > 64 {
		sum := sha3.Sum256(key)
		key = sum[:]
	}
	p, err := utils.NewKeyedPRNG(key)
	if err != nil {
		return nil, fmt.Errorf("prng: keyed prng: %w", err)
	}
	return &Source{key: key, r: p}, nil
}

// FromInt derives a stream from an integer seed.
func FromInt(seed int64) *Source {
	var b [16]byte
	copy(b[:8], "eht/seed")
	binary.LittleEndian.PutUint64(b[8:], uint64(seed))
	s, err := New(b[:])
	if err != nil {
		// a 16-byte key is always accepted by blake2b
		panic(err)
	}
	return s
}

// Fork returns an independent child stream identified by label. The parent
// stream is not advanced, so forks are reproducible regardless of call order.
func (s *Source) Fork(label string) *Source {
	h := sha3.New256()
	h.Write(s.key)
	h.Write([]byte{0})
	h.Write([]byte(label))
	c, err := New(h.Sum(nil))
	if err != nil {
		panic(err)
	}
	return c
}

// ForkIndex is Fork with a numeric label.
func (s *Source) ForkIndex(i int) *Source {
	return s.Fork(fmt.Sprintf("#%d", i))
}

// Read implements io.Reader.
func (s *Source) Read(p []byte) (int, error) {
	return io.ReadFull(s.r, p)
}

// Uint64 returns 64 uniform bits.
func (s *Source) Uint64() uint64 {
	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		panic(fmt.Sprintf("prng: read: %v", err))
	}
	return binary.LittleEndian.Uint64(s.buf[:])
}

// Intn returns a uniform integer in [0,n). It panics if n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("prng: Intn with non-positive bound")
	}
	bound := uint64(n)
	limit := math.MaxUint64 - math.MaxUint64%bound
	for {
		v := s.Uint64()
		if v < limit {
			return int(v % bound)
		}
	}
}

// Float64 returns a uniform float in [0,1).
func (s *Source) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// NormFloat64 returns a standard normal sample (Box-Muller, pairs cached).
func (s *Source) NormFloat64() float64 {
	if s.hasSpare {
		s.hasSpare = false
		return s.spare
	}
	u1 := 1 - s.Float64()
	u2 := s.Float64()
	r := math.Sqrt(-2 * math.Log(u1))
	s.spare = r * math.Sin(2*math.Pi*u2)
	s.hasSpare = true
	return r * math.Cos(2*math.Pi*u2)
}

// Perm returns a uniform permutation of [0,n).
func (s *Source) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := s.Intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}
