package bench

import (
	"testing"

	"eht-attack/eht"
	"eht-attack/internal/gfq"
	"eht-attack/internal/prng"
)

// Full-size shapes: A is 460×256, the Phase A kernels are up to 460×460.
func benchmarkParams() eht.Params { return eht.DefaultParams() }

func BenchmarkMatMul(b *testing.B) {
	p := benchmarkParams()
	f := p.Field()
	rnd := prng.FromInt(7)
	x := f.Random(p.M, p.M, rnd)
	y := f.Random(p.M, p.N, rnd)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = x.Mul(y)
	}
}

func BenchmarkColumnEchelon(b *testing.B) {
	p := benchmarkParams()
	a := p.Field().Random(p.M, p.N, prng.FromInt(7))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.ColumnEchelon()
	}
}

func BenchmarkReduce(b *testing.B) {
	p := benchmarkParams()
	f := p.Field()
	rnd := prng.FromInt(7)
	basis := f.Random(p.M, p.N, rnd).ColumnEchelon()
	v := f.Random(p.M, 1, rnd).Col(0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = basis.Reduce(v)
	}
}

func BenchmarkInverse(b *testing.B) {
	p := benchmarkParams()
	f := p.Field()
	rnd := prng.FromInt(7)
	var x *gfq.Matrix
	for x = f.Random(p.N, p.N, rnd); !x.IsInvertible(); x = f.Random(p.N, p.N, rnd) {
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := x.Inverse(); err != nil {
			b.Fatal(err)
		}
	}
}
