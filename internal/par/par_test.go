package par

import (
	"sync/atomic"
	"testing"
)

func TestRangesCoverEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 63, 64, 1000, 1001} {
		for _, workers := range []int{1, 3, 8} {
			hits := make([]int32, n)
			var calls int32
			Ranges(n, workers, func(w, lo, hi int) {
				atomic.AddInt32(&calls, 1)
				if w >= Chunks(n, workers) {
					t.Errorf("worker index %d beyond Chunks=%d", w, Chunks(n, workers))
				}
				for i := lo; i < hi; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("n=%d workers=%d: index %d visited %d times", n, workers, i, h)
				}
			}
			if n > 0 && int(calls) > Chunks(n, workers) {
				t.Fatalf("n=%d workers=%d: %d calls for %d chunks", n, workers, calls, Chunks(n, workers))
			}
		}
	}
}
