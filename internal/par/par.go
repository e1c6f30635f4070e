// Package par splits index ranges across worker goroutines.
package par

import (
	"runtime"
	"sync"
)

// Workers resolves a requested worker count; non-positive means GOMAXPROCS.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// Ranges calls fn(w, lo, hi) on contiguous chunks of [0,n), one goroutine per
// chunk, and waits for all of them. Small inputs run inline.
func Ranges(n, workers int, fn func(w, lo, hi int)) {
	workers = Workers(workers)
	if workers > n {
		workers = n
	}
	if workers <= 1 || n < 64 {
		if n > 0 {
			fn(0, 0, n)
		}
		return
	}
	per := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * per
		if lo >= n {
			break
		}
		hi := lo + per
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			fn(w, lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()
}

// Chunks reports how many chunks Ranges will use for n items, so callers can
// size per-worker scratch space.
func Chunks(n, workers int) int {
	workers = Workers(workers)
	if workers > n {
		workers = n
	}
	if workers <= 1 || n < 64 {
		return 1
	}
	per := (n + workers - 1) / workers
	return (n + per - 1) / per
}
