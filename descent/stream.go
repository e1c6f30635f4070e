package descent

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"eht-attack/internal/par"
	"eht-attack/internal/prng"
	"eht-attack/morph"
	"eht-attack/prof"
)

// ErrDone is returned by Stream.Next once every attempt has been delivered.
var ErrDone = errors.New("descent: no more attempts")

// Result is the outcome of one attempt.
type Result struct {
	Attempt int
	Vec     []int64 // candidate column; all zero when the attempt failed
	Moment  float64
	Steps   int
	Trace   []float64
	Err     error // set when the attempt hit its step cap
	Elapsed time.Duration
}

// Recovered reports whether the attempt produced a usable vector.
func (r Result) Recovered() bool { return !IsZero(r.Vec) }

// Stream yields a bounded number of independent descent attempts. Attempts
// run on a worker pool; attempt i always draws its start from the i-th fork
// of the seed, so results do not depend on the number of workers. Results
// are delivered in attempt order.
type Stream struct {
	st       *morph.State
	opts     Opts
	attempts int
	seed     *prng.Source

	mu      sync.Mutex
	started bool
	next    int
	pending map[int]Result
	results chan Result
	tokens  chan struct{}
	cancel  context.CancelFunc
}

// NewStream prepares attempts descents over st. Nothing runs until Next.
func NewStream(st *morph.State, attempts int, seed *prng.Source, opts *Opts) *Stream {
	return &Stream{st: st, opts: opts.withDefaults(), attempts: attempts, seed: seed}
}

// Restart abandons outstanding work and starts over from a fresh seed.
func (s *Stream) Restart(seed *prng.Source) {
	s.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seed = seed
	s.started = false
	s.next = 0
	s.pending = nil
}

// Close stops the workers. Undelivered results are discarded.
func (s *Stream) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Stream) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	workers := par.Workers(s.opts.Workers)
	s.pending = make(map[int]Result)
	s.results = make(chan Result, workers)
	// at most 2·workers attempts run ahead of the consumer
	s.tokens = make(chan struct{}, 2*workers)
	jobs := make(chan int)
	seed := s.seed
	tokens, results := s.tokens, s.results

	go func() {
		defer close(jobs)
		for i := 0; i < s.attempts; i++ {
			select {
			case tokens <- struct{}{}:
			case <-ctx.Done():
				return
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				r := s.run(ctx, i, seed.ForkIndex(i))
				select {
				case results <- r:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	s.started = true
}

func (s *Stream) run(ctx context.Context, attempt int, rnd *prng.Source) Result {
	start := time.Now()
	defer prof.Track(start, "descent")
	w0 := RandomUnit(s.st.Vecs.Cols, rnd)
	w, m, steps, trace, err := Descend(ctx, s.st.Vecs, w0, &s.opts)
	r := Result{Attempt: attempt, Moment: m, Steps: steps, Trace: trace, Err: err}
	if err != nil {
		r.Vec = make([]int64, s.st.Li.Rows)
	} else {
		r.Vec = Finish(s.st.Li, w, m)
	}
	r.Elapsed = time.Since(start)
	if s.opts.Verbose {
		if err != nil {
			log.Printf("[descent] attempt %d: %v", attempt, err)
		} else {
			log.Printf("[descent] attempt %d: mom4 %.6f after %d steps, l1 norm %d", attempt, m, steps, L1(r.Vec))
		}
	}
	return r
}

// Next returns the next attempt in order, ErrDone when all attempts have
// been delivered, or the context error. The context of the first call also
// bounds the workers until Close or Restart.
func (s *Stream) Next(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= s.attempts {
		return Result{}, ErrDone
	}
	if !s.started {
		s.start(ctx)
	}
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if r, ok := s.pending[s.next]; ok {
			delete(s.pending, s.next)
			s.next++
			<-s.tokens
			return r, nil
		}
		select {
		case r, ok := <-s.results:
			if !ok {
				if err := ctx.Err(); err != nil {
					return Result{}, err
				}
				return Result{}, ErrDone
			}
			s.pending[r.Attempt] = r
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
}
