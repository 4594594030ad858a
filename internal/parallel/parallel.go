// Package parallel fans batch work out across goroutines for the CPU batch
// backend.
package parallel

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
//
// Items are whole training examples, so the chunk floor is far lower than it
// would be for element-wise work.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4,
	}
}

// chunks splits [0, n) into contiguous ranges, or a single range when
// parallelism is disabled or n is too small.
func chunks(n int, cfg Config) [][2]int {
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2*cfg.MinChunkSize {
		return [][2]int{{0, n}}
	}
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	var out [][2]int
	for start := 0; start < n; start += chunkSize {
		out = append(out, [2]int{start, min(start+chunkSize, n)})
	}
	return out
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	ranges := chunks(n, cfg)
	if len(ranges) == 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	for _, r := range ranges {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(r[0], r[1])
	}
	wg.Wait()
}

// ReduceSum executes f(i, acc) for i in [0, n), where acc is a zeroed
// accumulator of length width private to the calling worker. The partial
// sums are added together in chunk order once every worker has finished, so
// the result does not depend on goroutine scheduling.
func ReduceSum(n, width int, f func(i int, acc []float64), cfg Config) []float64 {
	ranges := chunks(n, cfg)
	partials := make([][]float64, len(ranges))

	var wg sync.WaitGroup
	for k, r := range ranges {
		partials[k] = make([]float64, width)
		wg.Add(1)
		go func(acc []float64, s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i, acc)
			}
		}(partials[k], r[0], r[1])
	}
	wg.Wait()

	sum := partials[0]
	for _, p := range partials[1:] {
		floats.Add(sum, p)
	}
	return sum
}
