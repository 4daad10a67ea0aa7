package solver

import "golang.org/x/sync/errgroup"

// minChunk is the smallest slice handed to a worker. Shorter ranges run on
// the calling goroutine.
const minChunk = 1024

// parallelFor splits [0, n) into contiguous chunks and runs fn on each with
// at most workers goroutines. It returns after every chunk has finished.
func parallelFor(workers, n int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	chunks := min(workers, (n+minChunk-1)/minChunk)
	if chunks <= 1 {
		return fn(0, n)
	}

	size := (n + chunks - 1) / chunks

	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			return fn(lo, hi)
		})
	}
	return g.Wait()
}
