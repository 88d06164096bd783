// Package parallel dispatches data-parallel image loops across goroutines.
//
// Work is split into contiguous row bands. Each row is processed by exactly
// one goroutine, so results do not depend on scheduling.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MinParallelSamples is the minimum number of samples before rows are
// processed concurrently. Smaller jobs run on the calling goroutine.
const MinParallelSamples = 1 << 14

// Rows calls fn(start, end) over disjoint bands covering [0, rows).
// workers <= 0 means runtime.GOMAXPROCS(0). samples is the total work size
// used to decide whether spawning goroutines is worthwhile.
func Rows(rows, samples, workers int, fn func(start, end int)) {
	if rows <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || rows == 1 || samples < MinParallelSamples {
		fn(0, rows)
		return
	}
	if workers > rows {
		workers = rows
	}

	band := (rows + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < rows; start += band {
		start, end := start, min(start+band, rows)
		g.Go(func() error {
			fn(start, end)
			return nil
		})
	}
	_ = g.Wait()
}
