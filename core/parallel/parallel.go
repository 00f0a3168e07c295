// Package parallel provides the row-range fan-out used by dataset and
// estimator hot loops: work on n rows is cut into contiguous chunks and
// each chunk runs on its own goroutine.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into contiguous non-overlapping ranges, one
// per available CPU, runs fn once per range on its own goroutine, and blocks
// until every range has finished. fn must be safe to call concurrently.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	workers := runtime.NumCPU()
	if workers > items {
		workers = items
	}
	// 切り上げ割りで端数を前方のチャンクに寄せる
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunk {
		end := start + chunk
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items does not exceed threshold, and fans out like Parallelize otherwise.
// Small inputs stay sequential so goroutine overhead never dominates the
// work itself.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
