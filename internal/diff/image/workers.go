package image

import (
	"runtime"
	"sync"
)

// splitRows runs fn over disjoint row bands of [0, height) in parallel.
func splitRows(height int, fn func(startY int, endY int)) {
	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	numWorkers := min(runtime.GOMAXPROCS(0), height)
	if numWorkers <= 1 {
		fn(0, height)
		return
	}

	rowsPerWorker := height / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		go func(startY int, endY int) {
			defer wg.Done()
			fn(startY, endY)
		}(startY, endY)
	}
	wg.Wait()
}
