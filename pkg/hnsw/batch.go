package hnsw

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// BatchResult summarizes a BatchInsert call.
type BatchResult struct {
	IDs     []uint32
	Errors  []error
	Success int
	Failure int
}

// ProgressFunc is invoked periodically during BatchInsert with the number
// of vectors processed so far.
type ProgressFunc func(processed, total int)

// BatchInsert inserts vectors concurrently across GOMAXPROCS workers.
// Concurrent inserts are safe: each Node's neighbor lists are guarded by
// their own mutex, and the Builder's own state (nodes map, entry point,
// counters) is guarded by Builder.mu.
func (b *Builder) BatchInsert(vectors [][]float32, progress ProgressFunc) *BatchResult {
	result := &BatchResult{
		IDs:    make([]uint32, len(vectors)),
		Errors: make([]error, 0),
	}
	if len(vectors) == 0 {
		return result
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(vectors) {
		workers = len(vectors)
	}

	jobs := make(chan int, len(vectors))
	var wg sync.WaitGroup
	var success, failure int64
	var errMu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				id, err := b.Insert(vectors[i])
				if err != nil {
					errMu.Lock()
					result.Errors = append(result.Errors, err)
					errMu.Unlock()
					atomic.AddInt64(&failure, 1)
				} else {
					result.IDs[i] = id
					atomic.AddInt64(&success, 1)
				}
				if progress != nil {
					progress(int(atomic.LoadInt64(&success)+atomic.LoadInt64(&failure)), len(vectors))
				}
			}
		}()
	}

	for i := range vectors {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	result.Success = int(success)
	result.Failure = int(failure)
	return result
}
