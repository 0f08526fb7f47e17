package docgen

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"
)

// PoolExecutor submits every unit at once to a single worker pool capped at
// a fixed number of goroutines. Results arrive in completion order.
type PoolExecutor struct {
	workers int
}

// NewPoolExecutor returns a PoolExecutor with the given worker cap.
func NewPoolExecutor(workers int) (*PoolExecutor, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: max workers must be positive, got %d", ErrInvalidConfig, workers)
	}
	return &PoolExecutor{workers: workers}, nil
}

// Kind implements Executor.
func (e *PoolExecutor) Kind() ExecutorKind { return ExecutorFullConcurrent }

// Execute implements Executor.
func (e *PoolExecutor) Execute(ctx context.Context, files []FileRecord, task Task, rec Recorder) (map[string]Result, error) {
	if len(files) == 0 {
		return map[string]Result{}, nil
	}
	rec = recorderOrNop(rec)

	results := make([]Result, len(files))
	p := pool.New().WithMaxGoroutines(e.workers)
	for i := range files {
		p.Go(func() {
			results[i] = runTask(ctx, task, files[i])
			rec.Record(files[i].Path, results[i].Succeeded)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collect(results), nil
}
