package docgen

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchExecutor splits the input into contiguous groups of a fixed size and
// runs each group concurrently, waiting for the whole group (stragglers
// included) before starting the next. At most size units are in flight.
type BatchExecutor struct {
	size int
}

// NewBatchExecutor returns a BatchExecutor with the given group size.
func NewBatchExecutor(size int) (*BatchExecutor, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, size)
	}
	return &BatchExecutor{size: size}, nil
}

// Kind implements Executor.
func (e *BatchExecutor) Kind() ExecutorKind { return ExecutorBatch }

// Groups returns the [start, end) bounds of every group for n files.
func (e *BatchExecutor) Groups(n int) [][2]int {
	var groups [][2]int
	for start := 0; start < n; start += e.size {
		groups = append(groups, [2]int{start, min(start+e.size, n)})
	}
	return groups
}

// Execute implements Executor.
func (e *BatchExecutor) Execute(ctx context.Context, files []FileRecord, task Task, rec Recorder) (map[string]Result, error) {
	if len(files) == 0 {
		return map[string]Result{}, nil
	}
	rec = recorderOrNop(rec)

	// Each index is written by exactly one goroutine.
	results := make([]Result, len(files))
	for _, bounds := range e.Groups(len(files)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var g errgroup.Group
		g.SetLimit(bounds[1] - bounds[0])
		for i := bounds[0]; i < bounds[1]; i++ {
			g.Go(func() error {
				results[i] = runTask(ctx, task, files[i])
				rec.Record(files[i].Path, results[i].Succeeded)
				return nil
			})
		}
		_ = g.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collect(results), nil
}
