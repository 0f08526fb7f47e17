package docgen

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// AsyncExecutor schedules units from a single loop goroutine. A weighted
// semaphore of workers slots gates admission; the loop blocks on it, so a
// cancelled run stops admitting as soon as the gate gives up. Each admitted
// unit's blocking call is off-loaded to its own goroutine, which releases its
// slot once its completion is queued.
type AsyncExecutor struct {
	workers int
}

// NewAsyncExecutor returns an AsyncExecutor with the given admission limit.
func NewAsyncExecutor(workers int) (*AsyncExecutor, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: max workers must be positive, got %d", ErrInvalidConfig, workers)
	}
	return &AsyncExecutor{workers: workers}, nil
}

// Kind implements Executor.
func (e *AsyncExecutor) Kind() ExecutorKind { return ExecutorAsync }

type completion struct {
	idx int
	res Result
}

// Execute implements Executor.
func (e *AsyncExecutor) Execute(ctx context.Context, files []FileRecord, task Task, rec Recorder) (map[string]Result, error) {
	if len(files) == 0 {
		return map[string]Result{}, nil
	}
	rec = recorderOrNop(rec)

	gate := semaphore.NewWeighted(int64(e.workers))
	// Buffered so off-loaded calls never block on the loop.
	done := make(chan completion, len(files))
	results := make([]Result, len(files))

	admitted, collected := 0, 0
	record := func(c completion) {
		results[c.idx] = c.res
		rec.Record(files[c.idx].Path, c.res.Succeeded)
		collected++
	}

admit:
	for idx, f := range files {
		if ctx.Err() != nil || gate.Acquire(ctx, 1) != nil {
			break
		}
		go func() {
			done <- completion{idx: idx, res: runTask(ctx, task, f)}
			gate.Release(1)
		}()
		admitted++

		// Collect whatever finished while waiting at the gate.
		for collected < admitted {
			select {
			case c := <-done:
				record(c)
			default:
				continue admit
			}
		}
	}

	// Units already in flight are drained even when the run is cancelled.
	for collected < admitted {
		record(<-done)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collect(results), nil
}
