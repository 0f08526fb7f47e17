package docgen

import (
	"context"
	"fmt"
)

// Task documents one file. The returned Result must be keyed by f.Path.
type Task func(ctx context.Context, f FileRecord) Result

// Recorder receives one completion event per finished unit. Record may be
// called concurrently from many goroutines.
type Recorder interface {
	Record(key string, succeeded bool)
}

type nopRecorder struct{}

func (nopRecorder) Record(string, bool) {}

// Executor runs a Task over every file and returns one Result per input
// path. A failing unit never aborts its siblings; the returned error is
// reserved for strategy-level failures such as run cancellation.
type Executor interface {
	Kind() ExecutorKind
	Execute(ctx context.Context, files []FileRecord, task Task, rec Recorder) (map[string]Result, error)
}

// NewExecutor builds the strategy selected by cfg.
func NewExecutor(cfg RunConfig) (Executor, error) {
	switch cfg.Executor {
	case ExecutorSequential:
		return SequentialExecutor{}, nil
	case ExecutorBatch:
		return NewBatchExecutor(cfg.BatchSize)
	case ExecutorFullConcurrent:
		return NewPoolExecutor(cfg.MaxWorkers)
	case ExecutorAsync:
		return NewAsyncExecutor(cfg.MaxWorkers)
	default:
		return nil, fmt.Errorf("%w: unknown executor kind %q", ErrInvalidConfig, cfg.Executor)
	}
}

// runTask invokes task and guarantees a well-formed Result even if the
// task panics or forgets the key.
func runTask(ctx context.Context, task Task, f FileRecord) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failedResult(f.Path, fmt.Errorf("panic: %v", r))
		}
	}()
	res = task(ctx, f)
	res.Key = f.Path
	return res
}

func recorderOrNop(rec Recorder) Recorder {
	if rec == nil {
		return nopRecorder{}
	}
	return rec
}

// collect converts positional results into the path-keyed mapping.
func collect(results []Result) map[string]Result {
	out := make(map[string]Result, len(results))
	for _, r := range results {
		out[r.Key] = r
	}
	return out
}
