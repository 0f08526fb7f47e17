package docgen

import "context"

// SequentialExecutor runs units one at a time in input order. It is the
// correctness baseline and the only strategy with a defined completion
// order.
type SequentialExecutor struct{}

// Kind implements Executor.
func (SequentialExecutor) Kind() ExecutorKind { return ExecutorSequential }

// Execute implements Executor.
func (SequentialExecutor) Execute(ctx context.Context, files []FileRecord, task Task, rec Recorder) (map[string]Result, error) {
	if len(files) == 0 {
		return map[string]Result{}, nil
	}
	rec = recorderOrNop(rec)

	results := make([]Result, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = runTask(ctx, task, f)
		rec.Record(f.Path, results[i].Succeeded)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return collect(results), nil
}
