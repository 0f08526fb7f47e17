package docgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ---------- fakes ----------

type fakeCompleter struct {
	failOn  map[string]bool // file paths whose call fails
	panicOn string
	delay   time.Duration
	fail    func(prompt string) error

	mu        sync.Mutex
	calls     []string // file paths, or "" for non-file prompts, in call order
	maxTokens []int

	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	cur := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	path := promptPath(prompt)
	f.mu.Lock()
	f.calls = append(f.calls, path)
	f.maxTokens = append(f.maxTokens, maxTokens)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.panicOn != "" && path == f.panicOn {
		panic("boom")
	}
	if f.failOn[path] {
		return "", fmt.Errorf("backend unavailable for %s", path)
	}
	if f.fail != nil {
		if err := f.fail(prompt); err != nil {
			return "", err
		}
	}
	if path == "" {
		return "synthesized text", nil
	}
	return "documented " + path, nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCompleter) fileCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// promptPath extracts the "File: <path>" line of a unit prompt.
func promptPath(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(line, "File: "); ok {
			return rest
		}
	}
	return ""
}

type countingRecorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *countingRecorder) Record(key string, succeeded bool) {
	r.mu.Lock()
	r.events = append(r.events, ProgressEvent{Key: key, Succeeded: succeeded})
	r.mu.Unlock()
}

func (r *countingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var errFactory = errors.New("missing credentials")

func makeFiles(n int) []FileRecord {
	files := make([]FileRecord, n)
	for i := range files {
		dir := ""
		if i%2 == 1 {
			dir = "pkg"
		}
		name := fmt.Sprintf("file%02d.py", i)
		p := name
		if dir != "" {
			p = dir + "/" + name
		}
		files[i] = FileRecord{Path: p, Content: fmt.Sprintf("print(%d)\n", i), Language: "Python", Directory: dir}
	}
	return files
}

func unitTask(llm LLMCompleter) Task {
	return func(ctx context.Context, f FileRecord) Result {
		return GenerateFile(ctx, llm, f, DetailComprehensive, 0)
	}
}

func allExecutors(t interface{ Fatalf(string, ...any) }, workers int) []Executor {
	batch, err := NewBatchExecutor(workers)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	pool, err := NewPoolExecutor(workers)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	async, err := NewAsyncExecutor(workers)
	if err != nil {
		t.Fatalf("async: %v", err)
	}
	return []Executor{SequentialExecutor{}, batch, pool, async}
}
