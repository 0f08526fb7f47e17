package docgen

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// State is a step of the orchestrator's run state machine.
type State int

const (
	StateInit State = iota
	StateClientReady
	StateDirectoryViz
	StatePreOverview
	StateGenerating
	StatePostOverview
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateInit:         "INIT",
	StateClientReady:  "CLIENT_READY",
	StateDirectoryViz: "DIRECTORY_VIZ",
	StatePreOverview:  "PRE_OVERVIEW",
	StateGenerating:   "GENERATING",
	StatePostOverview: "POST_OVERVIEW",
	StateDone:         "DONE",
	StateFailed:       "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Report is the outcome of a successful run.
type Report struct {
	RunID     uuid.UUID
	Executor  ExecutorKind
	FileCount int
	Entries   map[string]Result
	StartedAt time.Time
	Duration  time.Duration
}

// Map returns the aggregate key to text mapping.
func (r *Report) Map() map[string]string {
	out := make(map[string]string, len(r.Entries))
	for k, v := range r.Entries {
		out[k] = v.Text
	}
	return out
}

// Failed returns the paths of units that did not succeed, sorted.
func (r *Report) Failed() []string {
	var failed []string
	for k, v := range r.Entries {
		if !IsSentinelKey(k) && !v.Succeeded {
			failed = append(failed, k)
		}
	}
	sort.Strings(failed)
	return failed
}

// Orchestrator drives one generation run end to end.
type Orchestrator struct {
	factory      ClientFactory
	logger       *slog.Logger
	pollInterval time.Duration
	onProgress   func(Snapshot)
	onState      func(State)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgressFunc registers a callback receiving every progress snapshot.
// It is invoked from the aggregator's consumer goroutine.
func WithProgressFunc(fn func(Snapshot)) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// WithStateFunc registers a callback invoked on every state transition.
func WithStateFunc(fn func(State)) Option {
	return func(o *Orchestrator) { o.onState = fn }
}

// WithProgressInterval sets the aggregator's poll interval.
func WithProgressInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.pollInterval = d }
}

// NewOrchestrator creates an Orchestrator that builds its completer from
// factory once per run.
func NewOrchestrator(factory ClientFactory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		factory:      factory,
		logger:       slog.New(slog.DiscardHandler),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run documents files under cfg. It returns either a complete Report or an
// error with no partial results. Errors wrap ErrInvalidConfig,
// ErrClientInit or ErrCancelled.
func (o *Orchestrator) Run(ctx context.Context, files []FileRecord, cfg RunConfig) (*Report, error) {
	started := time.Now()
	runID := uuid.New()
	log := o.logger.With("run_id", runID.String())
	o.transition(log, StateInit)

	if err := cfg.Validate(); err != nil {
		o.transition(log, StateFailed)
		return nil, err
	}
	if err := checkFiles(files); err != nil {
		o.transition(log, StateFailed)
		return nil, err
	}
	exec, err := NewExecutor(cfg)
	if err != nil {
		o.transition(log, StateFailed)
		return nil, err
	}

	llm, err := o.newClient(ctx)
	if err != nil {
		o.transition(log, StateFailed)
		return nil, fmt.Errorf("%w: %w", ErrClientInit, err)
	}
	o.transition(log, StateClientReady)

	entries := make(map[string]Result, len(files)+3)
	multi := len(files) > 1
	overview := NewOverview(llm, exec, log, unitTimeout(cfg.UnitTimeout))

	if cfg.GenerateDirectoryStructure && multi {
		o.transition(log, StateDirectoryViz)
		ascii, graph := DirectoryStructure(files)
		entries[KeyDirectoryStructure] = Result{Key: KeyDirectoryStructure, Text: ascii, Succeeded: true}
		entries[KeyMermaidDiagram] = Result{Key: KeyMermaidDiagram, Text: MermaidDocument(graph), Succeeded: true}
	}

	if cfg.GenerateOverview && multi && cfg.OverviewMode == OverviewFromMetadata {
		o.transition(log, StatePreOverview)
		entries[KeyProjectOverview] = overviewResult(overview.FromMetadata(ctx, files))
	}
	if err := ctx.Err(); err != nil {
		return nil, o.cancelled(log, err)
	}

	o.transition(log, StateGenerating)
	log.Info("generating documentation", "executor", string(exec.Kind()), "files", len(files))
	perFile, err := o.generate(ctx, exec, llm, files, cfg)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, o.cancelled(log, ctxErr)
		}
		o.transition(log, StateFailed)
		return nil, fmt.Errorf("running %s executor: %w", exec.Kind(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, o.cancelled(log, err)
	}
	for k, v := range perFile {
		entries[k] = v
	}

	if cfg.GenerateOverview && multi && cfg.OverviewMode == OverviewFromContent {
		o.transition(log, StatePostOverview)
		entries[KeyProjectOverview] = overviewResult(overview.FromContent(ctx, perFile, files, cfg.ForceDirectOverview))
		if err := ctx.Err(); err != nil {
			return nil, o.cancelled(log, err)
		}
	}

	o.transition(log, StateDone)
	report := &Report{
		RunID:     runID,
		Executor:  exec.Kind(),
		FileCount: len(files),
		Entries:   entries,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	log.Info("generation finished",
		"entries", len(entries),
		"failed", len(report.Failed()),
		"duration", report.Duration.Round(time.Millisecond))
	return report, nil
}

// generate runs the per-file pass with a supervised progress aggregator
// whose consumer is joined before returning.
func (o *Orchestrator) generate(ctx context.Context, exec Executor, llm LLMCompleter, files []FileRecord, cfg RunConfig) (map[string]Result, error) {
	agg := NewAggregator(len(files),
		WithPollInterval(o.pollInterval),
		WithUpdateFunc(o.onProgress))
	agg.Start(ctx)
	defer agg.Finish()

	return exec.Execute(ctx, files, func(ctx context.Context, f FileRecord) Result {
		res := GenerateFile(ctx, llm, f, cfg.DetailLevel, cfg.UnitTimeout)
		if !res.Succeeded {
			o.logger.Warn("unit failed", "path", f.Path, "error", res.Err)
		}
		return res
	}, agg)
}

func (o *Orchestrator) newClient(ctx context.Context) (llm LLMCompleter, err error) {
	if o.factory == nil {
		return nil, fmt.Errorf("no client factory configured")
	}
	defer func() {
		if r := recover(); r != nil {
			llm, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	llm, err = o.factory(ctx)
	if err == nil && llm == nil {
		err = fmt.Errorf("factory returned nil client")
	}
	return llm, err
}

func (o *Orchestrator) cancelled(log *slog.Logger, cause error) error {
	o.transition(log, StateFailed)
	log.Warn("run cancelled", "cause", cause)
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

func (o *Orchestrator) transition(log *slog.Logger, s State) {
	log.Debug("state transition", "state", s.String())
	if o.onState != nil {
		o.onState(s)
	}
}

// checkFiles rejects duplicate paths and paths that collide with sentinel
// keys, either of which would break the one-entry-per-file mapping.
func checkFiles(files []FileRecord) error {
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if IsSentinelKey(f.Path) {
			return fmt.Errorf("%w: file path %q is reserved", ErrInvalidConfig, f.Path)
		}
		if _, dup := seen[f.Path]; dup {
			return fmt.Errorf("%w: duplicate file path %q", ErrInvalidConfig, f.Path)
		}
		seen[f.Path] = struct{}{}
	}
	return nil
}

func overviewResult(text string) Result {
	return Result{Key: KeyProjectOverview, Text: text, Succeeded: true}
}

func unitTimeout(d time.Duration) TimeoutFunc {
	return func(ctx context.Context) (context.Context, context.CancelFunc) {
		if d > 0 {
			return context.WithTimeout(ctx, d)
		}
		return context.WithCancel(ctx)
	}
}
