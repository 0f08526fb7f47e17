// Package docgen generates per-file documentation for a set of source files
// by fanning LLM calls out across interchangeable execution strategies, and
// merges the results with the optional directory visualization and project
// overview into a single mapping.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Reserved keys stored alongside per-file entries.
const (
	KeyDirectoryStructure = "__directory_structure__"
	KeyMermaidDiagram     = "__mermaid_diagram__"
	KeyProjectOverview    = "__project_overview__"
)

// IsSentinelKey reports whether key is one of the reserved non-file keys.
func IsSentinelKey(key string) bool {
	switch key {
	case KeyDirectoryStructure, KeyMermaidDiagram, KeyProjectOverview:
		return true
	}
	return false
}

var (
	// ErrInvalidConfig is returned when a RunConfig fails validation.
	ErrInvalidConfig = errors.New("invalid run configuration")
	// ErrClientInit is returned when the LLM client cannot be constructed.
	ErrClientInit = errors.New("llm client initialization failed")
	// ErrCancelled is returned when the run context is cancelled mid-flight.
	ErrCancelled = errors.New("generation cancelled")
)

// FileRecord is one extracted source file. It is never mutated by docgen.
type FileRecord struct {
	Path      string // relative, forward-slash separated, unique
	Content   string
	Language  string
	Directory string // parent directory, empty for root
}

// Result is the outcome of documenting one file or one synthetic unit.
type Result struct {
	Key       string
	Text      string
	Succeeded bool
	Err       string
}

// LLMCompleter is the remote documentation backend. Implementations must be
// safe for concurrent use.
type LLMCompleter interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ClientFactory constructs the completer for one run.
type ClientFactory func(ctx context.Context) (LLMCompleter, error)

// DetailLevel controls prompt verbosity and the output token ceiling.
type DetailLevel string

const (
	DetailBasic         DetailLevel = "basic"
	DetailComprehensive DetailLevel = "comprehensive"
	DetailExpert        DetailLevel = "expert"
)

// ParseDetailLevel converts s into a DetailLevel, rejecting unknown values.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch lvl := DetailLevel(strings.ToLower(strings.TrimSpace(s))); lvl {
	case DetailBasic, DetailComprehensive, DetailExpert:
		return lvl, nil
	default:
		return "", fmt.Errorf("%w: unknown detail level %q", ErrInvalidConfig, s)
	}
}

// ExecutorKind selects the execution strategy.
type ExecutorKind string

const (
	ExecutorSequential     ExecutorKind = "sequential"
	ExecutorBatch          ExecutorKind = "batch"
	ExecutorFullConcurrent ExecutorKind = "full-concurrent"
	ExecutorAsync          ExecutorKind = "async"
)

// ParseExecutorKind converts s into an ExecutorKind, rejecting unknown values.
func ParseExecutorKind(s string) (ExecutorKind, error) {
	switch kind := ExecutorKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case ExecutorSequential, ExecutorBatch, ExecutorFullConcurrent, ExecutorAsync:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown executor kind %q", ErrInvalidConfig, s)
	}
}

// OverviewMode selects when and from what the project overview is built.
type OverviewMode string

const (
	// OverviewFromContent builds the overview from generated documentation
	// after the per-file pass.
	OverviewFromContent OverviewMode = "content"
	// OverviewFromMetadata builds the overview from the file listing before
	// the per-file pass.
	OverviewFromMetadata OverviewMode = "metadata"
)

// RunConfig is the immutable input contract for one generation run.
type RunConfig struct {
	DetailLevel                DetailLevel
	GenerateOverview           bool
	GenerateDirectoryStructure bool
	OverviewMode               OverviewMode
	ForceDirectOverview        bool
	Executor                   ExecutorKind
	BatchSize                  int
	MaxWorkers                 int
	UnitTimeout                time.Duration
}

// DefaultRunConfig mirrors the defaults of the CLI.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		DetailLevel:                DetailComprehensive,
		GenerateOverview:           true,
		GenerateDirectoryStructure: true,
		OverviewMode:               OverviewFromContent,
		Executor:                   ExecutorBatch,
		BatchSize:                  3,
		MaxWorkers:                 3,
	}
}

// Validate rejects unrecognized enum values and out-of-range concurrency
// parameters.
func (c RunConfig) Validate() error {
	if _, err := ParseDetailLevel(string(c.DetailLevel)); err != nil {
		return err
	}
	if _, err := ParseExecutorKind(string(c.Executor)); err != nil {
		return err
	}
	switch c.OverviewMode {
	case OverviewFromContent, OverviewFromMetadata:
	default:
		return fmt.Errorf("%w: unknown overview mode %q", ErrInvalidConfig, c.OverviewMode)
	}
	switch c.Executor {
	case ExecutorBatch:
		if c.BatchSize < 2 {
			return fmt.Errorf("%w: batch size must be >= 2, got %d", ErrInvalidConfig, c.BatchSize)
		}
	case ExecutorFullConcurrent, ExecutorAsync:
		if c.MaxWorkers < 2 {
			return fmt.Errorf("%w: max workers must be >= 2, got %d", ErrInvalidConfig, c.MaxWorkers)
		}
	}
	if c.UnitTimeout < 0 {
		return fmt.Errorf("%w: unit timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}
