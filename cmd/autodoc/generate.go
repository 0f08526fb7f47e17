package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/julianshen/autodoc/internal/config"
	"github.com/julianshen/autodoc/internal/docgen"
	"github.com/julianshen/autodoc/internal/integrations"
	"github.com/julianshen/autodoc/internal/output"
	"github.com/julianshen/autodoc/internal/provider"
	"github.com/julianshen/autodoc/internal/runner"
	"github.com/julianshen/autodoc/internal/source"
	"github.com/julianshen/autodoc/internal/store"
	"github.com/julianshen/autodoc/internal/tui"
)

const systemPrompt = "You are an expert technical writer who documents source code for developers. " +
	"Answer in GitHub-flavored markdown."

type generateOptions struct {
	format       string
	out          string
	outputDir    string
	project      string
	executor     string
	batchSize    int
	maxWorkers   int
	detail       string
	overview     bool
	structure    bool
	overviewMode string
	forceDirect  bool
	unitTimeout  time.Duration
	maxFiles     int
	maxFileMB    float64
	rps          float64
	noHistory    bool
	noTUI        bool
	failOnError  bool
}

func generateCmd() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Generate documentation for a project directory",
		Long: `Scan a project directory, document every supported source file with the
configured LLM, and emit the combined documentation.

Per-file failures do not abort the run; they appear as error text in the
output. Ctrl+C cancels the whole run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runGenerate(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), dir, cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "markdown", "output format: markdown, json")
	f.StringVarP(&opts.out, "out", "o", "-", "write the formatted output to this file (- for stdout)")
	f.StringVar(&opts.outputDir, "output-dir", "", "also write a per-file markdown tree to this directory")
	f.StringVar(&opts.project, "project", "", "project name recorded in history (default: directory name)")
	f.StringVar(&opts.executor, "executor", "", "execution strategy: sequential, batch, full-concurrent, async")
	f.IntVar(&opts.batchSize, "batch-size", 0, "files per batch for the batch strategy")
	f.IntVar(&opts.maxWorkers, "max-workers", 0, "worker ceiling for full-concurrent and async")
	f.StringVar(&opts.detail, "detail", "", "detail level: basic, comprehensive, expert")
	f.BoolVar(&opts.overview, "overview", true, "generate a project overview")
	f.BoolVar(&opts.structure, "structure", true, "generate the directory structure")
	f.StringVar(&opts.overviewMode, "overview-mode", "", "overview source: content, metadata")
	f.BoolVar(&opts.forceDirect, "force-direct-overview", false, "always send all documentation in one overview request")
	f.DurationVar(&opts.unitTimeout, "unit-timeout", 0, "deadline for each documentation unit (0 = none)")
	f.IntVar(&opts.maxFiles, "max-files", 0, "maximum number of files to document")
	f.Float64Var(&opts.maxFileMB, "max-file-size", 0, "skip files larger than this many MB")
	f.Float64Var(&opts.rps, "rps", 0, "maximum LLM requests per second (0 = unlimited)")
	f.BoolVar(&opts.noHistory, "no-history", false, "do not record this run in history")
	f.BoolVar(&opts.noTUI, "no-tui", false, "print plain progress lines instead of the progress bar")
	f.BoolVar(&opts.failOnError, "fail-on-error", false, "exit with status 2 when any file could not be documented")

	return cmd
}

// apply folds explicitly set flags into cfg.
func (o *generateOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	g := &cfg.Generation
	if o.executor != "" {
		g.Executor = o.executor
	}
	if o.batchSize > 0 {
		g.BatchSize = o.batchSize
	}
	if o.maxWorkers > 0 {
		g.MaxWorkers = o.maxWorkers
	}
	if o.detail != "" {
		g.DetailLevel = o.detail
	}
	if f.Changed("overview") {
		g.Overview = o.overview
	}
	if f.Changed("structure") {
		g.DirectoryStructure = o.structure
	}
	if o.overviewMode != "" {
		g.OverviewMode = o.overviewMode
	}
	if f.Changed("force-direct-overview") {
		g.ForceDirectOverview = o.forceDirect
	}
	if f.Changed("unit-timeout") {
		g.UnitTimeout = o.unitTimeout.String()
	}
	if o.maxFiles > 0 {
		cfg.Limits.MaxFiles = o.maxFiles
	}
	if o.maxFileMB > 0 {
		cfg.Limits.MaxFileSizeMB = o.maxFileMB
	}
	if f.Changed("rps") {
		cfg.Limits.RequestsPerSecond = o.rps
	}
	if _, err := output.NewFormatter(o.format); err != nil {
		return err
	}
	return nil
}

func runGenerate(ctx context.Context, stdout, stderr io.Writer, dir string, cfg *config.Config, opts *generateOptions) error {
	runCfg, err := cfg.RunConfig()
	if err != nil {
		return err
	}

	useTUI := !opts.noTUI && !verbose && isTerminal(stderr)
	logger := newLogger(stderr, verbose)
	if useTUI {
		logger = slog.New(slog.DiscardHandler)
	}

	files, err := source.Scan(ctx, dir, source.Options{
		MaxFileSize: cfg.MaxFileSizeBytes(),
		MaxFiles:    cfg.Limits.MaxFiles,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no supported source files found in %s", dir)
	}

	project := opts.project
	if project == "" {
		project = projectName(dir)
	}

	var rep *docgen.Report
	if useTUI {
		rep, err = runWithTUI(ctx, stderr, project, files, cfg, runCfg)
	} else {
		rep, err = runPlain(ctx, stderr, logger, files, cfg, runCfg)
	}
	if err != nil {
		return err
	}

	run := &output.Run{Project: project, Report: rep, Files: files}
	if err := writeOutput(stdout, run, opts); err != nil {
		return err
	}

	if !opts.noHistory {
		if err := saveHistory(ctx, cfg, run); err != nil {
			logger.Warn("could not record run in history", "error", err)
		}
	}

	fmt.Fprintf(stderr, "Documented %d files in %s (%d failed, run %s)\n",
		rep.FileCount, rep.Duration.Round(time.Millisecond), len(rep.Failed()), rep.RunID)
	return runner.CheckReport(rep, opts.failOnError)
}

func runPlain(ctx context.Context, stderr io.Writer, logger *slog.Logger, files []docgen.FileRecord, cfg *config.Config, runCfg docgen.RunConfig) (*docgen.Report, error) {
	start := time.Now()
	last := -1
	orch := docgen.NewOrchestrator(newClientFactory(cfg, logger),
		docgen.WithLogger(logger),
		docgen.WithProgressFunc(func(s docgen.Snapshot) {
			if s.Completed == last {
				return
			}
			last = s.Completed
			fmt.Fprintln(stderr, tui.FormatSnapshot(s, time.Since(start)))
		}),
	)
	return orch.Run(ctx, files, runCfg)
}

func runWithTUI(ctx context.Context, stderr io.Writer, project string, files []docgen.FileRecord, cfg *config.Config, runCfg docgen.RunConfig) (*docgen.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewProgressModel("autodoc · "+project, len(files), cancel)
	prog := tea.NewProgram(model, tea.WithOutput(stderr), tea.WithContext(ctx))

	logger := slog.New(slog.DiscardHandler)
	orch := docgen.NewOrchestrator(newClientFactory(cfg, logger),
		docgen.WithLogger(logger),
		docgen.WithProgressFunc(func(s docgen.Snapshot) { prog.Send(tui.SnapshotMsg(s)) }),
		docgen.WithStateFunc(func(s docgen.State) { prog.Send(tui.StateMsg(s)) }),
	)

	type outcome struct {
		rep *docgen.Report
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		rep, err := orch.Run(ctx, files, runCfg)
		prog.Send(tui.DoneMsg{Err: err})
		done <- outcome{rep, err}
	}()

	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		res := <-done
		if res.err != nil {
			return nil, res.err
		}
		return nil, fmt.Errorf("progress display: %w", err)
	}
	res := <-done
	return res.rep, res.err
}

// newClientFactory builds the completer chain for a run: provider, optional
// readiness check, rate limiter, then response cache.
func newClientFactory(cfg *config.Config, logger *slog.Logger) docgen.ClientFactory {
	return func(ctx context.Context) (docgen.LLMCompleter, error) {
		p, err := provider.NewProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("creating provider: %w", err)
		}
		if err := provider.Check(ctx, p, cfg.Provider.Model); err != nil {
			return nil, fmt.Errorf("checking provider: %w", err)
		}
		logger.Debug("provider ready", "provider", cfg.Provider.Default, "model", cfg.Provider.Model)

		var c docgen.LLMCompleter = integrations.NewLLMCompleter(p, cfg.Provider.Model,
			integrations.WithTemperature(cfg.Provider.Temperature),
			integrations.WithSystemPrompt(systemPrompt),
		)
		c = integrations.NewRateLimitedCompleter(c, cfg.Limits.RequestsPerSecond, cfg.Limits.Burst)
		return integrations.NewCachingCompleter(c, cfg.Cache.Size)
	}
}

func writeOutput(stdout io.Writer, run *output.Run, opts *generateOptions) error {
	formatter, err := output.NewFormatter(opts.format)
	if err != nil {
		return err
	}
	data, err := formatter.Format(run)
	if err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if opts.out == "" || opts.out == "-" {
		if _, err := stdout.Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(opts.out), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		if err := os.WriteFile(opts.out, data, 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	if opts.outputDir != "" {
		if _, err := output.WriteTree(run, opts.outputDir); err != nil {
			return fmt.Errorf("writing documentation tree: %w", err)
		}
	}
	return nil
}

func saveHistory(ctx context.Context, cfg *config.Config, run *output.Run) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	_, err = s.SaveRun(ctx, run.Project, run.Report, cfg.History.Keep)
	return err
}

func openStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.HistoryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	return store.NewStore(path)
}

func projectName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Base(dir)
	}
	return filepath.Base(abs)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
