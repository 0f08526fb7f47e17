package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/julianshen/autodoc/internal/docgen"
	"github.com/julianshen/autodoc/internal/output"
	"github.com/julianshen/autodoc/internal/store"
	"github.com/julianshen/autodoc/internal/tui"
)

// historyCmd returns the "history" command with list, show, delete and clear
// subcommands for past runs.
func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect previously generated documentation",
	}

	cmd.AddCommand(historyListCmd())
	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyDeleteCmd())
	cmd.AddCommand(historyClearCmd())

	return cmd
}

func withStore(fn func(s *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer s.Close()
	return fn(s)
}

func historyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(func(s *store.Store) error {
				runs, err := s.ListRuns(cmd.Context())
				if err != nil {
					return err
				}
				return printRuns(cmd.OutOrStdout(), runs)
			})
		},
	}
}

func printRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No documentation history yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROJECT\tGENERATED\tFILES\tFAILED\tTYPES\tINCLUDES\tSIZE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%.1f KB\n",
			shortID(r.ID),
			r.Project,
			r.CreatedAt.Local().Format(time.DateTime),
			r.FileCount,
			r.FailedCount,
			strings.Join(r.FileTypes, ","),
			includes(r),
			r.SizeKB,
		)
	}
	return tw.Flush()
}

func includes(r store.Run) string {
	var parts []string
	if r.HasOverview {
		parts = append(parts, "overview")
	}
	if r.HasStructure {
		parts = append(parts, "structure")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func historyShowCmd() *cobra.Command {
	var (
		formatFlag string
		rawFlag    bool
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print the documentation of a recorded run",
		Long:  "Print a recorded run. The id may be abbreviated to any unique prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.Store) error {
				run, entries, err := s.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				formatter, err := output.NewFormatter(formatFlag)
				if err != nil {
					return err
				}
				data, err := formatter.Format(&output.Run{Project: run.Project, Report: reportFromRun(run, entries)})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if formatFlag == "json" || rawFlag || !isTerminal(out) {
					_, err = out.Write(data)
					return err
				}
				r, err := tui.NewMarkdownRenderer("", 100)
				if err != nil {
					return err
				}
				rendered, err := r.Render(string(data))
				if err != nil {
					return err
				}
				_, err = io.WriteString(out, rendered)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "markdown", "output format: markdown, json")
	cmd.Flags().BoolVar(&rawFlag, "raw", false, "print markdown without terminal styling")
	return cmd
}

// reportFromRun rebuilds a Report from a stored run.
func reportFromRun(run store.Run, entries map[string]docgen.Result) *docgen.Report {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		id = uuid.Nil
	}
	return &docgen.Report{
		RunID:     id,
		Executor:  docgen.ExecutorKind(run.Executor),
		FileCount: run.FileCount,
		Entries:   entries,
		StartedAt: run.CreatedAt,
		Duration:  time.Duration(run.DurationMs) * time.Millisecond,
	}
}

func historyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.Store) error {
				run, err := s.DeleteRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s (%s)\n", shortID(run.ID), run.Project)
				return nil
			})
		},
	}
}

func historyClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(func(s *store.Store) error {
				if err := s.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
				return nil
			})
		},
	}
}
