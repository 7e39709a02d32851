package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bitbench/bitbench/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
	Scenario string
	Limit    int
}

type listRow struct {
	RunID     string `json:"run_id"`
	Scenario  string `json:"scenario"`
	Protocol  string `json:"protocol"`
	Direction string `json:"direction"`
	StartedAt string `json:"started_at"`
	Passed    bool   `json:"passed"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs",
		Long: `List runs persisted by bitbench run --db, newest first.

Example:
  bitbench list --db results.db --scenario uart-receive --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (required)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "filter by scenario name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func listRuns(opts *ListOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = out.Error("E002", "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), opts.Scenario, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	rows := make([]listRow, 0, len(runs))
	lines := make([]string, 0, len(runs))
	for _, run := range runs {
		verdict := "PASS"
		if !run.Passed {
			verdict = "FAIL"
		}
		rows = append(rows, listRow{
			RunID:     run.ID,
			Scenario:  run.Scenario,
			Protocol:  run.Protocol,
			Direction: run.Direction,
			StartedAt: run.StartedAt.Format(time.RFC3339),
			Passed:    run.Passed,
		})
		lines = append(lines, fmt.Sprintf("%s %s %s (%s %s) %s",
			verdict, run.ID, run.Scenario, run.Protocol, run.Direction,
			run.StartedAt.Format(time.RFC3339)))
	}
	if len(lines) == 0 {
		lines = append(lines, "no runs stored")
	}
	return out.Success(rows, lines...)
}
