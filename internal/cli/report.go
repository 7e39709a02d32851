package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bitbench/bitbench/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
}

type reportPayload struct {
	Run         store.RunSummary        `json:"run"`
	Repetitions []store.RepetitionRecord `json:"repetitions"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Show one stored run in detail",
		Long: `Show a stored run's configuration and every repetition's verdict,
including the seed needed to replay a failing repetition.

Example:
  bitbench report --db results.db 1f8b4c2e-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportRun(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func reportRun(opts *ReportOptions, runID string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = out.Error("E002", "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := context.Background()
	run, err := st.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = out.Error("E005", fmt.Sprintf("run %s not found", runID), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", runID))
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	reps, err := st.ListRepetitions(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read repetitions", err)
	}

	verdict := "PASS"
	if !run.Passed {
		verdict = "FAIL"
	}
	lines := []string{
		fmt.Sprintf("%s %s", verdict, run.ID),
		fmt.Sprintf("scenario:  %s (%s %s)", run.Scenario, run.Protocol, run.Direction),
		fmt.Sprintf("started:   %s", run.StartedAt.Format(time.RFC3339)),
		fmt.Sprintf("seed:      %d, repeats: %d", run.Seed, run.Repeats),
	}
	for _, rep := range reps {
		line := fmt.Sprintf("  [%d] %s seed=%d words=%v sim=%dns",
			rep.Index, rep.Status, rep.Seed, rep.Words, rep.SimTimeNs)
		if rep.Error != "" {
			line += " error=" + rep.Error
		}
		lines = append(lines, line)
	}
	return out.Success(reportPayload{Run: run, Repetitions: reps}, lines...)
}
