package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bitbench/bitbench/internal/bench"
	"github.com/bitbench/bitbench/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Repeats  int
	Seed     int64
	Trace    bool
}

// runReport is the per-scenario payload of the run command's output.
type runReport struct {
	RunID       string `json:"run_id"`
	Scenario    string `json:"scenario"`
	Protocol    string `json:"protocol"`
	Direction   string `json:"direction"`
	Repetitions int    `json:"repetitions"`
	SimTimeNs   uint64 `json:"sim_time_ns"`
	Passed      bool   `json:"passed"`
	FailedIndex int    `json:"failed_index,omitempty"`
	FailedSeed  int64  `json:"failed_seed,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|dir> [more...]",
		Short: "Run verification scenarios",
		Long: `Run one or more scenario files against the built-in circuit models.

Each scenario runs its repetitions on a fresh simulator. When --db is
given, every run and repetition is persisted for later inspection.

Example:
  bitbench run scenarios/
  bitbench run --db results.db --repeats 100 scenarios/uart_receive.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (optional)")
	cmd.Flags().IntVar(&opts.Repeats, "repeats", 0, "override scenario repetition count")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "override scenario seed")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "record signal traces for every repetition")

	return cmd
}

func runScenarios(opts *RunOptions, args []string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	scenarios, err := collectScenarios(args)
	if err != nil {
		_ = out.Error("E001", "failed to load scenarios", err.Error())
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	var st *store.Store
	if opts.Database != "" {
		if st, err = store.Open(opts.Database); err != nil {
			_ = out.Error("E002", "failed to open database", err.Error())
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	runner, err := bench.NewRunner(slog.Default())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load pinout declarations", err)
	}

	var reports []runReport
	var lines []string
	failures := 0
	for _, sc := range scenarios {
		applyOverrides(opts, cmd, sc)
		res, err := runner.Run(sc)
		if err != nil {
			_ = out.Error("E003", fmt.Sprintf("scenario %s did not run", sc.Name), err.Error())
			return WrapExitError(ExitCommandError, "scenario did not run", err)
		}
		if st != nil {
			if err := st.WriteResult(context.Background(), res); err != nil {
				return WrapExitError(ExitCommandError, "failed to persist run", err)
			}
		}
		rep := reportFor(res)
		reports = append(reports, rep)
		if rep.Passed {
			lines = append(lines, fmt.Sprintf("PASS %s (%d repetitions, %d ns simulated)",
				rep.Scenario, rep.Repetitions, rep.SimTimeNs))
		} else {
			failures++
			lines = append(lines, fmt.Sprintf("FAIL %s: repetition %d (seed %d): %s",
				rep.Scenario, rep.FailedIndex, rep.FailedSeed, rep.Error))
		}
	}

	if err := out.Success(reports, lines...); err != nil {
		return err
	}
	if failures > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", failures, len(scenarios)))
	}
	return nil
}

func applyOverrides(opts *RunOptions, cmd *cobra.Command, sc *bench.Scenario) {
	if cmd.Flags().Changed("repeats") {
		sc.Repeats = opts.Repeats
	}
	if cmd.Flags().Changed("seed") {
		sc.Seed = opts.Seed
	}
	if opts.Trace {
		sc.Trace = true
	}
}

func reportFor(res *bench.Result) runReport {
	rep := runReport{
		RunID:       res.RunID,
		Scenario:    res.Scenario.Name,
		Protocol:    res.Scenario.Protocol,
		Direction:   res.Scenario.Direction,
		Repetitions: len(res.Reps),
		Passed:      res.Passed(),
	}
	for i := range res.Reps {
		rep.SimTimeNs += res.Reps[i].SimTimeNs
	}
	if failed := res.Failed(); failed != nil {
		rep.FailedIndex = failed.Index
		rep.FailedSeed = failed.Seed
		rep.Error = failed.Err.Error()
	}
	return rep
}

// collectScenarios expands the argument list: directories load every
// .yaml file inside, files load as single scenarios.
func collectScenarios(args []string) ([]*bench.Scenario, error) {
	var scenarios []*bench.Scenario
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			dir, err := bench.LoadScenarioDir(arg)
			if err != nil {
				return nil, err
			}
			scenarios = append(scenarios, dir...)
			continue
		}
		sc, err := bench.LoadScenario(arg)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenario files found")
	}
	return scenarios, nil
}
