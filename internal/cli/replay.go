package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sagatest/internal/canon"
	"github.com/roach88/sagatest/internal/harness"
	"github.com/roach88/sagatest/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Filter   string
}

// ReplayScenarioResult holds the replay result for a single scenario.
type ReplayScenarioResult struct {
	Name          string `json:"name"`
	RunID         string `json:"run_id,omitempty"`
	RecordedHash  string `json:"recorded_hash,omitempty"`
	CurrentHash   string `json:"current_hash,omitempty"`
	Recorded      bool   `json:"recorded"`
	Deterministic bool   `json:"deterministic"`
	Error         string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Scenarios        []ReplayScenarioResult `json:"scenarios"`
	Total            int                    `json:"total"`
	AllDeterministic bool                   `json:"all_deterministic"` // false on any changed or failed scenario
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenarios-dir>",
		Short: "Re-run scenarios and compare with recorded traces",
		Long: `Re-run each scenario and compare its trace hash with the latest run
recorded for it by "sagatest test --db".

Scenarios without a recorded run are reported and skipped.

Exit codes:
  0 - Every recorded scenario produced the same trace
  1 - One or more traces changed
  2 - Command error (database not found, etc.)

Examples:
  sagatest replay ./scenarios --db ./history.db
  sagatest replay ./scenarios --db ./history.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Database, "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, scenariosDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	files, err := LoadScenarios(scenariosDir, opts.Filter)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return NewExitError(ExitCommandError, loadErr.Message)
		}
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.Logger(cmd.ErrOrStderr())

	result := ReplayResult{
		Scenarios:        make([]ReplayScenarioResult, 0, len(files)),
		Total:            len(files),
		AllDeterministic: true,
	}

	for _, f := range files {
		r := replayScenario(ctx, st, f, harness.Options{Logger: logger, DefaultTimeout: opts.Config.Timeout})
		if r.Error != "" || (r.Recorded && !r.Deterministic) {
			result.AllDeterministic = false
		}
		formatter.VerboseLog("Replayed %s: recorded=%v deterministic=%v", r.Name, r.Recorded, r.Deterministic)
		result.Scenarios = append(result.Scenarios, r)
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.AllDeterministic {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeTraceChanged, Message: "trace changed since last recorded run"}
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, result)
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "trace changed since last recorded run")
	}
	return nil
}

// replayScenario runs one scenario and compares its trace hash with the
// latest recorded run.
func replayScenario(ctx context.Context, st *store.Store, f ScenarioFile, opts harness.Options) ReplayScenarioResult {
	r := ReplayScenarioResult{Name: f.Name()}
	if f.Err != nil {
		r.Error = fmt.Sprintf("failed to load scenario: %v", f.Err)
		return r
	}

	recorded, err := st.LatestRun(ctx, f.Scenario.Name)
	if errors.Is(err, store.ErrRunNotFound) {
		return r
	}
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Recorded = true
	r.RunID = recorded.ID
	r.RecordedHash = recorded.TraceHash

	result, err := harness.RunWithOptions(ctx, f.Scenario, opts)
	if err != nil {
		r.Error = fmt.Sprintf("execution failed: %v", err)
		return r
	}
	data, err := harness.MarshalTrace(f.Scenario.Name, result)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	r.CurrentHash = canon.Hash(data)
	r.Deterministic = r.CurrentHash == r.RecordedHash
	return r
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) {
	w := formatter.Writer

	for _, r := range result.Scenarios {
		switch {
		case r.Error != "" && !r.Recorded:
			fmt.Fprintf(w, "✗ %s\n  %s\n", r.Name, r.Error)
		case !r.Recorded:
			fmt.Fprintf(w, "- %s (no recorded run)\n", r.Name)
		case r.Deterministic:
			fmt.Fprintf(w, "✓ %s\n", r.Name)
		default:
			fmt.Fprintf(w, "✗ %s\n", r.Name)
			if r.Error != "" {
				fmt.Fprintf(w, "  %s\n", r.Error)
			} else {
				fmt.Fprintf(w, "  recorded %s (run %s)\n", shortHash(r.RecordedHash), r.RunID)
				fmt.Fprintf(w, "  current  %s\n", shortHash(r.CurrentHash))
			}
		}
	}

	fmt.Fprintln(w)
	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All recorded traces reproduced")
	} else {
		fmt.Fprintln(w, "✗ Trace changed since last recorded run")
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
