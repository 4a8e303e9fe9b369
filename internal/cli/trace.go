package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sagatest/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Scenario string // optional - latest run of this scenario
	Kind     string // optional - filter effects to one kind
	List     bool   // list runs instead of showing one
}

// RunView is a run as shown by the CLI.
type RunView struct {
	ID        string   `json:"id"`
	Seq       int64    `json:"seq"`
	Scenario  string   `json:"scenario"`
	Pass      bool     `json:"pass"`
	Stopped   bool     `json:"stopped"`
	Errors    []string `json:"errors,omitempty"`
	TraceHash string   `json:"trace_hash"`
}

// EffectView is one recorded effect as shown by the CLI.
type EffectView struct {
	Seq    int64           `json:"seq"`
	Kind   string          `json:"kind"`
	Effect json.RawMessage `json:"effect"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	TotalEffects int            `json:"total_effects"`
	ByKind       map[string]int `json:"by_kind"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run     RunView      `json:"run"`
	Effects []EffectView `json:"effects"`
	Stats   TraceStats   `json:"stats"`
}

// RunListResult holds the output of trace --list.
type RunListResult struct {
	Runs []RunView `json:"runs"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs",
		Long: `Show a run recorded by "sagatest test --db".

Without --run, shows the latest run (of --scenario, if given). The output
includes the run status, its first failure, its trace hash and every effect
the saga yielded, in order.

Examples:
  sagatest trace --db ./history.db
  sagatest trace --db ./history.db --scenario dog_birthday
  sagatest trace --db ./history.db --run 01920000-0000-7000-8000-000000000000 --kind put
  sagatest trace --db ./history.db --list --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Database, "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "show or list runs of this scenario only")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter effects to one kind (put|select|call|take)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list runs")

	return cmd
}

// openHistory opens an existing run history database.
func openHistory(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "database path required (--db or SAGATEST_DB)")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.List {
		runs, err := st.ListRuns(ctx, opts.Scenario)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return outputRunList(formatter, runs)
	}

	var run store.Run
	if opts.RunID != "" {
		run, err = st.GetRun(ctx, opts.RunID)
	} else {
		run, err = st.LatestRun(ctx, opts.Scenario)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeRunNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no matching run", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result := buildTraceResult(run, opts.Kind)

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

// buildTraceResult converts a stored run into its CLI view. Stats always
// count every effect; kindFilter only narrows the listed effects.
func buildTraceResult(run store.Run, kindFilter string) TraceResult {
	result := TraceResult{
		Run:     toRunView(run),
		Effects: []EffectView{},
		Stats: TraceStats{
			TotalEffects: len(run.Effects),
			ByKind:       map[string]int{},
		},
	}

	for _, e := range run.Effects {
		result.Stats.ByKind[e.Kind]++
		if kindFilter != "" && e.Kind != kindFilter {
			continue
		}
		result.Effects = append(result.Effects, EffectView{
			Seq:    e.Seq,
			Kind:   e.Kind,
			Effect: json.RawMessage(e.JSON),
		})
	}
	return result
}

func toRunView(run store.Run) RunView {
	return RunView{
		ID:        run.ID,
		Seq:       run.Seq,
		Scenario:  run.Scenario,
		Pass:      run.Pass,
		Stopped:   run.Stopped,
		Errors:    run.Errors,
		TraceHash: run.TraceHash,
	}
}

func outputRunList(formatter *OutputFormatter, runs []store.Run) error {
	views := make([]RunView, 0, len(runs))
	for _, r := range runs {
		views = append(views, toRunView(r))
	}

	if formatter.Format == "json" {
		return formatter.Success(RunListResult{Runs: views})
	}

	w := formatter.Writer
	if len(views) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, v := range views {
		fmt.Fprintf(w, "#%-4d %s  %s  %s\n", v.Seq, v.ID, passStatus(v.Pass), v.Scenario)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(formatter *OutputFormatter, result TraceResult) error {
	w := formatter.Writer
	run := result.Run

	fmt.Fprintf(w, "Run: %s (#%d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "Scenario: %s\n", run.Scenario)
	status := passStatus(run.Pass)
	if run.Stopped {
		status += " (stopped)"
	}
	fmt.Fprintf(w, "Status: %s\n", status)
	fmt.Fprintf(w, "Trace hash: %s\n", run.TraceHash)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Effects:")
	if len(result.Effects) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, e := range result.Effects {
		fmt.Fprintf(w, "  [%d] %-6s %s\n", e.Seq, e.Kind, e.Effect)
	}

	if len(run.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Errors:")
		for _, e := range run.Errors {
			for _, line := range strings.Split(e, "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	formatter.VerboseLog("Stats: %d effect(s) %v", result.Stats.TotalEffects, result.Stats.ByKind)
	return nil
}

func passStatus(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}
