package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sagatest/internal/harness"
	"github.com/roach88/sagatest/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update   bool          // regenerate golden files
	Filter   string        // scenario filter (glob pattern)
	Database string        // run history database (optional)
	Timeout  time.Duration // default saga timeout
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name    string   `json:"name"`
	File    string   `json:"file"`
	Pass    bool     `json:"pass"`
	Stopped bool     `json:"stopped,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	RunID   string   `json:"run_id,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run saga scenarios",
		Long: `Run every scenario file in a directory.

Each scenario runs its scripted saga against a fresh store and checks its
expectations in order, stopping at the first unmet one. When a golden file
exists next to the scenario (golden/<file>.golden) the canonical trace must
match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  sagatest test ./scenarios
  sagatest test ./scenarios --filter "dog_*"
  sagatest test ./scenarios --update
  sagatest test ./scenarios --db ./history.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.Config.Database, "record runs in this SQLite database")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", rootOpts.Config.Timeout, "saga timeout for scenarios without one")

	return cmd
}

func runTests(ctx context.Context, opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	files, err := LoadScenarios(scenariosDir, opts.Filter)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return NewExitError(ExitCommandError, loadErr.Message)
		}
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(formatter, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	logger := opts.Logger(cmd.ErrOrStderr())

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}

	for _, file := range files {
		formatter.VerboseLog("Running %s", file.Path)

		scenResult := runScenario(ctx, file, opts, logger, st)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}

		if opts.Format != "json" {
			printScenarioResult(formatter.Writer, scenResult, opts.Update)
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// runScenario executes a single scenario and returns the result.
func runScenario(ctx context.Context, file ScenarioFile, opts *TestOptions, logger *slog.Logger, st *store.Store) ScenarioResult {
	res := ScenarioResult{Name: file.Name(), File: file.Path}

	if file.Err != nil {
		res.Errors = []string{fmt.Sprintf("failed to load scenario: %v", file.Err)}
		return res
	}
	scenario := file.Scenario

	result, err := harness.RunWithOptions(ctx, scenario, harness.Options{
		Logger:         logger,
		DefaultTimeout: opts.Timeout,
	})
	if err != nil {
		res.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return res
	}

	res.Stopped = result.Stopped
	errs := append([]string{}, result.Errors...)

	if err := checkGolden(scenario, result, file.Path, opts.Update); err != nil {
		errs = append(errs, err.Error())
	}

	if st != nil {
		runID, err := recordRun(ctx, st, scenario.Name, result, errs)
		if err != nil {
			errs = append(errs, fmt.Sprintf("failed to record run: %v", err))
		}
		res.RunID = runID
	}

	res.Pass = len(errs) == 0
	if !res.Pass {
		res.Errors = errs
	}
	return res
}

// checkGolden compares the trace against the scenario's golden file, or
// rewrites it when update is set. A missing golden file is not an error.
func checkGolden(scenario *harness.Scenario, result *harness.Result, scenarioFile string, update bool) error {
	current, err := harness.MarshalTrace(scenario.Name, result)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}

	goldenPath := goldenFilePath(scenarioFile)

	if update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(goldenPath, current, 0o644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}

	if !bytes.Equal(golden, current) {
		return fmt.Errorf("trace does not match golden file (run with --update to regenerate)")
	}
	return nil
}

func recordRun(ctx context.Context, st *store.Store, name string, result *harness.Result, errs []string) (string, error) {
	run, err := store.NewRun(harness.Snapshot(name, result), errs)
	if err != nil {
		return "", err
	}
	written, err := st.WriteRun(ctx, run)
	if err != nil {
		return "", err
	}
	return written.ID, nil
}

func printScenarioResult(w io.Writer, r ScenarioResult, updated bool) {
	if r.Pass {
		suffix := ""
		if updated {
			suffix = " (golden updated)"
		}
		fmt.Fprintf(w, "✓ %s%s\n", r.Name, suffix)
		return
	}

	fmt.Fprintf(w, "✗ %s\n", r.Name)
	for _, e := range r.Errors {
		for _, line := range strings.Split(e, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if err := formatter.JSON(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
