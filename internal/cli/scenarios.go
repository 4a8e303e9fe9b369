package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/sagatest/internal/harness"
)

// LoadError represents an error that occurred while locating scenarios.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ScenarioFile is one scenario file and the outcome of parsing it.
type ScenarioFile struct {
	Path     string
	Scenario *harness.Scenario
	Err      error
}

// Name returns the scenario name, or the file's base name if it did not
// parse.
func (f ScenarioFile) Name() string {
	if f.Scenario != nil {
		return f.Scenario.Name
	}
	return filepath.Base(f.Path)
}

// LoadScenarios parses every scenario under dir whose file name matches
// filter. Parse failures are kept per file; a *LoadError is returned only
// when dir itself cannot be used.
func LoadScenarios(dir, filter string) ([]ScenarioFile, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenarios directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scenarios directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	paths, err := FindScenarioFiles(dir, filter)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}

	files := make([]ScenarioFile, 0, len(paths))
	for _, path := range paths {
		scenario, err := harness.LoadScenario(path)
		files = append(files, ScenarioFile{Path: path, Scenario: scenario, Err: err})
	}
	return files, nil
}

// FindScenarioFiles finds all YAML scenario files in a directory. Files
// under golden/ directories are skipped.
func FindScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != dir && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		// Only process .yaml and .yml files
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		// Apply filter if specified
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}
