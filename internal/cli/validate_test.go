package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Valid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "birthday.yaml", passingScenario)
	writeFile(t, dir, "wrong_return.yaml", failingScenario)

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 2 scenario(s) valid")
}

func TestValidateCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "birthday.yaml", passingScenario)
	writeFile(t, dir, "broken.yaml", "name: broken\ndescription: d\nsaga: [{put: A}]\nexpect: [{returns: 1}]\n")

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "broken.yaml")
	assert.Contains(t, out, "put must be a mapping")
}

func TestValidateCommand_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\n")

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Scenarios)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, ErrCodeInvalid, resp.Data.Errors[0].Code)
	assert.Contains(t, resp.Data.Errors[0].Message, "description is required")
}

func TestValidateCommand_NoFiles(t *testing.T) {
	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNoFiles+"]")
}

func TestValidateCommand_MissingDir(t *testing.T) {
	_, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}
