package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: birthday
description: "Puts a birthday and ages the dog"
initial_state: { name: Tucker, age: 11 }
reducer:
  - on: HAVE_BIRTHDAY
    op: increment
    path: age
saga:
  - put: { type: HAVE_BIRTHDAY }
expect:
  - put: { type: HAVE_BIRTHDAY }
  - final_state: { name: Tucker, age: 12 }
`

const failingScenario = `
name: wrong_return
description: "Returns 43 instead of 42"
saga:
  - returns: 43
expect:
  - returns: 42
`

// writeFile writes content to dir/name, creating dir.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
