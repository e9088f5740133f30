package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is an isolated config file and database for CLI tests.
type testEnv struct {
	dir        string
	configPath string
	dbPath     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, "config.json"),
		dbPath:     filepath.Join(dir, "data", "charkov.db"),
	}
}

// run executes the CLI with stdin as standard input and returns what it
// wrote to stdout.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", e.configPath, "--db", e.dbPath}, args...)
	err := run(t.Context(), full, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func (e *testEnv) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := e.run(t, stdin, args...)
	require.NoError(t, err, "charkov %s", strings.Join(args, " "))
	return out
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
