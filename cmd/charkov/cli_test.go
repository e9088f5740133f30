package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/charkov/pkg/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fishText = "one fish two fish. red fish blue fish."

func TestGenerate_FromFile(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "abc.txt", "abcabcabc")

	out := env.mustRun(t, "", "generate", "--file", path, "--window", "2", "--length", "4", "ab")
	assert.Equal(t, "abcabc\n", out)

	out = env.mustRun(t, "", "generate", "--file", path, "-w", "2", "-n", "6", "--total", "ab")
	assert.Equal(t, "abcabc\n", out)
}

func TestGenerate_FromStdin(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "abcabcabc", "generate", "--file", "-", "-w", "1", "-n", "3", "c")
	assert.Equal(t, "cabc\n", out)
}

func TestGenerate_SeedUnchanged(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "abc.txt", "abcabcabc")

	out := env.mustRun(t, "", "generate", "--file", path, "-w", "3", "-n", "10", "ab")
	assert.Equal(t, "ab\n", out, "seed shorter than the window")

	out = env.mustRun(t, "", "generate", "--file", path, "-w", "2", "-n", "10", "xy")
	assert.Equal(t, "xy\n", out, "unseen context")
}

func TestGenerate_SeedIsReproducible(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, fishText, "corpus", "add", "fish")

	args := []string{"generate", "--corpus", "fish", "-w", "2", "-n", "60", "--seed", "7", "fish"}
	first := env.mustRun(t, "", args...)
	second := env.mustRun(t, "", args...)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "fish"))
}

func TestGenerate_Errors(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "short.txt", "ab")

	_, err := env.run(t, "", "generate", "seed")
	assert.ErrorIs(t, err, errSourceRequired)

	_, err = env.run(t, "", "generate", "--file", path, "--corpus", "x", "seed")
	assert.ErrorIs(t, err, errSourceRequired)

	_, err = env.run(t, "", "generate", "--file", path, "-w", "3", "ab")
	assert.ErrorContains(t, err, "corpus shorter than window length")

	_, err = env.run(t, "", "generate", "--file", path, "-w", "0", "ab")
	assert.Error(t, err)

	_, err = env.run(t, "", "generate", "--file", path, "-w", "9223372036854775807", "ab")
	assert.ErrorContains(t, err, "exceeds max_window_length")

	_, err = env.run(t, "", "dump", "--file", path, "-w", "257")
	assert.ErrorContains(t, err, "exceeds max_window_length")

	_, err = env.run(t, "", "generate", "--corpus", "missing", "-w", "1", "ab")
	assert.ErrorIs(t, err, corpus.ErrCorpusNotFound)

	_, err = env.run(t, "", "generate", "--file", path, "-w", "1", "--record", "a")
	assert.ErrorContains(t, err, "--record requires --corpus")
}

func TestGenerate_OutAndWrap(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "abc.txt", "abcabcabc")
	outPath := filepath.Join(env.dir, "out", "result.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(outPath), 0o755))

	out := env.mustRun(t, "", "generate", "--file", path, "-w", "1", "-n", "5", "--wrap", "4", "--out", outPath, "a")
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "abca\nbc\n", string(data))
}

func TestGenerate_UsesConfigDefaults(t *testing.T) {
	env := newTestEnv(t)
	config := `{"generate_config": {"window_length": 1, "length": 2}}`
	require.NoError(t, os.WriteFile(env.configPath, []byte(config), 0o644))
	path := env.writeFile(t, "abc.txt", "abcabcabc")

	out := env.mustRun(t, "", "generate", "--file", path, "a")
	assert.Equal(t, "abc\n", out)

	out = env.mustRun(t, "", "generate", "--file", path, "-n", "4", "a")
	assert.Equal(t, "abcab\n", out, "flags override the config file")
}

func TestCorpusCommands(t *testing.T) {
	env := newTestEnv(t)
	textPath := env.writeFile(t, "fish.txt", fishText)

	out := env.mustRun(t, "", "corpus", "add", "fish", textPath)
	assert.Contains(t, out, `stored corpus "fish": 38 characters`)
	env.mustRun(t, "abcabc", "corpus", "add", "abc")

	out = env.mustRun(t, "", "corpus", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "abc "))
	assert.True(t, strings.HasPrefix(lines[2], "fish "))

	out = env.mustRun(t, "", "corpus", "rm", "abc")
	assert.Contains(t, out, `removed corpus "abc"`)
	_, err := env.run(t, "", "corpus", "rm", "abc")
	assert.ErrorIs(t, err, corpus.ErrCorpusNotFound)

	out = env.mustRun(t, "", "corpus", "list")
	assert.NotContains(t, out, "abc")
}

func TestCorpusExportImport(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, fishText, "corpus", "add", "fish")
	env.mustRun(t, "", "generate", "--corpus", "fish", "-w", "3", "-n", "10", "--seed", "1", "--record", "one")

	exportPath := filepath.Join(env.dir, "fish.json")
	env.mustRun(t, "", "corpus", "export", "fish", exportPath)

	var exported corpus.ExportedCorpus
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, "fish", exported.Name)
	assert.Equal(t, fishText, exported.Text)
	require.Len(t, exported.Runs, 1)

	other := newTestEnv(t)
	out := other.mustRun(t, "", "corpus", "import", exportPath)
	assert.Contains(t, out, `imported corpus "fish": 38 characters`)

	out = other.mustRun(t, "", "runs", "--corpus", "fish")
	assert.Contains(t, out, exported.Runs[0].ID[:8])
}

func TestRunsAndStats(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "", "runs")
	assert.Equal(t, "no runs recorded\n", out)

	env.mustRun(t, fishText, "corpus", "add", "fish")
	env.mustRun(t, "", "generate", "--corpus", "fish", "-w", "2", "-n", "5", "--seed", "3", "--record", "fi")
	env.mustRun(t, "", "generate", "--corpus", "fish", "-w", "2", "-n", "5", "--record", "fi")

	out = env.mustRun(t, "", "runs", "--limit", "1")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "fish")
	assert.Contains(t, lines[1], " - ", "newest run has no seed")

	out = env.mustRun(t, "", "stats")
	assert.Regexp(t, `corpora\s+1\n`, out)
	assert.Regexp(t, `characters\s+38\n`, out)
	assert.Regexp(t, `runs\s+2\n`, out)
}

func TestDump(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "abca.txt", "abca")

	out := env.mustRun(t, "", "dump", "--file", path, "-w", "1")
	want := "a : (('b' 1 1 1))\n" +
		"b : (('c' 1 1 1))\n" +
		"c : (('a' 1 1 1))\n"
	assert.Equal(t, want, out)

	out = env.mustRun(t, "", "dump", "--file", path, "-w", "1", "--stats")
	assert.Regexp(t, `contexts\s+3\n`, out)
	assert.Regexp(t, `transitions\s+3\n`, out)
}

func TestConfigCommand(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "", "config")

	var config Config
	require.NoError(t, json.Unmarshal([]byte(out), &config))
	assert.Equal(t, env.dbPath, config.Server.DatabasePath, "--db overrides the file")

	out = env.mustRun(t, "", "config", "--toml")
	assert.Contains(t, out, "[generate_config]")
}
