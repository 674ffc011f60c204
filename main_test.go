package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lhdiff/config"
	"lhdiff/input"
	"lhdiff/logger"
	"lhdiff/store"
	"lhdiff/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the command line with args and returns what it wrote to
// stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvVar, "")

	a := &app{}
	root := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	a.close()
	t.Cleanup(logger.Reset)
	return stdout.String(), stderr.String(), err
}

const (
	oldSource = "int a = 1;\nint b = 2;\nreturn a + b;\n"
	newSource = "int a = 1;\nint b = 3;\nreturn a + b;\n"
	truthJSON = `{"mappings": {"1": 1, "2": 2, "3": 3}}`
)

func TestDiff_FilePair(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.c", "foo();\n")
	newPath := writeFile(t, dir, "new.c", "foo();\nbar();\n")

	stdout, _, err := execute(t, "diff", oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, "1 -> 1\n", stdout)

	stdout, _, err = execute(t, "diff", "--unmapped", oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, "1 -> 1\n-1 -> 2\n", stdout)
}

func TestDiff_CombinedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pair.txt",
		input.DelimiterOld+"\nfoo();\n"+input.DelimiterNew+"\nfoo();\nbar();\n")

	stdout, _, err := execute(t, "diff", "--unmapped", path)
	require.NoError(t, err)
	assert.Equal(t, "1 -> 1\n-1 -> 2\n", stdout)
}

func TestDiff_TruthAndSummary(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.java", oldSource)
	newPath := writeFile(t, dir, "new.java", newSource)
	truthPath := writeFile(t, dir, "ground_truth.json", truthJSON)

	stdout, stderr, err := execute(t, "--log-level", "error", "diff", "--truth", truthPath, "--summary", oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, "1 -> 1\n2 -> 2\n3 -> 3\n", stdout)
	assert.Contains(t, stderr, "accuracy: 100.00% (3/3)")
	assert.Contains(t, stderr, "anchors=")
}

func TestDiff_EmitTruth(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.java", oldSource)
	newPath := writeFile(t, dir, "new.java", newSource)
	out := filepath.Join(dir, "emitted.json")

	_, _, err := execute(t, "diff", "--emit-truth", out, oldPath, newPath)
	require.NoError(t, err)

	truth, err := input.LoadTruth(out)
	require.NoError(t, err)
	assert.Equal(t, types.Truth{1: 1, 2: 2, 3: 3}, truth)
}

func TestDiff_Errors(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.java", oldSource)
	newPath := writeFile(t, dir, "new.java", newSource)

	_, _, err := execute(t, "diff", "--calibrate", oldPath, newPath)
	assert.ErrorIs(t, err, errTruthRequired)

	_, _, err = execute(t, "diff", "--anchors", "patience", oldPath, newPath)
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, _, err = execute(t, "diff", filepath.Join(dir, "missing.java"), newPath)
	assert.Error(t, err)

	_, _, err = execute(t, "diff")
	assert.Error(t, err)
}

func TestCalibrate_SavesToStore(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.java", oldSource)
	newPath := writeFile(t, dir, "new.java", newSource)
	truthPath := writeFile(t, dir, "ground_truth.json", truthJSON)
	dbPath := filepath.Join(dir, "lhdiff.db")
	cfgPath := filepath.Join(dir, "best.yaml")

	stdout, _, err := execute(t, "calibrate", "--truth", truthPath, "--store", dbPath,
		"--save-config", cfgPath, "--seed", "3", oldPath, newPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "generation 1:")
	assert.Contains(t, stdout, "score: 100.00%")
	assert.Contains(t, stdout, "id: ")

	st, err := store.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer st.Close()
	c, err := st.Latest(context.Background(), oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Score)
	assert.NotEmpty(t, c.Mappings)

	saved, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, c.Config, saved.Match)

	stdout, _, err = execute(t, "diff", "--store", dbPath, oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, "1 -> 1\n2 -> 2\n3 -> 3\n", stdout)
}

func TestCalibrate_RequiresTruth(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.java", oldSource)
	newPath := writeFile(t, dir, "new.java", newSource)

	_, _, err := execute(t, "calibrate", oldPath, newPath)
	assert.ErrorIs(t, err, errTruthRequired)
}

func writeDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "one/old.java", oldSource)
	writeFile(t, root, "one/new.java", newSource)
	writeFile(t, root, "one/ground_truth.json", truthJSON)
	writeFile(t, root, "two/old.java", "x = 1;\n")
	writeFile(t, root, "two/new.java", "x = 1;\n")
	writeFile(t, root, "two/ground_truth.json", `{"mappings": {"1": 1}}`)
	return root
}

func TestEval(t *testing.T) {
	stdout, _, err := execute(t, "eval", writeDataset(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "one "))
	assert.Contains(t, lines[0], "100.00%  3/3")
	assert.True(t, strings.HasPrefix(lines[1], "two "))
	assert.Equal(t, "overall: 100.00% (4/4 lines, 2 cases)", lines[2])
}

func TestEval_EmptyDataset(t *testing.T) {
	_, _, err := execute(t, "eval", t.TempDir())
	assert.ErrorContains(t, err, "no usable cases")
}

func TestOptimize(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "best.toml")

	stdout, _, err := execute(t, "optimize", "--generations", "2", "--samples", "4", "--top-k", "2",
		"--save-config", cfgPath, writeDataset(t))
	require.NoError(t, err)
	assert.Contains(t, stdout, "generation 1: 4 samples")
	assert.Contains(t, stdout, "generation 2: 4 samples")
	assert.Contains(t, stdout, "score: 100.00% (8 evaluations)")

	saved, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.NoError(t, saved.Validate())
	assert.Equal(t, 2, saved.Search.Generations)
}

func TestRoot_ConfigFileAndLogFile(t *testing.T) {
	dir := t.TempDir()
	oldPath := writeFile(t, dir, "old.java", oldSource)
	newPath := writeFile(t, dir, "new.java", newSource)
	cfgPath := writeFile(t, dir, "lhdiff.yaml", "anchor_strategy: myers\nlog_level: debug\n")
	logPath := filepath.Join(dir, "lhdiff.log")

	stdout, stderr, err := execute(t, "--config", cfgPath, "--log-file", logPath, "diff", oldPath, newPath)
	require.NoError(t, err)
	assert.Equal(t, "1 -> 1\n2 -> 2\n3 -> 3\n", stdout)
	assert.Empty(t, stderr)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "myers")
}

func TestRoot_BadConfig(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "lhdiff.yaml", "window: -3\n")

	_, _, err := execute(t, "--config", cfgPath, "eval", t.TempDir())
	assert.ErrorIs(t, err, config.ErrInvalid)
}
