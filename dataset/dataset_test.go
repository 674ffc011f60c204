package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lhdiff/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCase(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for f, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(content), 0o644))
	}
}

const (
	oldSource = "int a = 1;\nint b = 2;\nreturn a + b;\n"
	newSource = "int a = 1;\nint b = 3;\nreturn a + b;\n"
	truthJSON = `{"mappings": {"1": 1, "2": 2, "3": 3}}`
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeCase(t, root, "b_java_pair", map[string]string{
		"Foo_1.java": oldSource,
		"Foo_2.java": newSource,
		"Foo.xml":    `<F><VERSION NUMBER="2"><LOCATION ORIG="1" NEW="1"/></VERSION></F>`,
	})
	writeCase(t, root, "a_json", map[string]string{
		"old.py":            oldSource,
		"new.py":            newSource,
		"ground_truth.json": truthJSON,
	})
	writeCase(t, root, "c_prefers_java", map[string]string{
		"old.java":          oldSource,
		"old.txt":           oldSource,
		"new.java":          newSource,
		"ground_truth.json": truthJSON,
	})
	writeCase(t, root, "d_no_truth", map[string]string{
		"old.java": oldSource,
		"new.java": newSource,
	})
	writeCase(t, root, "e_no_new", map[string]string{
		"old.java":          oldSource,
		"ground_truth.json": truthJSON,
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644))

	cases, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, cases, 3)

	assert.Equal(t, "a_json", cases[0].Name)
	assert.Equal(t, filepath.Join(root, "a_json", "old.py"), cases[0].OldPath)
	assert.Equal(t, filepath.Join(root, "a_json", "ground_truth.json"), cases[0].TruthPath)

	assert.Equal(t, "b_java_pair", cases[1].Name)
	assert.Equal(t, filepath.Join(root, "b_java_pair", "Foo_1.java"), cases[1].OldPath)
	assert.Equal(t, filepath.Join(root, "b_java_pair", "Foo_2.java"), cases[1].NewPath)
	assert.Equal(t, filepath.Join(root, "b_java_pair", "Foo.xml"), cases[1].TruthPath)

	assert.Equal(t, filepath.Join(root, "c_prefers_java", "old.java"), cases[2].OldPath)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPrepareAndEvaluate(t *testing.T) {
	root := t.TempDir()
	writeCase(t, root, "one", map[string]string{
		"old.java":          oldSource,
		"new.java":          newSource,
		"ground_truth.json": truthJSON,
	})
	writeCase(t, root, "two", map[string]string{
		"old.java":          "x = 1;\n",
		"new.java":          "x = 1;\n",
		"ground_truth.json": `{"mappings": {"1": 1}}`,
	})

	cases, err := Discover(root)
	require.NoError(t, err)

	prepared, err := Prepare(cases, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, prepared, 2)
	assert.Equal(t, "one", prepared[0].Name)

	report := Evaluate(prepared, types.DefaultConfig())
	require.Len(t, report.Cases, 2)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 4, report.Correct)
	assert.Equal(t, 1.0, report.Accuracy())
}

func TestPrepare_SkipsLargeAndEmptyCases(t *testing.T) {
	root := t.TempDir()
	writeCase(t, root, "big", map[string]string{
		"old.java":          strings.Repeat("x;\n", 11),
		"new.java":          "x;\n",
		"ground_truth.json": truthJSON,
	})
	writeCase(t, root, "empty_truth", map[string]string{
		"old.java":          oldSource,
		"new.java":          newSource,
		"ground_truth.json": `{"mappings": {}}`,
	})
	writeCase(t, root, "ok", map[string]string{
		"old.java":          oldSource,
		"new.java":          newSource,
		"ground_truth.json": truthJSON,
	})

	cases, err := Discover(root)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.MaxLines = 10
	prepared, err := Prepare(cases, opts)
	require.NoError(t, err)
	require.Len(t, prepared, 1)
	assert.Equal(t, "ok", prepared[0].Name)

	opts.MaxLines = 0
	prepared, err = Prepare(cases, opts)
	require.NoError(t, err)
	assert.Len(t, prepared, 2)
}

func TestPrepare_JoinsCaseErrors(t *testing.T) {
	root := t.TempDir()
	writeCase(t, root, "bad", map[string]string{
		"old.java":          oldSource,
		"new.java":          newSource,
		"ground_truth.json": `{"mappings": `,
	})
	writeCase(t, root, "good", map[string]string{
		"old.java":          oldSource,
		"new.java":          newSource,
		"ground_truth.json": truthJSON,
	})

	cases, err := Discover(root)
	require.NoError(t, err)

	prepared, err := Prepare(cases, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	require.Len(t, prepared, 1)
	assert.Equal(t, "good", prepared[0].Name)
}

func TestSample(t *testing.T) {
	cases := make([]Case, 10)
	for i := range cases {
		cases[i] = Case{Name: string(rune('a' + i))}
	}

	assert.Equal(t, cases, sample(cases, 0, 7))
	assert.Equal(t, cases, sample(cases, 20, 7))

	got := sample(cases, 4, 7)
	require.Len(t, got, 4)
	assert.Equal(t, got, sample(cases, 4, 7), "same seed, same subset")
	for i := 1; i < len(got); i++ {
		assert.Less(t, got[i-1].Name, got[i].Name, "original order is kept")
	}
}

func TestCountLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc"), 0o644))

	n, err := countLines(path, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = countLines(path, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
