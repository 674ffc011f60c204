package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"lhdiff/engine"
	"lhdiff/input"
	"lhdiff/logger"
	"lhdiff/metrics"
	"lhdiff/optimizer"
	"lhdiff/text"
	"lhdiff/types"
)

const TruthJSON = "ground_truth.json"

// Case is one directory of a dataset: an old and new version of a file plus
// the expected mapping between them.
type Case struct {
	Name      string
	Dir       string
	OldPath   string
	NewPath   string
	TruthPath string
}

type Options struct {
	Window   int
	MaxLines int // cases whose old file has more lines are skipped; 0 means no limit
	Sample   int // evaluate a random subset of this many cases; 0 means all
	Seed     int64
	Strategy engine.AnchorStrategy
}

func DefaultOptions() Options {
	return Options{
		Window:   text.DefaultWindow,
		MaxLines: 2000,
	}
}

// Discover scans the immediate subdirectories of root in name order.
// Directories without an old file, a new file and a truth file are skipped.
func Discover(root string) ([]Case, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", root, err)
	}

	var cases []Case
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		c, ok, err := discoverCase(dir)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Debug("dataset: skipping %s: incomplete case", entry.Name())
			continue
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func discoverCase(dir string) (Case, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Case{}, false, fmt.Errorf("read case %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}

	oldName := firstMatch(files, func(f string) bool { return strings.Contains(f, "_1.java") })
	newName := firstMatch(files, func(f string) bool { return strings.Contains(f, "_2.java") })
	xmlName := firstMatch(files, func(f string) bool { return strings.Contains(f, ".xml") })

	if oldName == "" || newName == "" {
		oldName = versionFile(files, "old")
		newName = versionFile(files, "new")
	}

	truthName := firstMatch(files, func(f string) bool { return strings.Contains(f, TruthJSON) })
	if truthName == "" {
		truthName = xmlName
	}

	if oldName == "" || newName == "" || truthName == "" {
		return Case{}, false, nil
	}
	return Case{
		Name:      filepath.Base(dir),
		Dir:       dir,
		OldPath:   filepath.Join(dir, oldName),
		NewPath:   filepath.Join(dir, newName),
		TruthPath: filepath.Join(dir, truthName),
	}, true, nil
}

// versionFile prefers <prefix>.java, then any <prefix>.* file.
func versionFile(files []string, prefix string) string {
	if slices.Contains(files, prefix+".java") {
		return prefix + ".java"
	}
	return firstMatch(files, func(f string) bool { return strings.HasPrefix(f, prefix+".") })
}

func firstMatch(files []string, pred func(string) bool) string {
	for _, f := range files {
		if pred(f) {
			return f
		}
	}
	return ""
}

// Prepare loads every case and builds its engine. Cases that are too large
// or have an empty truth are skipped. Cases that fail to load are skipped
// too; their errors are joined into the returned error.
func Prepare(cases []Case, opts Options) ([]optimizer.Case, error) {
	defer logger.Trace(fmt.Sprintf("dataset.Prepare(%d cases)", len(cases)))()

	selected := sample(cases, opts.Sample, opts.Seed)
	loader := input.NewLoader(opts.Window)

	var prepared []optimizer.Case
	var errs []error
	for _, c := range selected {
		if opts.MaxLines > 0 {
			n, err := countLines(c.OldPath, opts.MaxLines)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
				continue
			}
			if n > opts.MaxLines {
				logger.Warn("dataset: skipping %s: more than %d lines", c.Name, opts.MaxLines)
				continue
			}
		}

		truth, err := input.LoadTruth(c.TruthPath)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		if len(truth) == 0 {
			logger.Warn("dataset: skipping %s: empty truth", c.Name)
			continue
		}

		old, new, err := loader.Load(c.OldPath, c.NewPath)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}

		prepared = append(prepared, optimizer.Case{
			Name:   c.Name,
			Runner: engine.New(old, new, engine.WithAnchorStrategy(opts.Strategy)),
			Truth:  truth,
		})
	}

	logger.Info("dataset: prepared %d of %d cases", len(prepared), len(selected))
	return prepared, errors.Join(errs...)
}

// Evaluate runs every case with cfg and tallies the predictions.
func Evaluate(cases []optimizer.Case, cfg types.Config) metrics.Report {
	tracker := metrics.NewTracker()
	for _, c := range cases {
		correct, total := optimizer.Count(c.Runner.Run(cfg, false), c.Truth)
		tracker.Track(c.Name, correct, total)
	}
	return tracker.Report()
}

// sample returns n cases chosen with a seeded shuffle, kept in their
// original order. n <= 0 or n >= len(cases) returns all cases.
func sample(cases []Case, n int, seed int64) []Case {
	if n <= 0 || n >= len(cases) {
		return cases
	}
	if seed == 0 {
		seed = 1
	}
	idx := rand.New(rand.NewSource(seed)).Perm(len(cases))[:n]
	slices.Sort(idx)

	out := make([]Case, n)
	for i, k := range idx {
		out[i] = cases[k]
	}
	return out
}

// countLines counts lines of path, stopping once limit is exceeded.
func countLines(path string, limit int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		if n > limit {
			break
		}
	}
	return n, scanner.Err()
}
