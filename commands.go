package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lhdiff/config"
	"lhdiff/dataset"
	"lhdiff/engine"
	"lhdiff/input"
	"lhdiff/logger"
	"lhdiff/metrics"
	"lhdiff/optimizer"
	"lhdiff/store"
	"lhdiff/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var errTruthRequired = errors.New("--truth is required")

// matchFlags override the line loading and anchoring settings.
type matchFlags struct {
	window  int
	anchors string
}

func (f *matchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.window, "window", 0, "context window in lines on each side")
	cmd.Flags().StringVar(&f.anchors, "anchors", "", "anchor strategy: blocks or myers")
}

func (f *matchFlags) apply(cmd *cobra.Command, s *config.Settings) error {
	if cmd.Flags().Changed("window") {
		s.Window = f.window
	}
	if cmd.Flags().Changed("anchors") {
		s.AnchorStrategy = f.anchors
	}
	return s.Validate()
}

func sourcePair(args []string) (string, string) {
	if len(args) > 1 {
		return args[0], args[1]
	}
	return args[0], ""
}

func loadEngine(s config.Settings, sourceA, sourceB string) (*engine.Engine, error) {
	old, new, err := input.NewLoader(s.Window).Load(sourceA, sourceB)
	if err != nil {
		return nil, err
	}
	return engine.New(old, new, engine.WithAnchorStrategy(s.Strategy())), nil
}

func openStore(ctx context.Context, path string) (*store.Store, error) {
	if path == "" {
		return nil, nil
	}
	return store.Open(ctx, path)
}

type diffFlags struct {
	matchFlags
	unmapped  bool
	truth     string
	calibrate bool
	storePath string
	emitTruth string
	summary   bool
}

func newDiffCmd(a *app) *cobra.Command {
	f := &diffFlags{}
	cmd := &cobra.Command{
		Use:   "diff <old> [new]",
		Short: "Print the line mapping between two versions",
		Long: `Print one line per old line as "old -> new", 1-based, with -1 for a missing
side. A split line lists every new line it maps to.

With a single argument the file holds both versions: either an .xml document
with <old> and <new> elements or a text file divided by "--- OLD FILE ---"
and "--- NEW FILE ---" lines.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDiff(cmd, f, args)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&f.unmapped, "unmapped", false, "include deletions and additions")
	cmd.Flags().StringVar(&f.truth, "truth", "", "expected mapping (.json or .xml); reports accuracy")
	cmd.Flags().BoolVar(&f.calibrate, "calibrate", false, "search weights and thresholds against --truth first")
	cmd.Flags().StringVar(&f.storePath, "store", "", "calibration database (defaults to store_path)")
	cmd.Flags().StringVar(&f.emitTruth, "emit-truth", "", "write the result as a truth file")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "print how each mapping was produced")
	return cmd
}

func (a *app) runDiff(cmd *cobra.Command, f *diffFlags, args []string) error {
	ctx := cmd.Context()
	s := a.settings
	if err := f.apply(cmd, &s); err != nil {
		return err
	}
	if f.calibrate && f.truth == "" {
		return fmt.Errorf("--calibrate: %w", errTruthRequired)
	}

	sourceA, sourceB := sourcePair(args)
	eng, err := loadEngine(s, sourceA, sourceB)
	if err != nil {
		return err
	}

	var truth types.Truth
	if f.truth != "" {
		if truth, err = input.LoadTruth(f.truth); err != nil {
			return err
		}
	}

	storePath := f.storePath
	if storePath == "" {
		storePath = s.StorePath
	}
	st, err := openStore(ctx, storePath)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	cfg := s.Match
	var result optimizer.Result
	switch {
	case f.calibrate:
		if result, err = optimizer.SearchEngine(ctx, eng, truth, s.SearchOptions()); err != nil {
			return err
		}
		cfg = result.Best
		logger.Info("calibrated %s (%.2f%% over %d evaluations)", cfg, result.Score*100, result.Evaluations)
	case st != nil:
		c, err := st.Latest(ctx, sourceA, sourceB)
		switch {
		case err == nil:
			cfg = c.Config
			logger.Info("using stored calibration %s: %s", c.ID, cfg)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
	}

	mappings := eng.Run(cfg, f.unmapped)

	if f.calibrate && st != nil {
		id, err := st.Save(ctx, store.Calibration{
			OldPath:  sourceA,
			NewPath:  sourceB,
			Config:   cfg,
			Score:    result.Score,
			Mappings: mappings,
		})
		if err != nil {
			return err
		}
		logger.Info("saved calibration %s", id)
	}

	if err := printMappings(cmd.OutOrStdout(), mappings); err != nil {
		return err
	}

	if truth != nil {
		correct, total := optimizer.Count(mappings, truth)
		fmt.Fprintf(cmd.ErrOrStderr(), "accuracy: %.2f%% (%s/%s)\n",
			percent(correct, total), humanize.Comma(int64(correct)), humanize.Comma(int64(total)))
	}
	if f.summary {
		fmt.Fprintln(cmd.ErrOrStderr(), metrics.Summarize(mappings))
	}
	if f.emitTruth != "" {
		return input.WriteTruth(f.emitTruth, input.TruthFromMappings(mappings))
	}
	return nil
}

func printMappings(w io.Writer, mappings []types.Mapping) error {
	for _, m := range mappings {
		targets := make([]string, len(m.New))
		for i, j := range m.New {
			targets[i] = strconv.Itoa(j)
		}
		if _, err := fmt.Fprintf(w, "%d -> %s\n", m.Old, strings.Join(targets, ",")); err != nil {
			return err
		}
	}
	return nil
}

func percent(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

type calibrateFlags struct {
	matchFlags
	truth      string
	storePath  string
	saveConfig string
	seed       int64
}

func newCalibrateCmd(a *app) *cobra.Command {
	f := &calibrateFlags{}
	cmd := &cobra.Command{
		Use:   "calibrate <old> [new] --truth <file>",
		Short: "Search weights and thresholds for one file pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCalibrate(cmd, f, args)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.truth, "truth", "", "expected mapping (.json or .xml)")
	cmd.Flags().StringVar(&f.storePath, "store", "", "save the calibration to this database (defaults to store_path)")
	cmd.Flags().StringVar(&f.saveConfig, "save-config", "", "write the settings with the best weights to this file")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed for the search")
	return cmd
}

func (a *app) runCalibrate(cmd *cobra.Command, f *calibrateFlags, args []string) error {
	ctx := cmd.Context()
	s := a.settings
	if err := f.apply(cmd, &s); err != nil {
		return err
	}
	if f.truth == "" {
		return errTruthRequired
	}
	if cmd.Flags().Changed("seed") {
		s.Search.Seed = f.seed
	}

	sourceA, sourceB := sourcePair(args)
	eng, err := loadEngine(s, sourceA, sourceB)
	if err != nil {
		return err
	}
	truth, err := input.LoadTruth(f.truth)
	if err != nil {
		return err
	}

	result, err := optimizer.SearchEngine(ctx, eng, truth, s.SearchOptions())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printResult(out, result)

	storePath := f.storePath
	if storePath == "" {
		storePath = s.StorePath
	}
	st, err := openStore(ctx, storePath)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
		id, err := st.Save(ctx, store.Calibration{
			OldPath:  sourceA,
			NewPath:  sourceB,
			Config:   result.Best,
			Score:    result.Score,
			Mappings: eng.Run(result.Best, true),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "id: %s\n", id)
	}

	if f.saveConfig != "" {
		s.Match = result.Best
		return config.Save(f.saveConfig, s)
	}
	return nil
}

func printResult(w io.Writer, r optimizer.Result) {
	for i, g := range r.Generations {
		best := 0.0
		for _, sample := range g.Samples {
			best = max(best, sample.Score)
		}
		fmt.Fprintf(w, "generation %d: %d samples, best %.2f%%\n", i+1, len(g.Samples), best*100)
	}
	fmt.Fprintf(w, "best: %s\n", r.Best)
	fmt.Fprintf(w, "score: %.2f%% (%s evaluations)\n", r.Score*100, humanize.Comma(int64(r.Evaluations)))
}

// datasetFlags override how a dataset directory is prepared.
type datasetFlags struct {
	matchFlags
	sample   int
	maxLines int
	seed     int64
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	f.matchFlags.register(cmd)
	cmd.Flags().IntVar(&f.sample, "sample", 0, "use a random subset of this many cases")
	cmd.Flags().IntVar(&f.maxLines, "max-lines", 0, "skip cases whose old file is longer")
	cmd.Flags().Int64Var(&f.seed, "sample-seed", 0, "random seed for --sample")
}

func (f *datasetFlags) apply(cmd *cobra.Command, s *config.Settings) error {
	if cmd.Flags().Changed("sample") {
		s.Dataset.Sample = f.sample
	}
	if cmd.Flags().Changed("max-lines") {
		s.Dataset.MaxLines = f.maxLines
	}
	if cmd.Flags().Changed("sample-seed") {
		s.Dataset.Seed = f.seed
	}
	return f.matchFlags.apply(cmd, s)
}

func prepareDataset(root string, opts dataset.Options) ([]optimizer.Case, error) {
	cases, err := dataset.Discover(root)
	if err != nil {
		return nil, err
	}
	prepared, err := dataset.Prepare(cases, opts)
	if len(prepared) == 0 {
		if err != nil {
			return nil, fmt.Errorf("no usable cases in %s: %w", root, err)
		}
		return nil, fmt.Errorf("no usable cases in %s", root)
	}
	if err != nil {
		logger.Warn("some cases were skipped: %v", err)
	}
	return prepared, nil
}

func newEvalCmd(a *app) *cobra.Command {
	f := &datasetFlags{}
	cmd := &cobra.Command{
		Use:   "eval <dataset>",
		Short: "Measure accuracy over a directory of cases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings
			if err := f.apply(cmd, &s); err != nil {
				return err
			}
			prepared, err := prepareDataset(args[0], s.DatasetOptions())
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), dataset.Evaluate(prepared, s.Match))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func printReport(w io.Writer, r metrics.Report) {
	for _, c := range r.Cases {
		fmt.Fprintf(w, "%-40s %7.2f%%  %s/%s\n", c.Name, c.Accuracy()*100,
			humanize.Comma(int64(c.Correct)), humanize.Comma(int64(c.Total)))
	}
	fmt.Fprintf(w, "overall: %.2f%% (%s/%s lines, %d cases)\n", r.Accuracy()*100,
		humanize.Comma(int64(r.Correct)), humanize.Comma(int64(r.Total)), len(r.Cases))
}

type optimizeFlags struct {
	datasetFlags
	generations int
	samples     int
	topK        int
	seed        int64
	saveConfig  string
}

func newOptimizeCmd(a *app) *cobra.Command {
	f := &optimizeFlags{}
	cmd := &cobra.Command{
		Use:   "optimize <dataset>",
		Short: "Search weights and thresholds over a directory of cases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOptimize(cmd, f, args[0])
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&f.generations, "generations", 0, "number of generations")
	cmd.Flags().IntVar(&f.samples, "samples", 0, "configurations sampled per generation")
	cmd.Flags().IntVar(&f.topK, "top-k", 0, "survivors used to narrow the next generation")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed for the search")
	cmd.Flags().StringVar(&f.saveConfig, "save-config", "", "write the settings with the best weights to this file")
	return cmd
}

func (a *app) runOptimize(cmd *cobra.Command, f *optimizeFlags, root string) error {
	s := a.settings
	if err := f.apply(cmd, &s); err != nil {
		return err
	}
	if cmd.Flags().Changed("generations") {
		s.Search.Generations = f.generations
	}
	if cmd.Flags().Changed("samples") {
		s.Search.Samples = f.samples
	}
	if cmd.Flags().Changed("top-k") {
		s.Search.TopK = f.topK
	}
	if cmd.Flags().Changed("seed") {
		s.Search.Seed = f.seed
	}

	prepared, err := prepareDataset(root, s.DatasetOptions())
	if err != nil {
		return err
	}

	result, err := optimizer.Search(cmd.Context(), prepared, s.SearchOptions())
	if result.Evaluations > 0 {
		printResult(cmd.OutOrStdout(), result)
	}
	if err != nil {
		return err
	}

	if f.saveConfig != "" {
		s.Match = result.Best
		return config.Save(f.saveConfig, s)
	}
	return nil
}
