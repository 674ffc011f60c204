package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"lhdiff/logger"
	"lhdiff/types"
)

var (
	ErrNoCases    = errors.New("optimizer: no cases")
	ErrEmptyTruth = errors.New("optimizer: ground truth is empty")
	ErrBadOptions = errors.New("optimizer: invalid options")
)

// Runner produces a mapping result for a configuration. *engine.Engine
// satisfies it.
type Runner interface {
	Run(cfg types.Config, includeUnmapped bool) []types.Mapping
}

// Case pairs one prepared engine with its expected mapping.
type Case struct {
	Name   string
	Runner Runner
	Truth  types.Truth
}

type Range struct {
	Min float64 `json:"min" yaml:"min" toml:"min"`
	Max float64 `json:"max" yaml:"max" toml:"max"`
}

// Ranges bounds the sampled parameters. The context weight is always derived
// as 1 - content weight.
type Ranges struct {
	ContentWeight  Range `json:"content_weight" yaml:"content_weight" toml:"content_weight"`
	Pass1Threshold Range `json:"pass1_threshold" yaml:"pass1_threshold" toml:"pass1_threshold"`
	Pass2Threshold Range `json:"pass2_threshold" yaml:"pass2_threshold" toml:"pass2_threshold"`
}

func DefaultRanges() Ranges {
	return Ranges{
		ContentWeight:  Range{Min: 0.4, Max: 0.9},
		Pass1Threshold: Range{Min: 0.5, Max: 0.9},
		Pass2Threshold: Range{Min: 0.3, Max: 0.6},
	}
}

type Options struct {
	Generations          int
	SamplesPerGeneration int
	TopK                 int
	Ranges               Ranges
	Seed                 int64   // 0 selects a fixed default seed
	Padding              float64 // fraction of the top-K spread added on each side when narrowing
	MinPadding           float64 // padding used when all top-K values are equal
	Precision            int     // decimal places sampled values are rounded to
}

func DefaultOptions() Options {
	return Options{
		Generations:          3,
		SamplesPerGeneration: 10,
		TopK:                 3,
		Ranges:               DefaultRanges(),
		Padding:              0.2,
		MinPadding:           0.05,
		Precision:            2,
	}
}

func (o Options) validate() error {
	switch {
	case o.Generations < 1:
		return fmt.Errorf("%w: generations must be positive, got %d", ErrBadOptions, o.Generations)
	case o.SamplesPerGeneration < 1:
		return fmt.Errorf("%w: samples per generation must be positive, got %d", ErrBadOptions, o.SamplesPerGeneration)
	case o.TopK < 1:
		return fmt.Errorf("%w: top-k must be positive, got %d", ErrBadOptions, o.TopK)
	case o.Precision < 0:
		return fmt.Errorf("%w: precision must not be negative, got %d", ErrBadOptions, o.Precision)
	case o.Padding < 0 || o.MinPadding < 0:
		return fmt.Errorf("%w: padding must not be negative", ErrBadOptions)
	}
	ranges := []struct {
		name string
		r    Range
	}{
		{"content_weight", o.Ranges.ContentWeight},
		{"pass1_threshold", o.Ranges.Pass1Threshold},
		{"pass2_threshold", o.Ranges.Pass2Threshold},
	}
	for _, nr := range ranges {
		if nr.r.Min > nr.r.Max || math.IsNaN(nr.r.Min) || math.IsNaN(nr.r.Max) {
			return fmt.Errorf("%w: range %s is [%v, %v]", ErrBadOptions, nr.name, nr.r.Min, nr.r.Max)
		}
	}
	return nil
}

// Sample is one evaluated configuration.
type Sample struct {
	Config types.Config
	Score  float64
}

// Generation records the ranges a generation sampled from and its samples in
// draw order.
type Generation struct {
	Ranges  Ranges
	Samples []Sample
}

type Result struct {
	Best        types.Config
	Score       float64
	Evaluations int
	Generations []Generation
}

// SearchEngine searches configurations for a single runner.
func SearchEngine(ctx context.Context, runner Runner, truth types.Truth, opts Options) (Result, error) {
	return Search(ctx, []Case{{Runner: runner, Truth: truth}}, opts)
}

// Search samples configurations generation by generation, keeping the top-K
// of each generation to narrow the ranges for the next one. The score of a
// configuration is the total number of correct predictions over the total
// number of truth entries across all cases. The best configuration over every
// sample is returned; on ties the first one seen wins.
//
// If ctx is cancelled the search stops between evaluations and returns the
// best result so far together with ctx.Err().
func Search(ctx context.Context, cases []Case, opts Options) (Result, error) {
	if len(cases) == 0 {
		return Result{}, ErrNoCases
	}
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	totalTruth := 0
	for _, c := range cases {
		totalTruth += len(c.Truth)
	}
	if totalTruth == 0 {
		return Result{}, ErrEmptyTruth
	}

	defer logger.Trace(fmt.Sprintf("optimizer.Search(%d cases)", len(cases)))()

	rng := rngFromSeed(opts.Seed)
	ranges := opts.Ranges
	var res Result
	found := false

	for gen := 0; gen < opts.Generations; gen++ {
		g := Generation{Ranges: ranges, Samples: make([]Sample, 0, opts.SamplesPerGeneration)}

		for si := 0; si < opts.SamplesPerGeneration; si++ {
			if err := ctx.Err(); err != nil {
				if len(g.Samples) > 0 {
					res.Generations = append(res.Generations, g)
				}
				return res, err
			}

			cfg := sampleConfig(rng, ranges, opts.Precision)
			s := Sample{Config: cfg, Score: evaluate(cases, cfg, totalTruth)}
			g.Samples = append(g.Samples, s)
			res.Evaluations++

			if !found || s.Score > res.Score {
				res.Best, res.Score, found = s.Config, s.Score, true
			}
		}
		res.Generations = append(res.Generations, g)

		logger.Debug("optimizer: generation %d best so far %.4f (%s)", gen+1, res.Score, res.Best)

		if gen < opts.Generations-1 {
			ranges = narrow(survivors(g.Samples, opts.TopK), ranges, opts)
		}
	}

	logger.Info("optimizer: best score %.4f after %d evaluations (%s)", res.Score, res.Evaluations, res.Best)
	return res, nil
}

func evaluate(cases []Case, cfg types.Config, totalTruth int) float64 {
	correct := 0
	for _, c := range cases {
		n, _ := Count(c.Runner.Run(cfg, false), c.Truth)
		correct += n
	}
	return float64(correct) / float64(totalTruth)
}

func sampleConfig(rng *rand.Rand, r Ranges, precision int) types.Config {
	cw := round(uniform(rng, r.ContentWeight), precision)
	return types.Config{
		ContentWeight:  cw,
		Pass1Threshold: round(uniform(rng, r.Pass1Threshold), precision),
		Pass2Threshold: round(uniform(rng, r.Pass2Threshold), precision),
		ContextWeight:  round(1-cw, precision),
	}
}

// survivors returns the top k samples by score, keeping draw order on ties.
func survivors(samples []Sample, k int) []types.Config {
	sorted := slices.Clone(samples)
	slices.SortStableFunc(sorted, func(a, b Sample) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	k = min(k, len(sorted))
	out := make([]types.Config, k)
	for i := 0; i < k; i++ {
		out[i] = sorted[i].Config
	}
	return out
}

func narrow(top []types.Config, current Ranges, opts Options) Ranges {
	if len(top) == 0 {
		return current
	}
	pick := func(get func(types.Config) float64) Range {
		lo, hi := get(top[0]), get(top[0])
		for _, c := range top[1:] {
			lo = min(lo, get(c))
			hi = max(hi, get(c))
		}
		pad := (hi - lo) * opts.Padding
		if hi == lo {
			pad = opts.MinPadding
		}
		return Range{Min: max(0, lo-pad), Max: min(1, hi+pad)}
	}

	return Ranges{
		ContentWeight:  pick(func(c types.Config) float64 { return c.ContentWeight }),
		Pass1Threshold: pick(func(c types.Config) float64 { return c.Pass1Threshold }),
		Pass2Threshold: pick(func(c types.Config) float64 { return c.Pass2Threshold }),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
