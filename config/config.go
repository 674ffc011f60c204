package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lhdiff/dataset"
	"lhdiff/engine"
	"lhdiff/optimizer"
	"lhdiff/text"
	"lhdiff/types"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvVar holds a JSON settings document applied on top of file settings.
const EnvVar = "LHDIFF_CONFIG"

var (
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
	ErrInvalid           = errors.New("config: invalid settings")
)

type SearchSettings struct {
	Generations int              `json:"generations" yaml:"generations" toml:"generations"`
	Samples     int              `json:"samples" yaml:"samples" toml:"samples"`
	TopK        int              `json:"top_k" yaml:"top_k" toml:"top_k"`
	Seed        int64            `json:"seed" yaml:"seed" toml:"seed"`
	Ranges      optimizer.Ranges `json:"ranges" yaml:"ranges" toml:"ranges"`
}

type DatasetSettings struct {
	MaxLines int   `json:"max_lines" yaml:"max_lines" toml:"max_lines"`
	Sample   int   `json:"sample" yaml:"sample" toml:"sample"`
	Seed     int64 `json:"seed" yaml:"seed" toml:"seed"`
}

// Settings is everything the command line tool can be configured with.
type Settings struct {
	Match          types.Config    `json:"match" yaml:"match" toml:"match"`
	Window         int             `json:"window" yaml:"window" toml:"window"`
	AnchorStrategy string          `json:"anchor_strategy" yaml:"anchor_strategy" toml:"anchor_strategy"`
	LogLevel       string          `json:"log_level" yaml:"log_level" toml:"log_level"` // trace, debug, info, warn, error
	LogFile        string          `json:"log_file" yaml:"log_file" toml:"log_file"`
	StorePath      string          `json:"store_path" yaml:"store_path" toml:"store_path"`
	Search         SearchSettings  `json:"search" yaml:"search" toml:"search"`
	Dataset        DatasetSettings `json:"dataset" yaml:"dataset" toml:"dataset"`
}

func Default() Settings {
	opts := optimizer.DefaultOptions()
	ds := dataset.DefaultOptions()
	return Settings{
		Match:          types.DefaultConfig(),
		Window:         text.DefaultWindow,
		AnchorStrategy: engine.AnchorBlocks.String(),
		LogLevel:       "info",
		Search: SearchSettings{
			Generations: opts.Generations,
			Samples:     opts.SamplesPerGeneration,
			TopK:        opts.TopK,
			Seed:        opts.Seed,
			Ranges:      opts.Ranges,
		},
		Dataset: DatasetSettings{
			MaxLines: ds.MaxLines,
		},
	}
}

// ParseError reports a settings document that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads settings from path on top of Default. The decoder is chosen by
// extension. An empty path or a missing file yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := decode(path, data, &s); err != nil {
		return Default(), err
	}
	return s, nil
}

func decode(path string, data []byte, s *Settings) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, s)
	case ".toml":
		err = toml.Unmarshal(data, s)
	case ".json":
		err = json.Unmarshal(data, s)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

// FromEnv applies the JSON document in LHDIFF_CONFIG on top of s.
func FromEnv(s Settings) (Settings, error) {
	raw := strings.TrimSpace(os.Getenv(EnvVar))
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, &ParseError{Path: "$" + EnvVar, Err: err}
	}
	return s, nil
}

func (s Settings) Validate() error {
	if err := s.Match.Validate(); err != nil {
		return err
	}
	if s.Window < 0 {
		return fmt.Errorf("%w: window must not be negative, got %d", ErrInvalid, s.Window)
	}
	if _, err := engine.ParseAnchorStrategy(s.AnchorStrategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Strategy returns the parsed anchor strategy, falling back to AnchorBlocks.
func (s Settings) Strategy() engine.AnchorStrategy {
	strategy, _ := engine.ParseAnchorStrategy(s.AnchorStrategy)
	return strategy
}

func (s Settings) SearchOptions() optimizer.Options {
	opts := optimizer.DefaultOptions()
	opts.Generations = s.Search.Generations
	opts.SamplesPerGeneration = s.Search.Samples
	opts.TopK = s.Search.TopK
	opts.Seed = s.Search.Seed
	opts.Ranges = s.Search.Ranges
	return opts
}

func (s Settings) DatasetOptions() dataset.Options {
	return dataset.Options{
		Window:   s.Window,
		MaxLines: s.Dataset.MaxLines,
		Sample:   s.Dataset.Sample,
		Seed:     s.Dataset.Seed,
		Strategy: s.Strategy(),
	}
}

// Save writes s to path in the format implied by its extension.
func Save(path string, s Settings) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	case ".toml":
		data, err = toml.Marshal(s)
	case ".json":
		data, err = json.MarshalIndent(s, "", "  ")
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return fmt.Errorf("encoding config %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}
