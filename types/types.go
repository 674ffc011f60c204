package types

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel marks "no corresponding line" on either side of a mapping.
const Sentinel = -1

var ErrInvalidConfig = errors.New("types: invalid config")

// Config holds the scoring weights and pass thresholds for one engine run.
// Any finite values are accepted; weights are not required to sum to 1.
type Config struct {
	ContentWeight  float64 `json:"content_weight" yaml:"content_weight" toml:"content_weight"`
	ContextWeight  float64 `json:"context_weight" yaml:"context_weight" toml:"context_weight"`
	Pass1Threshold float64 `json:"pass1_threshold" yaml:"pass1_threshold" toml:"pass1_threshold"`
	Pass2Threshold float64 `json:"pass2_threshold" yaml:"pass2_threshold" toml:"pass2_threshold"`
}

// DefaultConfig returns the calibrated weights shipped with the tool.
func DefaultConfig() Config {
	return Config{
		ContentWeight:  0.76,
		ContextWeight:  0.24,
		Pass1Threshold: 0.66,
		Pass2Threshold: 0.42,
	}
}

// Validate reports non-finite fields.
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"content_weight", c.ContentWeight},
		{"context_weight", c.ContextWeight},
		{"pass1_threshold", c.Pass1Threshold},
		{"pass2_threshold", c.Pass2Threshold},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidConfig, f.name, f.value)
		}
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("content=%.2f context=%.2f pass1=%.2f pass2=%.2f",
		c.ContentWeight, c.ContextWeight, c.Pass1Threshold, c.Pass2Threshold)
}

// Kind records which stage of a run produced a mapping.
type Kind int

const (
	KindAnchor Kind = iota
	KindPass1
	KindPass2
	KindDeletion
	KindAddition
)

func (k Kind) String() string {
	switch k {
	case KindAnchor:
		return "anchor"
	case KindPass1:
		return "pass1"
	case KindPass2:
		return "pass2"
	case KindDeletion:
		return "deletion"
	case KindAddition:
		return "addition"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mapping is one entry of a run result. Positions are 1-indexed.
//   - Old = p, New = [q]: line p became line q
//   - Old = p, New = [q, q+1]: line p was split
//   - Old = p, New = [Sentinel]: line p was deleted
//   - Old = Sentinel, New = [q]: line q was added
type Mapping struct {
	Old  int   `json:"old"`
	New  []int `json:"new"`
	Kind Kind  `json:"kind"`
}

func (m Mapping) IsDeletion() bool {
	return m.Old != Sentinel && len(m.New) == 1 && m.New[0] == Sentinel
}

func (m Mapping) IsAddition() bool {
	return m.Old == Sentinel
}

func (m Mapping) IsSplit() bool {
	return len(m.New) > 1
}

// Target returns the first new position of the mapping, or Sentinel.
func (m Mapping) Target() int {
	if len(m.New) == 0 {
		return Sentinel
	}
	return m.New[0]
}

// Truth maps old positions to their expected new positions.
type Truth map[int]int
