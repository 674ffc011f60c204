package engine

import (
	"fmt"
	"slices"
	"strings"

	"lhdiff/logger"
	"lhdiff/text"
)

// AnchorStrategy selects how unchanged lines are found before scoring.
type AnchorStrategy int

const (
	// AnchorBlocks uses leftmost-longest matching blocks with auto-junk.
	AnchorBlocks AnchorStrategy = iota
	// AnchorMyers uses the equal runs of a line-mode Myers diff.
	AnchorMyers
)

func (s AnchorStrategy) String() string {
	switch s {
	case AnchorBlocks:
		return "blocks"
	case AnchorMyers:
		return "myers"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseAnchorStrategy maps a name to a strategy. Empty selects AnchorBlocks.
func ParseAnchorStrategy(name string) (AnchorStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "blocks", "difflib":
		return AnchorBlocks, nil
	case "myers":
		return AnchorMyers, nil
	default:
		return AnchorBlocks, fmt.Errorf("unknown anchor strategy %q", name)
	}
}

type Option func(*Engine)

func WithAnchorStrategy(s AnchorStrategy) Option {
	return func(e *Engine) {
		e.strategy = s
	}
}

// Anchor is an (old, new) index pair whose texts are known to be unchanged.
// Indices are 0-based.
type Anchor struct {
	Old int
	New int
}

// Engine holds everything that does not depend on weights or thresholds:
// the two line sequences, the anchors between them and the similarity matrix.
// It is read-only after New, so Run may be called any number of times,
// including concurrently.
type Engine struct {
	old      []text.Line
	new      []text.Line
	strategy AnchorStrategy

	anchors   []Anchor
	anchorOld map[int]int
	anchorNew map[int]struct{}
	matrix    *Matrix
}

// New precomputes anchors and the similarity matrix for two versions.
// Construction cannot fail; empty inputs produce an engine with no anchors
// and no matrix.
func New(old, new []text.Line, opts ...Option) *Engine {
	defer logger.Trace(fmt.Sprintf("engine.New(%dx%d)", len(old), len(new)))()

	e := &Engine{
		old:       old,
		new:       new,
		anchorOld: make(map[int]int),
		anchorNew: make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.anchors = findAnchors(e.strategy, text.Texts(old), text.Texts(new))
	for _, a := range e.anchors {
		e.anchorOld[a.Old] = a.New
		e.anchorNew[a.New] = struct{}{}
	}

	if len(old) > 0 && len(new) > 0 {
		e.matrix = buildMatrix(old, new, e.anchorOld, e.anchorNew)
	}

	logger.Debug("engine: %d old, %d new, %d anchors (%s)", len(old), len(new), len(e.anchors), e.strategy)
	return e
}

// Old returns the old line sequence.
func (e *Engine) Old() []text.Line { return e.old }

// New returns the new line sequence.
func (e *Engine) New() []text.Line { return e.new }

func (e *Engine) Strategy() AnchorStrategy { return e.strategy }

// Anchors returns a copy of the anchor pairs ordered by old index.
func (e *Engine) Anchors() []Anchor {
	return slices.Clone(e.anchors)
}

func (e *Engine) IsAnchor(i, j int) bool {
	nj, ok := e.anchorOld[i]
	return ok && nj == j
}

// Matrix returns the similarity cache, or nil when either side is empty.
func (e *Engine) Matrix() *Matrix { return e.matrix }
