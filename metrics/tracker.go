package metrics

import (
	"fmt"
	"sync"

	"lhdiff/logger"
	"lhdiff/types"
)

// CaseResult is the outcome of one evaluated case.
type CaseResult struct {
	Name    string `json:"name"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
}

func (c CaseResult) Accuracy() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Correct) / float64(c.Total)
}

// Report aggregates case results. Overall accuracy weights every truth entry
// equally, so large cases count more than small ones.
type Report struct {
	Cases   []CaseResult `json:"cases"`
	Correct int          `json:"correct"`
	Total   int          `json:"total"`
}

func (r Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// Tracker collects case results. It is safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	cases []CaseResult
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) Track(name string, correct, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cases = append(t.cases, CaseResult{Name: name, Correct: correct, Total: total})
	logger.Debug("metrics: %s %d/%d", name, correct, total)
}

// Report returns a snapshot of everything tracked so far, in tracking order.
func (t *Tracker) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := Report{Cases: make([]CaseResult, len(t.cases))}
	copy(r.Cases, t.cases)
	for _, c := range t.cases {
		r.Correct += c.Correct
		r.Total += c.Total
	}
	return r
}

// Summary counts the entries of one result by how they were produced.
type Summary struct {
	Anchors   int `json:"anchors"`
	Pass1     int `json:"pass1"`
	Pass2     int `json:"pass2"`
	Splits    int `json:"splits"`
	Merges    int `json:"merges"`
	Deletions int `json:"deletions"`
	Additions int `json:"additions"`
}

// Summarize classifies mappings. A merge is counted once per pair of entries
// sharing a target.
func Summarize(mappings []types.Mapping) Summary {
	var s Summary
	targets := make(map[int]int)
	for _, m := range mappings {
		switch m.Kind {
		case types.KindAnchor:
			s.Anchors++
		case types.KindPass1:
			s.Pass1++
		case types.KindPass2:
			s.Pass2++
		case types.KindDeletion:
			s.Deletions++
		case types.KindAddition:
			s.Additions++
		}
		if m.IsSplit() {
			s.Splits++
		}
		if !m.IsAddition() && !m.IsDeletion() && len(m.New) == 1 {
			targets[m.New[0]]++
		}
	}
	for _, n := range targets {
		if n > 1 {
			s.Merges += n - 1
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("anchors=%d pass1=%d pass2=%d splits=%d merges=%d deletions=%d additions=%d",
		s.Anchors, s.Pass1, s.Pass2, s.Splits, s.Merges, s.Deletions, s.Additions)
}
