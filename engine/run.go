package engine

import (
	"slices"

	"lhdiff/text"
	"lhdiff/types"
)

// run is the per-call state of Run. The engine itself is never written to.
type run struct {
	e        *Engine
	cfg      types.Config
	usedOld  []bool
	usedNew  []bool
	mappings []types.Mapping
}

// RunDefault runs with types.DefaultConfig.
func (e *Engine) RunDefault(includeUnmapped bool) []types.Mapping {
	return e.Run(types.DefaultConfig(), includeUnmapped)
}

// Run maps old lines to new lines under cfg. Anchors are accepted first, then
// two greedy passes match the remaining lines at Pass1Threshold and
// Pass2Threshold. With includeUnmapped, leftover old lines are reported as
// deletions and leftover new lines as additions.
//
// Entries with a real old position come first in ascending old order,
// followed by additions in ascending new order.
func (e *Engine) Run(cfg types.Config, includeUnmapped bool) []types.Mapping {
	r := &run{
		e:       e,
		cfg:     cfg,
		usedOld: make([]bool, len(e.old)),
		usedNew: make([]bool, len(e.new)),
	}

	for _, a := range e.anchors {
		r.usedOld[a.Old] = true
		r.usedNew[a.New] = true
		r.emit(a.Old, types.KindAnchor, a.New)
	}

	if e.matrix != nil {
		r.pass(cfg.Pass1Threshold, types.KindPass1)
		r.pass(cfg.Pass2Threshold, types.KindPass2)
	}

	if includeUnmapped {
		for i, used := range r.usedOld {
			if !used {
				r.mappings = append(r.mappings, types.Mapping{
					Old:  e.old[i].Position,
					New:  []int{types.Sentinel},
					Kind: types.KindDeletion,
				})
			}
		}
		for j, used := range r.usedNew {
			if !used {
				r.mappings = append(r.mappings, types.Mapping{
					Old:  types.Sentinel,
					New:  []int{e.new[j].Position},
					Kind: types.KindAddition,
				})
			}
		}
	}

	sortMappings(r.mappings)
	return r.mappings
}

func (r *run) emit(i int, kind types.Kind, js ...int) {
	targets := make([]int, len(js))
	for k, j := range js {
		targets[k] = r.e.new[j].Position
	}
	r.mappings = append(r.mappings, types.Mapping{
		Old:  r.e.old[i].Position,
		New:  targets,
		Kind: kind,
	})
}

// pass walks the unconsumed old lines in order and accepts the best remaining
// candidate when its combined score is strictly above threshold.
func (r *run) pass(threshold float64, kind types.Kind) {
	old, new := r.e.old, r.e.new

	for i := range old {
		if r.usedOld[i] {
			continue
		}

		j, score, ok := r.bestMatch(i)
		if !ok || score <= threshold {
			continue
		}
		single := r.e.matrix.At(i, j).Content

		if j+1 < len(new) && !r.usedNew[j+1] {
			joined := new[j].Text + text.JoinSeparator + new[j+1].Text
			if text.ContentSimilarity(old[i].Text, joined) > single {
				r.usedOld[i] = true
				r.usedNew[j] = true
				r.usedNew[j+1] = true
				r.emit(i, kind, j, j+1)
				continue
			}
		}

		if i+1 < len(old) && !r.usedOld[i+1] {
			joined := old[i].Text + text.JoinSeparator + old[i+1].Text
			if text.ContentSimilarity(joined, new[j].Text) > single {
				r.usedOld[i] = true
				r.usedOld[i+1] = true
				r.usedNew[j] = true
				r.emit(i, kind, j)
				r.emit(i+1, kind, j)
				continue
			}
		}

		r.usedOld[i] = true
		r.usedNew[j] = true
		r.emit(i, kind, j)
	}
}

// bestMatch returns the unconsumed new index with the highest combined score
// for old index i. Ties keep the lowest index.
func (r *run) bestMatch(i int) (best int, bestScore float64, ok bool) {
	for j, used := range r.usedNew {
		if used {
			continue
		}
		score := r.e.matrix.At(i, j).Score(r.cfg.ContentWeight, r.cfg.ContextWeight)
		if !ok || score > bestScore {
			best, bestScore, ok = j, score, true
		}
	}
	return best, bestScore, ok
}

func sortMappings(mappings []types.Mapping) {
	slices.SortStableFunc(mappings, func(a, b types.Mapping) int {
		aAdd, bAdd := a.IsAddition(), b.IsAddition()
		switch {
		case aAdd && bAdd:
			return a.New[0] - b.New[0]
		case aAdd:
			return 1
		case bAdd:
			return -1
		default:
			return a.Old - b.Old
		}
	})
}
