package optimizer

import "lhdiff/types"

// Score returns the fraction of truth entries whose predicted first target
// equals the expected new position. An empty truth scores 0.
func Score(mappings []types.Mapping, truth types.Truth) float64 {
	correct, total := Count(mappings, truth)
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

// Count returns the number of correctly predicted truth entries and the
// number of truth entries. Only entries with a real old position predict; an
// old line with no prediction counts as deleted, so it matches a truth entry
// of types.Sentinel.
func Count(mappings []types.Mapping, truth types.Truth) (correct, total int) {
	predicted := make(map[int]int, len(mappings))
	for _, m := range mappings {
		if m.Old == types.Sentinel || len(m.New) == 0 {
			continue
		}
		predicted[m.Old] = m.New[0]
	}

	for old, want := range truth {
		got, ok := predicted[old]
		if !ok {
			got = types.Sentinel
		}
		if got == want {
			correct++
		}
	}
	return correct, len(truth)
}
