package optimizer

import (
	"testing"

	"lhdiff/engine"
	"lhdiff/text"
	"lhdiff/types"

	"github.com/stretchr/testify/assert"
)

type fixedRunner struct {
	mappings []types.Mapping
}

func (r *fixedRunner) Run(types.Config, bool) []types.Mapping {
	return r.mappings
}

func TestScore(t *testing.T) {
	mappings := []types.Mapping{
		{Old: 1, New: []int{1}},
		{Old: 2, New: []int{3, 4}}, // split: first target predicts
		{Old: 3, New: []int{types.Sentinel}},
		{Old: types.Sentinel, New: []int{2}},
	}
	truth := types.Truth{1: 1, 2: 3, 3: 5, 4: 4}

	correct, total := Count(mappings, truth)
	assert.Equal(t, 2, correct)
	assert.Equal(t, 4, total)
	assert.Equal(t, 0.5, Score(mappings, truth))
}

func TestScore_EmptyTruth(t *testing.T) {
	assert.Equal(t, 0.0, Score([]types.Mapping{{Old: 1, New: []int{1}}}, nil))
}

func TestScore_NoPredictions(t *testing.T) {
	assert.Equal(t, 0.0, Score(nil, types.Truth{1: 1}))
}

func TestCount_MissingPredictionIsDeletion(t *testing.T) {
	mappings := []types.Mapping{{Old: 1, New: []int{1}}}
	truth := types.Truth{1: 1, 2: types.Sentinel}

	correct, total := Count(mappings, truth)
	assert.Equal(t, 2, correct)
	assert.Equal(t, 2, total)

	withDeletion := append(mappings, types.Mapping{Old: 2, New: []int{types.Sentinel}, Kind: types.KindDeletion})
	assert.Equal(t, 1.0, Score(withDeletion, truth))

	assert.Equal(t, 0.5, Score([]types.Mapping{{Old: 1, New: []int{1}}, {Old: 2, New: []int{2}}}, truth))
}

func TestScore_DeletedLineWithRealEngine(t *testing.T) {
	e := engine.New(
		text.BuildLines([]string{"keep", "xyz"}, text.DefaultWindow),
		text.BuildLines([]string{"keep", "qrs"}, text.DefaultWindow),
	)
	truth := types.Truth{1: 1, 2: types.Sentinel}

	assert.Equal(t, 1.0, Score(e.RunDefault(false), truth))
	assert.Equal(t, 1.0, Score(e.RunDefault(true), truth))
}
