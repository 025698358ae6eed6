package train

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKFoldSplit(t *testing.T) {
	folds := KFold{NSplits: 3}.Split(10)
	require.Len(t, folds, 3)

	assert.Len(t, folds[0].Test, 4)
	assert.Len(t, folds[1].Test, 3)
	assert.Len(t, folds[2].Test, 3)

	var all []int
	for _, fold := range folds {
		assert.Len(t, fold.Train, 10-len(fold.Test))
		seen := map[int]bool{}
		for _, i := range fold.Train {
			seen[i] = true
		}
		for _, i := range fold.Test {
			assert.False(t, seen[i], "index %d in both sides", i)
		}
		all = append(all, fold.Test...)
	}
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)
}

func TestKFoldSplitWithoutShuffleIsContiguous(t *testing.T) {
	folds := KFold{NSplits: 2}.Split(4)
	assert.Equal(t, []int{0, 1}, folds[0].Test)
	assert.Equal(t, []int{2, 3}, folds[1].Test)
}

func TestKFoldShuffleIsDeterministic(t *testing.T) {
	a := KFold{NSplits: 5, Shuffle: true, Seed: 42}.Split(100)
	b := KFold{NSplits: 5, Shuffle: true, Seed: 42}.Split(100)
	assert.Equal(t, a, b)

	c := KFold{NSplits: 5, Shuffle: true, Seed: 7}.Split(100)
	assert.NotEqual(t, a, c)
}

func TestHoldout(t *testing.T) {
	fold := holdout(25, 1)
	assert.Len(t, fold.Train, 23)
	assert.Len(t, fold.Test, 2)

	// Tiny datasets still get at least one test sample.
	fold = holdout(5, 1)
	assert.Len(t, fold.Train, 4)
	assert.Len(t, fold.Test, 1)
}
