package train

import "math/rand"

// Fold is one train/test index split.
type Fold struct {
	Train []int
	Test  []int
}

// KFold produces k train/test splits over n samples. With Shuffle the
// index order is permuted by Seed first; otherwise splits are contiguous.
// The first n%k folds receive one extra test sample.
type KFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

func (k KFold) Split(n int) []Fold {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if k.Shuffle {
		rnd := rand.New(rand.NewSource(k.Seed))
		rnd.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, k.NSplits)
	start := 0
	for f := 0; f < k.NSplits; f++ {
		size := n / k.NSplits
		if f < n%k.NSplits {
			size++
		}
		test := indices[start : start+size]
		train := make([]int, 0, n-size)
		train = append(train, indices[:start]...)
		train = append(train, indices[start+size:]...)
		folds[f] = Fold{Train: train, Test: test}
		start += size
	}
	return folds
}

// holdout is the split used when no cross_validation is configured: the
// last tenth of the (optionally shuffled) samples becomes the test side.
func holdout(n int, seed int64) Fold {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rnd := rand.New(rand.NewSource(seed))
	rnd.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	cut := n - n/10
	if cut == n && n > 1 {
		cut = n - 1
	}
	return Fold{Train: indices[:cut], Test: indices[cut:]}
}
