package dataset

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Pad right-pads every sequence with zeros to the length of the longest
// sequence in the batch, so the result is rectangular. Sequences are
// copied; the input is not modified.
func Pad(seqs [][]int) [][]int {
	var width int
	for _, s := range seqs {
		if len(s) > width {
			width = len(s)
		}
	}

	padded := make([][]int, len(seqs))
	for i, s := range seqs {
		row := make([]int, width)
		copy(row, s)
		padded[i] = row
	}
	return padded
}

// Split holds the train/test partitions of a padded dataset. Rows stay
// positionally aligned with their labels within each partition.
type Split struct {
	XTrain [][]int
	XTest  [][]int
	YTrain []float64
	YTest  []float64
}

// NewSplit partitions X and y into train and test sets. The test set takes
// ceil(testFraction * N) rows chosen by a permutation seeded with seed, so
// the split is reproducible given identical inputs.
func NewSplit(X [][]int, y []float64, testFraction float64, seed int64) (Split, error) {
	if len(X) != len(y) {
		return Split{}, errors.Errorf("len of X (%d) != len of y (%d)", len(X), len(y))
	}
	if testFraction <= 0 || testFraction >= 1 {
		return Split{}, errors.Errorf("test fraction %f is not in (0, 1)", testFraction)
	}

	n := len(X)
	nTest := int(math.Ceil(testFraction * float64(n)))
	perm := rand.New(rand.NewSource(seed)).Perm(n)

	s := Split{
		XTrain: make([][]int, 0, n-nTest),
		XTest:  make([][]int, 0, nTest),
		YTrain: make([]float64, 0, n-nTest),
		YTest:  make([]float64, 0, nTest),
	}
	for _, i := range perm[:nTest] {
		s.XTest = append(s.XTest, X[i])
		s.YTest = append(s.YTest, y[i])
	}
	for _, i := range perm[nTest:] {
		s.XTrain = append(s.XTrain, X[i])
		s.YTrain = append(s.YTrain, y[i])
	}
	return s, nil
}
