package vocab

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Tokenizer maps the most frequent corpus words to small integer ids for
// use as embedding input. Ids start at 1; id 0 is reserved for padding.
// NumWords caps the effective vocabulary: sequences only keep ids strictly
// below NumWords, so at most NumWords-1 distinct words survive
// vectorization. Words beyond the cap stay in WordIndex for inspection.
type Tokenizer struct {
	NumWords   int
	WordIndex  map[string]int
	WordCounts map[string]int
}

// NewTokenizer returns an unfitted Tokenizer with the given vocabulary cap.
func NewTokenizer(numWords int) *Tokenizer {
	return &Tokenizer{NumWords: numWords}
}

// Fit counts whitespace-separated words over texts and assigns ids by
// descending frequency, ties broken by first appearance in the corpus.
// Fitting is deterministic given identical input.
func (t *Tokenizer) Fit(texts []string) {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for _, s := range texts {
		for _, w := range strings.Fields(s) {
			if _, seen := counts[w]; !seen {
				firstSeen[w] = len(firstSeen)
			}
			counts[w]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return firstSeen[words[i]] < firstSeen[words[j]]
	})

	t.WordIndex = make(map[string]int, len(words))
	for i, w := range words {
		t.WordIndex[w] = i + 1
	}
	t.WordCounts = counts
}

// TextsToSequences maps each text to its sequence of word ids. Words that
// are out of vocabulary, or whose id falls at or above NumWords, are
// dropped. A text may map to an empty sequence.
func (t *Tokenizer) TextsToSequences(texts []string) [][]int {
	seqs := make([][]int, len(texts))
	for i, s := range texts {
		var seq []int
		for _, w := range strings.Fields(s) {
			id, exists := t.WordIndex[w]
			if !exists {
				continue
			}
			if t.NumWords > 0 && id >= t.NumWords {
				continue
			}
			seq = append(seq, id)
		}
		seqs[i] = seq
	}
	return seqs
}

// Save writes the fitted tokenizer to path in GOB format, creating parent
// directories as needed.
func (t *Tokenizer) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "error creating tokenizer directory %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "error creating tokenizer file %s", path)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(t); err != nil {
		return errors.Wrapf(err, "error encoding tokenizer to %s", path)
	}
	return nil
}

// Load reads a tokenizer written by Save.
func Load(path string) (*Tokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening tokenizer file %s", path)
	}
	defer f.Close()

	var t Tokenizer
	if err := gob.NewDecoder(f).Decode(&t); err != nil {
		return nil, errors.Wrapf(err, "error decoding tokenizer from %s", path)
	}
	return &t, nil
}
