package vocab

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var texts = []string{
	"love dress love fit",
	"love fabric",
	"fit small",
}

func TestFitRanksByFrequency(t *testing.T) {
	tok := NewTokenizer(3000)
	tok.Fit(texts)

	// love x3, fit x2, then dress, fabric, small by first appearance
	assert.Equal(t, 1, tok.WordIndex["love"])
	assert.Equal(t, 2, tok.WordIndex["fit"])
	assert.Equal(t, 3, tok.WordIndex["dress"])
	assert.Equal(t, 4, tok.WordIndex["fabric"])
	assert.Equal(t, 5, tok.WordIndex["small"])

	assert.Equal(t, 3, tok.WordCounts["love"])
	assert.Equal(t, 2, tok.WordCounts["fit"])
}

func TestFitDeterministic(t *testing.T) {
	first := NewTokenizer(3000)
	first.Fit(texts)
	second := NewTokenizer(3000)
	second.Fit(texts)

	assert.Equal(t, first.WordIndex, second.WordIndex)
}

func TestTextsToSequences(t *testing.T) {
	tok := NewTokenizer(3000)
	tok.Fit(texts)

	seqs := tok.TextsToSequences([]string{"love fit", "small unknown word"})
	require.Len(t, seqs, 2)

	assert.Equal(t, []int{1, 2}, seqs[0])
	assert.Equal(t, []int{5}, seqs[1])
}

func TestNumWordsCapsSequences(t *testing.T) {
	tok := NewTokenizer(3)
	tok.Fit(texts)

	// only ids 1 and 2 survive the cap
	seqs := tok.TextsToSequences(texts)
	assert.Equal(t, []int{1, 1, 2}, seqs[0])
	assert.Equal(t, []int{1}, seqs[1])
	assert.Equal(t, []int{2}, seqs[2])
}

func TestEmptySequence(t *testing.T) {
	tok := NewTokenizer(3000)
	tok.Fit(texts)

	seqs := tok.TextsToSequences([]string{""})
	require.Len(t, seqs, 1)
	assert.Empty(t, seqs[0])
}

func TestSaveLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "vocab-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	tok := NewTokenizer(3000)
	tok.Fit(texts)

	path := filepath.Join(dir, "models", "tokenizer.gob")
	require.NoError(t, tok.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tok.NumWords, loaded.NumWords)
	assert.Equal(t, tok.WordIndex, loaded.WordIndex)
	assert.Equal(t, tok.WordCounts, loaded.WordCounts)
}
