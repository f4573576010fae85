package corpus

import (
	"encoding/gob"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"

	"github.com/kiteco/customer-sentiment/reviews"
	"github.com/kiteco/customer-sentiment/text"
)

// Corpus pairs cleaned review texts with their recommendation labels.
// Texts and Labels are positionally aligned: Texts[i] was cleaned from the
// same row that produced Labels[i].
type Corpus struct {
	Texts  []string
	Labels []float64
}

// Len returns the number of reviews in the corpus.
func (c Corpus) Len() int {
	return len(c.Texts)
}

// Build drops rows with empty review text and cleans each remaining review.
// Cleaned texts may themselves be empty; those rows are kept so the corpus
// stays aligned with its labels.
func Build(revs []reviews.Review) (Corpus, error) {
	kept := make([]reviews.Review, 0, len(revs))
	for _, r := range revs {
		if r.Text == "" {
			continue
		}
		kept = append(kept, r)
	}

	c := Corpus{
		Texts:  make([]string, 0, len(kept)),
		Labels: make([]float64, 0, len(kept)),
	}
	err := tqdm.With(iterators.Interval(0, len(kept)), "Cleaning reviews", func(v interface{}) (brk bool) {
		r := kept[v.(int)]
		c.Texts = append(c.Texts, text.Clean(r.Text))
		c.Labels = append(c.Labels, float64(r.Recommended))
		return
	})
	if err != nil {
		return Corpus{}, errors.Wrapf(err, "error cleaning reviews")
	}
	return c, nil
}

// LoadOrBuild returns the cached corpus at cachePath if that file exists,
// skipping recomputation entirely. Otherwise it builds the corpus from revs
// and writes it to cachePath before returning. The cache key is the path
// alone: a present cache wins even when revs differ from the run that
// wrote it.
func LoadOrBuild(cachePath string, revs []reviews.Review) (Corpus, error) {
	if _, err := os.Stat(cachePath); err == nil {
		log.Println("Preprocessed corpus found. Loading.")
		return Load(cachePath)
	}

	log.Println("Preprocessed corpus not found. Building.")
	c, err := Build(revs)
	if err != nil {
		return Corpus{}, err
	}
	if err := c.Save(cachePath); err != nil {
		return Corpus{}, err
	}
	return c, nil
}

// Load reads a corpus written by Save.
func Load(path string) (Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return Corpus{}, errors.Wrapf(err, "error opening corpus cache %s", path)
	}
	defer f.Close()

	var c Corpus
	if err := gob.NewDecoder(f).Decode(&c); err != nil {
		return Corpus{}, errors.Wrapf(err, "error decoding corpus cache %s", path)
	}
	return c, nil
}

// Save writes the corpus to path in GOB format, creating parent directories
// as needed.
func (c Corpus) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "error creating cache directory %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "error creating corpus cache %s", path)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(c); err != nil {
		return errors.Wrapf(err, "error encoding corpus cache %s", path)
	}
	return nil
}
