package train

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiteco/customer-sentiment/corpus"
	"github.com/kiteco/customer-sentiment/dataset"
	"github.com/kiteco/customer-sentiment/mlflow"
	"github.com/kiteco/customer-sentiment/reviews"
	"github.com/kiteco/customer-sentiment/vocab"
)

// tracker is an in-memory stand-in for the tracking server, keyed by run.
type tracker struct {
	runs      []string
	metrics   map[string][]string // run id -> metric keys
	params    map[string][]string
	tags      map[string][]string
	artifacts int
}

func newTracker() *tracker {
	return &tracker{
		metrics: make(map[string][]string),
		params:  make(map[string][]string),
		tags:    make(map[string][]string),
	}
}

func (tr *tracker) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/mlflow/experiments/get-by-name", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error_code":"RESOURCE_DOES_NOT_EXIST"}`))
	})
	mux.HandleFunc("/api/2.0/mlflow/experiments/create", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"experiment_id":"1"}`))
	})
	mux.HandleFunc("/api/2.0/mlflow/runs/create", func(w http.ResponseWriter, r *http.Request) {
		id := fmt.Sprintf("run-%d", len(tr.runs)+1)
		tr.runs = append(tr.runs, id)
		fmt.Fprintf(w, `{"run":{"info":{"run_id":"%s"}}}`, id)
	})
	keyed := func(dst map[string][]string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var req map[string]interface{}
			json.NewDecoder(r.Body).Decode(&req)
			runID := req["run_id"].(string)
			dst[runID] = append(dst[runID], req["key"].(string))
			w.Write([]byte("{}"))
		}
	}
	mux.HandleFunc("/api/2.0/mlflow/runs/log-metric", keyed(tr.metrics))
	mux.HandleFunc("/api/2.0/mlflow/runs/log-parameter", keyed(tr.params))
	mux.HandleFunc("/api/2.0/mlflow/runs/set-tag", keyed(tr.tags))
	mux.HandleFunc("/api/2.0/mlflow/runs/update", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("/api/2.0/mlflow-artifacts/artifacts/", func(w http.ResponseWriter, r *http.Request) {
		tr.artifacts++
		w.Write([]byte("{}"))
	})
	return mux
}

func buildSplit(t *testing.T) (dataset.Split, *vocab.Tokenizer) {
	revs := []reviews.Review{
		{Text: "I absolutely loved this dress, the fit is perfect!", Recommended: 1},
		{Text: "Gorgeous fabric and great colors, highly recommend.", Recommended: 1},
		{Text: "Runs small, the fabric is itchy and cheap.", Recommended: 0},
		{Text: "Terrible quality, returned it immediately.", Recommended: 0},
		{Text: "Love love love this top, so comfortable.", Recommended: 1},
		{Text: "The seams ripped after one wash, very disappointed.", Recommended: 0},
		{Text: "Beautiful dress, flattering cut, wonderful material.", Recommended: 1},
		{Text: "Awful sizing, nothing like the photos.", Recommended: 0},
		{Text: "Perfect for summer, light and soft.", Recommended: 1},
		{Text: "Cheap looking and poorly made.", Recommended: 0},
	}

	c, err := corpus.Build(revs)
	require.NoError(t, err)

	tok := vocab.NewTokenizer(3000)
	tok.Fit(c.Texts)

	padded := dataset.Pad(tok.TextsToSequences(c.Texts))
	split, err := dataset.NewSplit(padded, c.Labels, 0.2, 0)
	require.NoError(t, err)
	return split, tok
}

func TestRunLogsOneMetricPairPerConfig(t *testing.T) {
	tr := newTracker()
	srv := httptest.NewServer(tr.handler())
	defer srv.Close()

	dir, err := ioutil.TempDir("", "train-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	split, tok := buildSplit(t)

	err = Run(mlflow.NewClient(srv.URL), split, tok, Options{
		Experiment:    "customer-sentiment-analysis",
		Dataset:       "reviews-test",
		Developer:     "isaac",
		TokenizerPath: filepath.Join(dir, "tokenizer.gob"),
		VocabSize:     3000,
		Epochs:        2,
		Patience:      2,
		Seed:          0,
	})
	require.NoError(t, err)

	// one tracking run per configured hyperparameter setting
	require.Len(t, tr.runs, len(Configs))

	for _, id := range tr.runs {
		assert.ElementsMatch(t, []string{"loss", "accuracy"}, tr.metrics[id])
		assert.ElementsMatch(t, []string{"train-data", "embedding-dim"}, tr.params[id])
		assert.ElementsMatch(t, []string{"developer", "algorithm"}, tr.tags[id])
	}

	assert.Equal(t, len(Configs), tr.artifacts)

	// the tokenizer artifact was written locally before upload
	_, err = os.Stat(filepath.Join(dir, "tokenizer.gob"))
	assert.NoError(t, err)
}

func TestRunSurfacesTrackerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	split, tok := buildSplit(t)
	err := Run(mlflow.NewClient(srv.URL), split, tok, Options{
		Experiment: "exp",
		VocabSize:  3000,
		Epochs:     1,
	})
	assert.Error(t, err)
}
