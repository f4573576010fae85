package train

import (
	"log"
	"strconv"

	"github.com/pkg/errors"

	"github.com/kiteco/customer-sentiment/dataset"
	"github.com/kiteco/customer-sentiment/feedforward"
	"github.com/kiteco/customer-sentiment/mlflow"
	"github.com/kiteco/customer-sentiment/vocab"
)

// Config is one hyperparameter setting of the sentiment network.
type Config struct {
	EmbeddingDim int
	BatchSize    int
}

// Configs are the fixed settings swept by a single pipeline run.
var Configs = []Config{
	{EmbeddingDim: 32, BatchSize: 32},
	{EmbeddingDim: 64, BatchSize: 64},
	{EmbeddingDim: 128, BatchSize: 128},
}

// Options carries the sweep-wide settings shared by every configuration.
type Options struct {
	Experiment    string // tracking experiment name
	Dataset       string // dataset name recorded as the train-data param
	Developer     string // developer tag recorded on each run
	TokenizerPath string // local path the tokenizer artifact is written to
	VocabSize     int
	Epochs        int
	Patience      int
	Seed          int64
}

// Run trains one network per configuration in Configs and records a
// tracking run for each: tags, parameters, the serialized tokenizer as an
// artifact, and the final test loss and accuracy as metrics. Model weights
// are not persisted. Any error is returned immediately; a retried sweep
// re-runs every configuration and duplicates its tracking runs.
func Run(tracker *mlflow.Client, split dataset.Split, tok *vocab.Tokenizer, opts Options) error {
	expID, err := tracker.GetOrCreateExperiment(opts.Experiment)
	if err != nil {
		return err
	}

	for _, cfg := range Configs {
		if err := runOne(tracker, expID, cfg, split, tok, opts); err != nil {
			return errors.Wrapf(err, "error training embedding-dim %d", cfg.EmbeddingDim)
		}
	}
	return nil
}

func runOne(tracker *mlflow.Client, expID string, cfg Config, split dataset.Split, tok *vocab.Tokenizer, opts Options) error {
	run, err := tracker.StartRun(expID)
	if err != nil {
		return err
	}

	if err := run.SetTag("developer", opts.Developer); err != nil {
		return err
	}
	if err := run.SetTag("algorithm", "Deep Learning"); err != nil {
		return err
	}
	if err := run.LogParam("train-data", opts.Dataset); err != nil {
		return err
	}
	if err := run.LogParam("embedding-dim", strconv.Itoa(cfg.EmbeddingDim)); err != nil {
		return err
	}

	net, err := feedforward.NewNetwork(feedforward.Config{
		VocabSize:    opts.VocabSize,
		EmbeddingDim: cfg.EmbeddingDim,
		Seed:         opts.Seed,
	})
	if err != nil {
		return err
	}

	log.Println("Fit model on training data")
	if _, err := net.Fit(split.XTrain, split.YTrain, split.XTest, split.YTest, feedforward.Options{
		Epochs:    opts.Epochs,
		BatchSize: cfg.BatchSize,
		Patience:  opts.Patience,
		Verbose:   true,
	}); err != nil {
		return err
	}

	if err := tok.Save(opts.TokenizerPath); err != nil {
		return err
	}
	if err := run.LogArtifact(opts.TokenizerPath, "tokenizer_gob"); err != nil {
		return err
	}

	log.Println("Evaluate on test data")
	loss, acc := net.Evaluate(split.XTest, split.YTest)
	log.Printf("test loss %.4f, test accuracy %.4f", loss, acc)

	if err := run.LogMetric("loss", loss); err != nil {
		return err
	}
	if err := run.LogMetric("accuracy", acc); err != nil {
		return err
	}

	return run.End(mlflow.StatusFinished)
}
