package main

import (
	"fmt"
	"log"
	"time"

	humanize "github.com/dustin/go-humanize"

	"github.com/kiteco/customer-sentiment/config"
	"github.com/kiteco/customer-sentiment/corpus"
	"github.com/kiteco/customer-sentiment/dataset"
	"github.com/kiteco/customer-sentiment/flow"
	"github.com/kiteco/customer-sentiment/mlflow"
	"github.com/kiteco/customer-sentiment/reviews"
	"github.com/kiteco/customer-sentiment/train"
	"github.com/kiteco/customer-sentiment/vocab"
)

const (
	taskRetries    = 3
	taskRetryDelay = time.Minute
)

func main() {
	cfg := config.FromEnv()
	start := time.Now()

	var (
		revs  []reviews.Review
		corp  corpus.Corpus
		split dataset.Split
		tok   *vocab.Tokenizer
	)

	f := flow.New("Sentiment-Analysis-Flow",
		"A flow to run the pipeline for the customer sentiment analysis")

	f.Add(flow.Task{
		Name:       "read data",
		Tags:       []string{"data"},
		Retries:    taskRetries,
		RetryDelay: taskRetryDelay,
		Run: func() error {
			var err error
			revs, err = reviews.Load(cfg.ReviewsPath)
			if err != nil {
				return err
			}
			log.Printf("found %s reviews", humanize.Comma(int64(len(revs))))
			log.Println("Data loaded.")
			return nil
		},
	})

	f.Add(flow.Task{
		Name:       "preprocess data",
		Tags:       []string{"data"},
		Retries:    taskRetries,
		RetryDelay: taskRetryDelay,
		Run: func() error {
			var err error
			corp, err = corpus.LoadOrBuild(cfg.CachePath, revs)
			if err != nil {
				return err
			}
			log.Println("Data preprocessed.")
			return nil
		},
	})

	f.Add(flow.Task{
		Name:       "create dataset",
		Tags:       []string{"data"},
		Retries:    taskRetries,
		RetryDelay: taskRetryDelay,
		Run: func() error {
			tok = vocab.NewTokenizer(cfg.VocabSize)
			tok.Fit(corp.Texts)

			padded := dataset.Pad(tok.TextsToSequences(corp.Texts))

			var err error
			split, err = dataset.NewSplit(padded, corp.Labels, cfg.TestFraction, cfg.Seed)
			if err != nil {
				return err
			}
			log.Println("Dataset created.")
			return nil
		},
	})

	f.Add(flow.Task{
		Name:       "train model",
		Tags:       []string{"model"},
		Retries:    taskRetries,
		RetryDelay: taskRetryDelay,
		Run: func() error {
			tracker := mlflow.NewClient(cfg.TrackingURI)
			err := train.Run(tracker, split, tok, train.Options{
				Experiment:    cfg.Experiment,
				Dataset:       cfg.Dataset(),
				Developer:     cfg.Developer,
				TokenizerPath: cfg.TokenizerPath,
				VocabSize:     cfg.VocabSize,
				Epochs:        cfg.Epochs,
				Patience:      cfg.Patience,
				Seed:          cfg.Seed,
			})
			if err != nil {
				return err
			}
			log.Println("Model training completed.")
			return nil
		},
	})

	if err := f.Run(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Done! took %v\n", time.Since(start))
}
