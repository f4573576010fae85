package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config collects the pipeline's environment-driven settings. Every field
// has a default, so a bare invocation runs the full pipeline with no
// arguments.
type Config struct {
	ReviewsPath   string
	CachePath     string
	TokenizerPath string

	TrackingURI string
	Experiment  string
	Developer   string

	VocabSize    int
	TestFraction float64
	Seed         int64
	Epochs       int
	Patience     int
}

// FromEnv builds a Config from environment variables, falling back to the
// defaults of the pipeline.
func FromEnv() Config {
	return Config{
		ReviewsPath:   getenvDefault("REVIEWS_CSV", "Womens_Clothing_E-Commerce_Reviews.csv"),
		CachePath:     getenvDefault("CORPUS_CACHE", filepath.Join("data", "corpus_y.gob")),
		TokenizerPath: getenvDefault("TOKENIZER_PATH", "tokenizer.gob"),

		TrackingURI: getenvDefault("MLFLOW_TRACKING_URI", "http://localhost:5000"),
		Experiment:  getenvDefault("MLFLOW_EXPERIMENT", "customer-sentiment-analysis"),
		Developer:   getenvDefault("DEVELOPER", "isaac"),

		VocabSize:    getenvDefaultInt("VOCAB_SIZE", 3000),
		TestFraction: getenvDefaultFloat("TEST_FRACTION", 0.2),
		Seed:         int64(getenvDefaultInt("SPLIT_SEED", 0)),
		Epochs:       getenvDefaultInt("EPOCHS", 50),
		Patience:     getenvDefaultInt("PATIENCE", 2),
	}
}

// Dataset returns the dataset name recorded on tracking runs, derived from
// the reviews file name.
func (c Config) Dataset() string {
	base := filepath.Base(c.ReviewsPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// getenvDefault gets the value of an environment variable, or returns the
// specified default value if that variable is not set.
func getenvDefault(name, defaultValue string) string {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultValue
	}
	return val
}

// getenvDefaultInt gets an environment variable as an int, or else returns
// the default
func getenvDefaultInt(name string, defaultVal int) int {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("environment variable %s should be an integer: %v", name, err)
	}
	return intVal
}

// getenvDefaultFloat gets an environment variable as a float64, or else
// returns the default
func getenvDefaultFloat(name string, defaultVal float64) float64 {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultVal
	}
	floatVal, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Fatalf("environment variable %s should be a float: %v", name, err)
	}
	return floatVal
}
