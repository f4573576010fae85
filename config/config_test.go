package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, "Womens_Clothing_E-Commerce_Reviews.csv", cfg.ReviewsPath)
	assert.Equal(t, "http://localhost:5000", cfg.TrackingURI)
	assert.Equal(t, "customer-sentiment-analysis", cfg.Experiment)
	assert.Equal(t, 3000, cfg.VocabSize)
	assert.Equal(t, 0.2, cfg.TestFraction)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, 50, cfg.Epochs)
	assert.Equal(t, 2, cfg.Patience)
}

func TestEnvOverrides(t *testing.T) {
	os.Setenv("REVIEWS_CSV", "other.csv")
	os.Setenv("MLFLOW_TRACKING_URI", "http://tracking:5000")
	os.Setenv("EPOCHS", "5")
	defer func() {
		os.Unsetenv("REVIEWS_CSV")
		os.Unsetenv("MLFLOW_TRACKING_URI")
		os.Unsetenv("EPOCHS")
	}()

	cfg := FromEnv()
	assert.Equal(t, "other.csv", cfg.ReviewsPath)
	assert.Equal(t, "http://tracking:5000", cfg.TrackingURI)
	assert.Equal(t, 5, cfg.Epochs)
}

func TestDataset(t *testing.T) {
	cfg := Config{ReviewsPath: "/data/Womens_Clothing_E-Commerce_Reviews.csv"}
	assert.Equal(t, "Womens_Clothing_E-Commerce_Reviews", cfg.Dataset())
}
