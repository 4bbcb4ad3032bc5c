// Package config loads process configuration from the environment, with
// optional .env support for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"contentmill/pkg/store"
)

// Config carries every external endpoint and credential the pipeline uses.
type Config struct {
	ScraperAPIKey string
	OpenAIKey     string
	OpenAIModel   string
	DeepgramKey   string

	S3 store.S3Config

	PostgresDSN string

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	WorkerCount int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present. Load never fails on missing
// values; callers validate the fields they actually need.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ScraperAPIKey: os.Getenv("SCRAPERAPI_KEY"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		DeepgramKey:   os.Getenv("DEEPGRAM_API_KEY"),

		S3: store.S3Config{
			Endpoint:       os.Getenv("S3_ENDPOINT"),
			EndpointDomain: os.Getenv("S3_ENDPOINT_DOMAIN"),
			Region:         os.Getenv("S3_REGION"),
			Key:            os.Getenv("S3_KEY"),
			Secret:         os.Getenv("S3_SECRET"),
			Bucket:         os.Getenv("S3_BUCKET"),
		},

		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		MongoURI:        os.Getenv("MONGO_URI"),
		MongoDatabase:   envOr("MONGO_DATABASE", "contentmill"),
		MongoCollection: envOr("MONGO_COLLECTION", "artifacts"),

		WorkerCount: envInt("WORKER_COUNT", 4),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
