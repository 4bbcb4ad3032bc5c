package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"contentmill/pkg/completion"
	"contentmill/pkg/config"
	"contentmill/pkg/db"
	"contentmill/pkg/domain"
	"contentmill/pkg/media"
	"contentmill/pkg/pipeline"
	"contentmill/pkg/publish"
	"contentmill/pkg/scrape"
	"contentmill/pkg/store"
	"contentmill/pkg/synthesize"
	"contentmill/pkg/transcribe"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: contentmill <url> [text|markdown|facts|history]")
		os.Exit(2)
	}
	url := os.Args[1]
	mode := "text"
	if len(os.Args) > 2 {
		mode = os.Args[2]
	}

	cfg := config.Load()
	ctx := context.Background()

	if mode == "history" {
		printHistory(ctx, cfg, url)
		return
	}

	if cfg.S3.Bucket == "" {
		log.Fatal("S3_BUCKET is required")
	}

	contentStore, err := store.NewS3Store(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("Failed to connect to content store: %v", err)
	}

	var completionOpts []completion.Option
	if cfg.OpenAIModel != "" {
		completionOpts = append(completionOpts, completion.WithModel(cfg.OpenAIModel))
	}
	completer := completion.NewClient(cfg.OpenAIKey, completionOpts...)
	synth := synthesize.NewSynthesizer(completer, nil)

	fetcher := scrape.NewDirectFetcher()
	var scraper scrape.Scraper = fetcher
	if cfg.ScraperAPIKey != "" {
		scraper = scrape.NewAPIScraper(cfg.ScraperAPIKey)
	}

	transcriber := transcribe.NewDeepgramClient(cfg.DeepgramKey)
	mediaExtractor := media.NewExtractor(fetcher, &media.FFmpegTranscoder{}, transcriber, "")

	var meta pipeline.AssetMetaSource
	if cfg.PostgresDSN != "" {
		assetStore := db.NewAssetMetaStore(db.PostgresConfig{DSN: cfg.PostgresDSN})
		if err := assetStore.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect to asset metadata store: %v", err)
		}
		defer assetStore.Close()
		meta = assetStore
	}

	var records pipeline.ArtifactRecorder
	if cfg.MongoURI != "" {
		artifactStore := db.NewArtifactStore(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err := artifactStore.Connect(ctx); err != nil {
			log.Fatalf("Failed to connect to artifact record store: %v", err)
		}
		defer artifactStore.Close(ctx)
		records = artifactStore
	}

	converter := pipeline.NewConverter(
		scraper,
		fetcher,
		mediaExtractor,
		synth,
		publish.NewPublisher(contentStore),
		contentStore,
		meta,
		records,
		nil,
	)

	dest := domain.Destination{
		AccountID:    envOr("ACCOUNT_ID", "default"),
		CollectionID: envOr("COLLECTION_ID", "default"),
	}
	opts := pipeline.Options{IdentifySpeakers: true}

	var artifact *domain.Artifact
	switch mode {
	case "text":
		artifact, err = converter.ConvertURLToText(ctx, url, dest, opts)
	case "markdown":
		artifact, err = converter.ConvertURLToMarkdown(ctx, url, dest, opts)
	case "facts":
		artifact, err = converter.ConvertURLToFacts(ctx, url, dest, opts)
	default:
		log.Fatalf("Unknown mode %q (want text, markdown, facts, or history)", mode)
	}
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}

	out, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode artifact: %v", err)
	}
	fmt.Println(string(out))
}

// printHistory lists the artifacts previously published for a source URL.
func printHistory(ctx context.Context, cfg config.Config, url string) {
	if cfg.MongoURI == "" {
		log.Fatal("MONGO_URI is required for history")
	}
	artifactStore := db.NewArtifactStore(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	if err := artifactStore.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to artifact record store: %v", err)
	}
	defer artifactStore.Close(ctx)

	artifacts, err := artifactStore.ArtifactsForOrigin(ctx, url)
	if err != nil {
		log.Fatalf("Failed to look up artifacts: %v", err)
	}

	out, err := json.MarshalIndent(artifacts, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode artifacts: %v", err)
	}
	fmt.Println(string(out))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
