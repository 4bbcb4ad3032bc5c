// Command feedconvert converts every entry of an RSS or Atom feed into
// published text artifacts.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"contentmill/pkg/completion"
	"contentmill/pkg/config"
	"contentmill/pkg/domain"
	"contentmill/pkg/feeds"
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
		fmt.Fprintln(os.Stderr, "usage: feedconvert <feed-url> [max-items]")
		os.Exit(2)
	}
	feedURL := os.Args[1]
	maxItems := 0
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n < 0 {
			log.Fatalf("Invalid max-items %q", os.Args[2])
		}
		maxItems = n
	}

	cfg := config.Load()
	if cfg.S3.Bucket == "" {
		log.Fatal("S3_BUCKET is required")
	}

	ctx := context.Background()

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

	converter := pipeline.NewConverter(
		scraper,
		fetcher,
		mediaExtractor,
		synth,
		publish.NewPublisher(contentStore),
		contentStore,
		nil,
		nil,
		nil,
	)

	dest := domain.Destination{
		AccountID:    envOr("ACCOUNT_ID", "default"),
		CollectionID: envOr("COLLECTION_ID", "default"),
	}

	feedConverter := feeds.NewConverter(converter, cfg.WorkerCount)
	artifacts, err := feedConverter.ConvertFeed(ctx, feedURL, dest, maxItems)
	if err != nil {
		log.Fatalf("Feed conversion failed: %v", err)
	}

	log.Printf("Converted %d entries", len(artifacts))
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
