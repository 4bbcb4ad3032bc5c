// Package feeds converts every entry of an RSS or Atom feed into published
// artifacts using a bounded worker pool.
package feeds

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/mmcdole/gofeed"

	"contentmill/pkg/domain"
	"contentmill/pkg/pipeline"
)

// URLConverter converts a single URL into a published artifact.
// *pipeline.Converter satisfies it.
type URLConverter interface {
	ConvertURLToText(ctx context.Context, rawURL string, dest domain.Destination, opts pipeline.Options) (*domain.Artifact, error)
}

// Converter walks a feed and converts its entries.
type Converter struct {
	parser      *gofeed.Parser
	urls        URLConverter
	workerCount int
}

// NewConverter creates a feed converter running workerCount conversions
// concurrently.
func NewConverter(urls URLConverter, workerCount int) *Converter {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &Converter{
		parser:      gofeed.NewParser(),
		urls:        urls,
		workerCount: workerCount,
	}
}

// ConvertFeed fetches the feed and converts up to maxItems entries, returning
// the artifacts in feed order. Individual entry failures are logged and
// skipped; the call errors only when the feed cannot be fetched or every
// entry failed.
func (c *Converter) ConvertFeed(ctx context.Context, feedURL string, dest domain.Destination, maxItems int) ([]*domain.Artifact, error) {
	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	var links []string
	for _, item := range feed.Items {
		if maxItems > 0 && len(links) == maxItems {
			break
		}
		if item.Link != "" {
			links = append(links, item.Link)
		}
	}
	if len(links) == 0 {
		return nil, fmt.Errorf("feed %s contains no linked entries", feedURL)
	}

	type job struct {
		index int
		link  string
	}
	jobChan := make(chan job, len(links))
	for i, link := range links {
		jobChan <- job{index: i, link: link}
	}
	close(jobChan)

	results := make([]*domain.Artifact, len(links))

	var wg sync.WaitGroup
	for i := 0; i < c.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobChan {
				artifact, err := c.urls.ConvertURLToText(ctx, j.link, dest, pipeline.Options{})
				if err != nil {
					log.Printf("feed entry %s: %v", j.link, err)
					continue
				}
				results[j.index] = artifact
			}
		}()
	}
	wg.Wait()

	var artifacts []*domain.Artifact
	for _, artifact := range results {
		if artifact != nil {
			artifacts = append(artifacts, artifact)
		}
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("all %d entries of feed %s failed to convert", len(links), feedURL)
	}
	return artifacts, nil
}
