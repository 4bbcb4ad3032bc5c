package feeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"contentmill/pkg/domain"
	"contentmill/pkg/pipeline"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Example Feed</title>
<item><title>First</title><link>https://example.com/articles/first</link></item>
<item><title>Second</title><link>https://example.com/articles/second</link></item>
<item><title>Third</title><link>https://example.com/articles/third</link></item>
</channel>
</rss>`

type fakeURLConverter struct {
	mu     sync.Mutex
	failed map[string]bool
	urls   []string
}

func (f *fakeURLConverter) ConvertURLToText(ctx context.Context, rawURL string, dest domain.Destination, opts pipeline.Options) (*domain.Artifact, error) {
	f.mu.Lock()
	f.urls = append(f.urls, rawURL)
	f.mu.Unlock()

	if f.failed[rawURL] {
		return nil, errors.New("conversion failed")
	}
	return &domain.Artifact{ID: rawURL, OriginURL: rawURL, Status: "success"}, nil
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedFixture))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestConvertFeed(t *testing.T) {
	server := feedServer(t)
	urls := &fakeURLConverter{}
	conv := NewConverter(urls, 2)

	artifacts, err := conv.ConvertFeed(context.Background(), server.URL, domain.Destination{}, 0)
	if err != nil {
		t.Fatalf("ConvertFeed returned error: %v", err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("artifacts = %d, want 3", len(artifacts))
	}
	for i, want := range []string{"first", "second", "third"} {
		if !strings.HasSuffix(artifacts[i].OriginURL, want) {
			t.Errorf("artifacts[%d] = %q, want suffix %q", i, artifacts[i].OriginURL, want)
		}
	}
}

func TestConvertFeed_MaxItems(t *testing.T) {
	server := feedServer(t)
	urls := &fakeURLConverter{}
	conv := NewConverter(urls, 2)

	artifacts, err := conv.ConvertFeed(context.Background(), server.URL, domain.Destination{}, 2)
	if err != nil {
		t.Fatalf("ConvertFeed returned error: %v", err)
	}
	if len(artifacts) != 2 {
		t.Errorf("artifacts = %d, want 2", len(artifacts))
	}
}

func TestConvertFeed_SkipsFailedEntries(t *testing.T) {
	server := feedServer(t)
	urls := &fakeURLConverter{failed: map[string]bool{"https://example.com/articles/second": true}}
	conv := NewConverter(urls, 2)

	artifacts, err := conv.ConvertFeed(context.Background(), server.URL, domain.Destination{}, 0)
	if err != nil {
		t.Fatalf("ConvertFeed returned error: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("artifacts = %d, want 2", len(artifacts))
	}
	if !strings.HasSuffix(artifacts[0].OriginURL, "first") || !strings.HasSuffix(artifacts[1].OriginURL, "third") {
		t.Errorf("artifacts = %q, %q", artifacts[0].OriginURL, artifacts[1].OriginURL)
	}
}

func TestConvertFeed_AllEntriesFail(t *testing.T) {
	server := feedServer(t)
	urls := &fakeURLConverter{failed: map[string]bool{
		"https://example.com/articles/first":  true,
		"https://example.com/articles/second": true,
		"https://example.com/articles/third":  true,
	}}
	conv := NewConverter(urls, 2)

	if _, err := conv.ConvertFeed(context.Background(), server.URL, domain.Destination{}, 0); err == nil {
		t.Fatal("expected error when every entry fails")
	}
}

func TestConvertFeed_UnreachableFeed(t *testing.T) {
	conv := NewConverter(&fakeURLConverter{}, 2)
	if _, err := conv.ConvertFeed(context.Background(), "http://127.0.0.1:1/feed.xml", domain.Destination{}, 0); err == nil {
		t.Fatal("expected error for unreachable feed")
	}
}
