// Package scrape fetches remote content for the conversion pipeline: rendered
// HTML through a scraping proxy, direct fetches for hosts that do not need
// one, and streaming downloads to scratch files for media and PDFs.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var (
	errEmptyBody = errors.New("fetched body is empty")
)

// Scraper is the collaborator contract for fetching fully rendered page HTML.
type Scraper interface {
	FetchRenderedHTML(ctx context.Context, url string) (string, error)
}

// APIScraper fetches rendered HTML through a scraperapi-compatible proxy,
// which executes JavaScript and works around bot walls.
type APIScraper struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

const defaultScraperEndpoint = "http://api.scraperapi.com"

// NewAPIScraper creates a proxy-backed scraper.
func NewAPIScraper(apiKey string) *APIScraper {
	return &APIScraper{
		// Rendered scrapes routinely take tens of seconds.
		httpClient: &http.Client{Timeout: 90 * time.Second},
		endpoint:   defaultScraperEndpoint,
		apiKey:     apiKey,
	}
}

// SetEndpoint overrides the proxy endpoint (tests point this at a local server).
func (s *APIScraper) SetEndpoint(endpoint string) {
	s.endpoint = endpoint
}

// FetchRenderedHTML asks the proxy to fetch and render the target URL.
func (s *APIScraper) FetchRenderedHTML(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return "", err
	}
	q := req.URL.Query()
	q.Set("api_key", s.apiKey)
	q.Set("url", target)
	q.Set("country_code", "us")
	q.Set("device_type", "desktop")
	req.URL.RawQuery = q.Encode()

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("scrape %s: %w", target, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scrape %s: unexpected status code: %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("scrape %s: read body: %w", target, err)
	}
	if len(body) == 0 {
		return "", errEmptyBody
	}
	return string(body), nil
}

// DirectFetcher fetches URLs without the scraping proxy. It is used for
// self-hosted content (no rendering needed, no proxy rate budget spent) and
// for raw file downloads.
type DirectFetcher struct {
	httpClient *http.Client
}

// NewDirectFetcher creates a direct fetcher with browser-like headers.
func NewDirectFetcher() *DirectFetcher {
	return &DirectFetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchRenderedHTML satisfies Scraper with a plain GET. Self-hosted pages are
// static, so the scraper's rendering adds nothing for them.
func (f *DirectFetcher) FetchRenderedHTML(ctx context.Context, url string) (string, error) {
	body, _, err := f.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if len(body) == 0 {
		return "", errEmptyBody
	}
	return string(body), nil
}

// Fetch GETs the URL and returns the body and content type.
func (f *DirectFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	setBrowserHeaders(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: unexpected status code: %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: read body: %w", url, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// Download streams the URL to destPath. The caller owns the scratch file and
// must remove it when done.
func (f *DirectFetcher) Download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	setBrowserHeaders(req)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status code: %d", url, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("download %s: %w", url, err)
	}
	return out.Close()
}

// Browser-like headers avoid 406 responses from sites that reject the Go
// default User-Agent.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
}

func drainAndClose(rc io.ReadCloser) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
