package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestAPIScraper_FetchRenderedHTML(t *testing.T) {
	var gotTarget, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.URL.Query().Get("url")
		gotKey = r.URL.Query().Get("api_key")
		w.Write([]byte("<html><body>rendered</body></html>"))
	}))
	defer server.Close()

	s := NewAPIScraper("secret")
	s.SetEndpoint(server.URL)

	html, err := s.FetchRenderedHTML(context.Background(), "https://example.com/page")
	if err != nil {
		t.Fatalf("FetchRenderedHTML returned error: %v", err)
	}
	if html == "" {
		t.Fatal("expected non-empty HTML")
	}
	if gotTarget != "https://example.com/page" {
		t.Errorf("proxy target = %q", gotTarget)
	}
	if gotKey != "secret" {
		t.Errorf("api key = %q", gotKey)
	}
}

func TestAPIScraper_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s := NewAPIScraper("secret")
	s.SetEndpoint(server.URL)

	if _, err := s.FetchRenderedHTML(context.Background(), "https://example.com"); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestDirectFetcher_Download(t *testing.T) {
	payload := []byte("binary media payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "scratch.mp3")
	f := NewDirectFetcher()
	if err := f.Download(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("downloaded bytes = %q, want %q", got, payload)
	}
}

func TestDirectFetcher_DownloadErrorLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "scratch.mp3")
	f := NewDirectFetcher()
	if err := f.Download(context.Background(), server.URL, dest); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("scratch file must not exist after failed download")
	}
}
