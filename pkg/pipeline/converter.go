// Package pipeline orchestrates URL-to-artifact conversion: classify the URL,
// run the matching extractor, optionally synthesize facts, and publish the
// result to the content store.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"contentmill/pkg/classify"
	"contentmill/pkg/content"
	"contentmill/pkg/domain"
	"contentmill/pkg/publish"
	"contentmill/pkg/scrape"
	"contentmill/pkg/store"
	"contentmill/pkg/synthesize"
	"contentmill/pkg/transcript"
)

// AssetMetaSource resolves previously-recorded metadata for an uploaded asset
// by file name. A nil meta with nil error means "not found".
type AssetMetaSource interface {
	LookupByFileName(ctx context.Context, fileName string) (*domain.AssetMeta, error)
}

// ArtifactRecorder persists artifact records for later lookup.
type ArtifactRecorder interface {
	SaveArtifact(ctx context.Context, artifact *domain.Artifact) error
}

// MediaExtractor turns a remote audio or video asset into a diarized
// transcript.
type MediaExtractor interface {
	ExtractText(ctx context.Context, rawURL, extension string) (string, error)
}

// Options tune a single conversion.
type Options struct {
	// Markdown publishes the article body as Markdown instead of plain text.
	// Only meaningful for HTML sources.
	Markdown bool

	// SpeakerNames maps diarization indices to display names, ordered by
	// speaker index. Applied to media transcripts.
	SpeakerNames []string

	// IdentifySpeakers resolves speaker names from the transcript itself via
	// the completion backend when no SpeakerNames were supplied.
	IdentifySpeakers bool
}

// TopicsResult describes a published topic digest.
type TopicsResult struct {
	// InfoLink is the public link of the published digest.
	InfoLink string `json:"info_link"`
	// InfoLength is the digest word count; digests of two or fewer words
	// count as zero, since they carry no usable information.
	InfoLength int `json:"info_length"`
}

// Converter turns source URLs into published artifacts.
type Converter struct {
	scraper   scrape.Scraper
	fetcher   *scrape.DirectFetcher
	media     MediaExtractor
	synth     *synthesize.Synthesizer
	publisher *publish.Publisher
	store     store.ContentStore
	meta      AssetMetaSource
	records   ArtifactRecorder
	logger    *slog.Logger
}

// NewConverter wires a converter. meta and records may be nil; the converter
// then skips asset-metadata lookups and record keeping.
func NewConverter(
	scraper scrape.Scraper,
	fetcher *scrape.DirectFetcher,
	media MediaExtractor,
	synth *synthesize.Synthesizer,
	publisher *publish.Publisher,
	contentStore store.ContentStore,
	meta AssetMetaSource,
	records ArtifactRecorder,
	logger *slog.Logger,
) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		scraper:   scraper,
		fetcher:   fetcher,
		media:     media,
		synth:     synth,
		publisher: publisher,
		store:     contentStore,
		meta:      meta,
		records:   records,
		logger:    logger,
	}
}

// ConvertURLToText converts the content behind rawURL into a plain-text
// artifact published under dest.
func (c *Converter) ConvertURLToText(ctx context.Context, rawURL string, dest domain.Destination, opts Options) (*domain.Artifact, error) {
	opts.Markdown = false
	return c.convert(ctx, rawURL, dest, opts)
}

// ConvertURLToMarkdown converts the content behind rawURL into a Markdown
// artifact. Non-HTML sources have no markup to preserve and publish as plain
// text.
func (c *Converter) ConvertURLToMarkdown(ctx context.Context, rawURL string, dest domain.Destination, opts Options) (*domain.Artifact, error) {
	opts.Markdown = true
	return c.convert(ctx, rawURL, dest, opts)
}

func (c *Converter) convert(ctx context.Context, rawURL string, dest domain.Destination, opts Options) (*domain.Artifact, error) {
	kind := classify.FromURL(rawURL)
	if kind == classify.KindUnknown {
		return nil, convertErr(StageClassification, fmt.Sprintf("cannot classify %s", rawURL), nil)
	}

	var (
		artifact *domain.Artifact
		err      error
	)
	switch kind {
	case classify.KindHTML:
		artifact, err = c.htmlToArtifact(ctx, rawURL, dest, opts)
	case classify.KindPDF:
		artifact, err = c.pdfToArtifact(ctx, rawURL, dest)
	default:
		artifact, err = c.mediaToArtifact(ctx, rawURL, dest, kind, opts)
	}
	if err != nil {
		return nil, err
	}

	c.record(ctx, artifact)
	return artifact, nil
}

func (c *Converter) htmlToArtifact(ctx context.Context, rawURL string, dest domain.Destination, opts Options) (*domain.Artifact, error) {
	html, err := c.fetchHTML(ctx, rawURL)
	if err != nil {
		return nil, convertErr(StageFetch, "fetch page", err)
	}

	article, err := content.ExtractArticle(html, rawURL)
	if err != nil {
		return nil, convertErr(StageConversion, "extract article", err)
	}

	body := article.PlainText
	subtype := publish.SubtypeText
	if opts.Markdown {
		markdown, err := content.MarkdownFromArticle(article)
		if err != nil {
			return nil, convertErr(StageConversion, "render markdown", err)
		}
		body = markdown
		subtype = publish.SubtypeMarkdown
	}

	return c.publish(ctx, publish.Request{
		Dest:      dest,
		Body:      body,
		Subtype:   subtype,
		Title:     article.Title,
		Date:      article.Date,
		Type:      classify.KindHTML.String(),
		OriginURL: rawURL,
	})
}

// pdfText extracts the PDF behind rawURL. Self-hosted PDFs are read straight
// from the content store; everything else is downloaded to a scratch file.
func (c *Converter) pdfText(ctx context.Context, rawURL string) (string, error) {
	if c.isSelfHosted(rawURL) {
		key, err := store.KeyFromLink(rawURL, c.store.PublicHost())
		if err == nil {
			data, err := c.store.Get(ctx, key)
			if err != nil {
				return "", convertErr(StageFetch, "read stored pdf", err)
			}
			text, err := content.ExtractTextFromPDFReader(bytes.NewReader(data))
			if err != nil {
				return "", convertErr(StageConversion, "extract pdf text", err)
			}
			return text, nil
		}
	}

	scratch := filepath.Join(os.TempDir(), uuid.NewString()+".pdf")
	if err := c.fetcher.Download(ctx, rawURL, scratch); err != nil {
		return "", convertErr(StageFetch, "download pdf", err)
	}
	defer os.Remove(scratch)

	text, err := content.ExtractTextFromPDFFile(scratch)
	if err != nil {
		return "", convertErr(StageConversion, "extract pdf text", err)
	}
	return text, nil
}

// fetchHTML routes self-hosted content past the scraping proxy: pages already
// sitting in our own store are static and the proxy spends a rate budget.
func (c *Converter) fetchHTML(ctx context.Context, rawURL string) (string, error) {
	if c.isSelfHosted(rawURL) {
		return c.fetcher.FetchRenderedHTML(ctx, rawURL)
	}
	return c.scraper.FetchRenderedHTML(ctx, rawURL)
}

func (c *Converter) isSelfHosted(rawURL string) bool {
	if c.store == nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, c.store.PublicHost())
}

func (c *Converter) pdfToArtifact(ctx context.Context, rawURL string, dest domain.Destination) (*domain.Artifact, error) {
	text, err := c.pdfText(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	meta := c.assetMeta(ctx, rawURL, classify.KindPDF)
	return c.publish(ctx, publish.Request{
		Dest:      dest,
		Body:      text,
		Subtype:   publish.SubtypeText,
		Title:     meta.Title,
		Date:      meta.Date,
		Type:      classify.KindPDF.String(),
		OriginURL: rawURL,
	})
}

func (c *Converter) mediaToArtifact(ctx context.Context, rawURL string, dest domain.Destination, kind classify.Kind, opts Options) (*domain.Artifact, error) {
	text, err := c.media.ExtractText(ctx, rawURL, classify.Extension(rawURL))
	if err != nil {
		return nil, convertErr(StageConversion, "extract media transcript", err)
	}

	text = c.resolveSpeakers(ctx, text, opts)

	meta := c.assetMeta(ctx, rawURL, kind)
	return c.publish(ctx, publish.Request{
		Dest:      dest,
		Body:      text,
		Subtype:   publish.SubtypeText,
		Title:     meta.Title,
		Date:      meta.Date,
		Type:      kind.String(),
		OriginURL: rawURL,
	})
}

// resolveSpeakers replaces anonymous diarization labels with display names,
// either caller-supplied or identified from the transcript opening.
func (c *Converter) resolveSpeakers(ctx context.Context, text string, opts Options) string {
	names := opts.SpeakerNames
	if len(names) == 0 && opts.IdentifySpeakers && c.synth != nil {
		chunks := transcript.SplitBySpeaker(text)
		labels := transcript.Labels(chunks)
		if buckets := transcript.RechunkByWordBudget(chunks, transcript.DefaultMaxWords); len(buckets) > 0 {
			names = c.synth.IdentifySpeakers(ctx, buckets[0], labels)
		}
	}
	if len(names) == 0 {
		return text
	}
	return transcript.ResolveSpeakerNames(text, names)
}

// assetMeta resolves recorded metadata for the asset, falling back to
// URL-derived values: file name as title, processing date as date.
func (c *Converter) assetMeta(ctx context.Context, rawURL string, kind classify.Kind) domain.AssetMeta {
	fallback := domain.AssetMeta{
		Title: fileNameFromURL(rawURL),
		Date:  content.CurrentDate(),
		Type:  kind.String(),
	}
	if c.meta == nil {
		return fallback
	}

	meta, err := c.meta.LookupByFileName(ctx, fallback.Title)
	if err != nil {
		c.logger.Warn("asset metadata lookup failed", "url", rawURL, "error", err)
		return fallback
	}
	if meta == nil {
		return fallback
	}
	if meta.Title == "" {
		meta.Title = fallback.Title
	}
	if meta.Date == "" {
		meta.Date = fallback.Date
	}
	return *meta
}

func fileNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return path.Base(u.Path)
}

// ConvertURLToFacts extracts the text behind rawURL, synthesizes facts,
// quotes and links from it, and publishes the bundle as a JSON artifact.
func (c *Converter) ConvertURLToFacts(ctx context.Context, rawURL string, dest domain.Destination, opts Options) (*domain.Artifact, error) {
	text, meta, err := c.extractText(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}

	bundle := c.synth.FactBundle(ctx, text)
	body, err := json.Marshal(bundle)
	if err != nil {
		return nil, convertErr(StageCompletion, "encode fact bundle", err)
	}

	artifact, err := c.publish(ctx, publish.Request{
		Dest:      dest,
		Body:      string(body),
		Subtype:   publish.SubtypeJSON,
		Title:     meta.Title,
		Date:      meta.Date,
		Type:      meta.Type,
		OriginURL: rawURL,
	})
	if err != nil {
		return nil, err
	}

	c.record(ctx, artifact)
	return artifact, nil
}

// extractText runs the kind-appropriate extractor and returns the canonical
// text plus display metadata.
func (c *Converter) extractText(ctx context.Context, rawURL string, opts Options) (string, domain.AssetMeta, error) {
	kind := classify.FromURL(rawURL)
	switch kind {
	case classify.KindUnknown:
		return "", domain.AssetMeta{}, convertErr(StageClassification, fmt.Sprintf("cannot classify %s", rawURL), nil)

	case classify.KindHTML:
		html, err := c.fetchHTML(ctx, rawURL)
		if err != nil {
			return "", domain.AssetMeta{}, convertErr(StageFetch, "fetch page", err)
		}
		article, err := content.ExtractArticle(html, rawURL)
		if err != nil {
			return "", domain.AssetMeta{}, convertErr(StageConversion, "extract article", err)
		}
		return article.PlainText, domain.AssetMeta{
			Title: article.Title,
			Date:  article.Date,
			Type:  kind.String(),
		}, nil

	case classify.KindPDF:
		text, err := c.pdfText(ctx, rawURL)
		if err != nil {
			return "", domain.AssetMeta{}, err
		}
		return text, c.assetMeta(ctx, rawURL, kind), nil

	default:
		text, err := c.media.ExtractText(ctx, rawURL, classify.Extension(rawURL))
		if err != nil {
			return "", domain.AssetMeta{}, convertErr(StageConversion, "extract media transcript", err)
		}
		return c.resolveSpeakers(ctx, text, opts), c.assetMeta(ctx, rawURL, kind), nil
	}
}

// FilterTopics reads the previously published text behind link from the
// content store, extracts the information related to each topic, and
// publishes the concatenated digest as a new text artifact under dest.
func (c *Converter) FilterTopics(ctx context.Context, link string, topics []string, dest domain.Destination) (*TopicsResult, error) {
	key, err := store.KeyFromLink(link, c.store.PublicHost())
	if err != nil {
		return nil, convertErr(StageFetch, "resolve store key", err)
	}

	body, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, convertErr(StageFetch, "read stored text", err)
	}

	infos := c.synth.InfoForTopics(ctx, string(body), topics)
	var kept []string
	for _, info := range infos {
		if info != "" {
			kept = append(kept, info)
		}
	}
	digest := strings.Join(kept, "\n")
	if strings.TrimSpace(digest) == "" {
		return &TopicsResult{}, nil
	}

	artifact, err := c.publish(ctx, publish.Request{
		Dest:    dest,
		Body:    digest,
		Subtype: publish.SubtypeText,
		Title:   strings.Join(topics, ", "),
		Date:    content.CurrentDate(),
		Type:    "text",
	})
	if err != nil {
		return nil, err
	}
	c.record(ctx, artifact)

	length := artifact.Length
	// A couple of stray words is noise, not information.
	if length <= 2 {
		length = 0
	}
	return &TopicsResult{InfoLink: artifact.Link, InfoLength: length}, nil
}

// TopicFacts pairs a topic with the facts extracted for it.
type TopicFacts struct {
	Topic string `json:"topic"`
	domain.FactBundle
}

// TopicsToFacts reads the previously published text behind link from the
// content store, extracts a topic-filtered fact bundle per topic, and
// publishes the bundles as one JSON artifact, in topic order.
func (c *Converter) TopicsToFacts(ctx context.Context, link string, topics []string, dest domain.Destination) (*domain.Artifact, error) {
	key, err := store.KeyFromLink(link, c.store.PublicHost())
	if err != nil {
		return nil, convertErr(StageFetch, "resolve store key", err)
	}

	text, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, convertErr(StageFetch, "read stored text", err)
	}

	bundles := c.synth.FactBundlesForTopics(ctx, string(text), topics)
	results := make([]TopicFacts, len(topics))
	for i, topic := range topics {
		results[i] = TopicFacts{Topic: topic, FactBundle: *bundles[i]}
	}
	body, err := json.Marshal(results)
	if err != nil {
		return nil, convertErr(StageCompletion, "encode topic facts", err)
	}

	artifact, err := c.publish(ctx, publish.Request{
		Dest:    dest,
		Body:    string(body),
		Subtype: publish.SubtypeJSON,
		Title:   strings.Join(topics, ", "),
		Date:    content.CurrentDate(),
		Type:    "text",
	})
	if err != nil {
		return nil, err
	}
	c.record(ctx, artifact)
	return artifact, nil
}

// UpdateLink overwrites the stored body behind an existing artifact link with
// new content, keeping the key and the public link stable.
func (c *Converter) UpdateLink(ctx context.Context, link, body string) error {
	key, err := store.KeyFromLink(link, c.store.PublicHost())
	if err != nil {
		return convertErr(StagePublish, "resolve store key", err)
	}
	if _, err := c.store.Put(ctx, key, []byte(body), contentTypeForKey(key)); err != nil {
		return convertErr(StagePublish, "overwrite stored content", err)
	}
	return nil
}

func contentTypeForKey(key string) string {
	switch path.Ext(key) {
	case ".md":
		return "text/markdown"
	case ".json":
		return "application/json"
	default:
		return "text/plain"
	}
}

// TextToArtifact publishes caller-supplied text directly, deriving a title
// from its opening characters.
func (c *Converter) TextToArtifact(ctx context.Context, text string, dest domain.Destination) (*domain.Artifact, error) {
	title := strings.TrimSpace(text)
	if runes := []rune(title); len(runes) > 20 {
		title = string(runes[:20]) + "..."
	}

	artifact, err := c.publish(ctx, publish.Request{
		Dest:    dest,
		Body:    text,
		Subtype: publish.SubtypeText,
		Title:   title,
		Date:    content.CurrentDate(),
		Type:    "text",
	})
	if err != nil {
		return nil, err
	}
	c.record(ctx, artifact)
	return artifact, nil
}

func (c *Converter) publish(ctx context.Context, req publish.Request) (*domain.Artifact, error) {
	artifact, err := c.publisher.Publish(ctx, req)
	if err != nil {
		return nil, convertErr(StagePublish, "publish artifact", err)
	}
	return artifact, nil
}

// record persists the artifact record best-effort; conversions succeed even
// when record keeping is down.
func (c *Converter) record(ctx context.Context, artifact *domain.Artifact) {
	if c.records == nil || artifact == nil {
		return
	}
	if err := c.records.SaveArtifact(ctx, artifact); err != nil {
		c.logger.Warn("save artifact record failed", "artifact_id", artifact.ID, "error", err)
	}
}
