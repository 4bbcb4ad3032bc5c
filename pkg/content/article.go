// Package content extracts canonical text from fetched payloads: readability
// article extraction with a whole-page fallback for HTML, and text extraction
// with paragraph-preserving line-break collapse for PDFs.
package content

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
)

var (
	errEmptyHTML = errors.New("empty HTML content")
)

const dateLayout = "2006-01-02"

// Article is the normalized result of extracting a web page.
type Article struct {
	// Title is empty when the whole-page fallback was used.
	Title string

	// Date is the published date as a calendar date (YYYY-MM-DD), defaulting
	// to the processing date when absent or unparseable.
	Date string

	// ContentHTML is the extracted article body as HTML. Empty for the
	// whole-page fallback.
	ContentHTML string

	// PlainText is the canonical plain-text rendition of the article.
	PlainText string
}

// ExtractArticle runs a readability pass over the page and normalizes the
// result. When no structured article can be found, it falls back to a raw
// HTML-to-text conversion over the whole page with an empty title and the
// current date.
func ExtractArticle(htmlContent, pageURL string) (*Article, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return nil, errEmptyHTML
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(htmlContent), parsedURL)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return wholePageFallback(htmlContent)
	}

	text, err := TextFromHTML(article.Content)
	if err != nil || strings.TrimSpace(text) == "" {
		return wholePageFallback(htmlContent)
	}

	return &Article{
		Title:       strings.TrimSpace(article.Title),
		Date:        publishedDate(article.PublishedTime, htmlContent),
		ContentHTML: article.Content,
		PlainText:   StripBracketedLinks(text),
	}, nil
}

func wholePageFallback(htmlContent string) (*Article, error) {
	text, err := TextFromHTML(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("whole-page fallback: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errEmptyHTML
	}
	return &Article{
		Title:     "",
		Date:      CurrentDate(),
		PlainText: StripBracketedLinks(text),
	}, nil
}

// publishedDate normalizes the article's published time to a calendar date,
// consulting common metadata tags when readability found nothing, and
// defaulting to the processing date.
func publishedDate(published *time.Time, htmlContent string) string {
	if published != nil {
		return published.Format(dateLayout)
	}
	if raw := publishedMeta(htmlContent); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.Format(dateLayout)
		}
	}
	return CurrentDate()
}

func publishedMeta(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	if v, ok := doc.Find("meta[property='article:published_time']").Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find("meta[name='date']").Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return ""
}

// MarkdownFromArticle converts the article body to Markdown, prefixing an H1
// with the title when one is known. Articles produced by the whole-page
// fallback have no body HTML; their plain text is returned as-is.
func MarkdownFromArticle(article *Article) (string, error) {
	if article.ContentHTML == "" {
		return article.PlainText, nil
	}

	markdown, err := htmltomarkdown.ConvertString(article.ContentHTML)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	if article.Title != "" {
		markdown = "# " + article.Title + "\n\n" + markdown
	}
	return markdown, nil
}

// CurrentDate returns today as a calendar date.
func CurrentDate() string {
	return time.Now().Format(dateLayout)
}
