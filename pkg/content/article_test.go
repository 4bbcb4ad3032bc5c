package content

import (
	"strings"
	"testing"
)

const articleFixture = `<!DOCTYPE html>
<html>
<head>
<title>Payments Trends 2024 - Example News</title>
<meta property="article:published_time" content="2024-03-15T10:30:00Z">
</head>
<body>
<nav><a href="/home">Home</a><a href="/about">About</a></nav>
<article>
<h1>Payments Trends 2024</h1>
<p>Consumer spending on digital wallets grew sharply this year, according to
industry analysts who track the sector closely and publish quarterly data.</p>
<p>Merchants reported that contactless acceptance reduced checkout times and
improved customer satisfaction across nearly every retail category surveyed.</p>
<p>Analysts expect the trend to continue into next year as issuers expand
tokenization programs and consumers grow more comfortable with mobile payments.</p>
<p>Regulators in several markets have opened consultations on interchange caps
for wallet-funded transactions, a move that acquirers say could reshape the
economics of acceptance for small merchants over the coming years.</p>
<p>Industry groups counter that the current fee structures fund fraud
prevention and network resilience, and warn that aggressive caps could slow
the rollout of tokenization to smaller issuers in emerging markets.</p>
<p>Meanwhile, banks continue to invest in real-time settlement rails, betting
that faster clearing will matter more to merchants than marginal differences
in per-transaction pricing as volumes keep shifting away from cash.</p>
</article>
<footer>Copyright 2024</footer>
</body>
</html>`

func TestExtractArticle(t *testing.T) {
	article, err := ExtractArticle(articleFixture, "https://example.com/news/payments-trends-2024")
	if err != nil {
		t.Fatalf("ExtractArticle returned error: %v", err)
	}

	if !strings.Contains(article.Title, "Payments Trends 2024") {
		t.Errorf("title = %q", article.Title)
	}
	if article.Date != "2024-03-15" {
		t.Errorf("date = %q, want 2024-03-15", article.Date)
	}
	if !strings.Contains(article.PlainText, "digital wallets") {
		t.Errorf("plain text missing article body: %q", article.PlainText)
	}
	if strings.Contains(article.PlainText, "Copyright 2024") {
		t.Errorf("plain text contains boilerplate: %q", article.PlainText)
	}
}

func TestExtractArticle_EmptyHTML(t *testing.T) {
	if _, err := ExtractArticle("   ", "https://example.com"); err == nil {
		t.Fatal("expected error for empty HTML")
	}
}

func TestExtractArticle_FallbackWholePage(t *testing.T) {
	page := `<html><body><div>no article markup here, just a bare div with words</div></body></html>`
	article, err := ExtractArticle(page, "https://example.com/x")
	if err != nil {
		t.Fatalf("ExtractArticle returned error: %v", err)
	}
	if article.Title != "" {
		t.Errorf("fallback title = %q, want empty", article.Title)
	}
	if article.Date != CurrentDate() {
		t.Errorf("fallback date = %q, want processing date", article.Date)
	}
	if !strings.Contains(article.PlainText, "bare div with words") {
		t.Errorf("fallback text = %q", article.PlainText)
	}
}

func TestMarkdownFromArticle(t *testing.T) {
	article, err := ExtractArticle(articleFixture, "https://example.com/news/payments-trends-2024")
	if err != nil {
		t.Fatalf("ExtractArticle returned error: %v", err)
	}

	markdown, err := MarkdownFromArticle(article)
	if err != nil {
		t.Fatalf("MarkdownFromArticle returned error: %v", err)
	}
	if !strings.HasPrefix(markdown, "# ") {
		t.Errorf("markdown must start with H1 title, got %q", markdown[:min(40, len(markdown))])
	}
	if !strings.Contains(markdown, "digital wallets") {
		t.Errorf("markdown missing body content")
	}
}

func TestStripBracketedLinks(t *testing.T) {
	in := "Read the report [https://example.com/report.pdf] for details."
	got := StripBracketedLinks(in)
	if strings.Contains(got, "[http") {
		t.Errorf("bracketed link survived: %q", got)
	}
	if !strings.Contains(got, "for details.") {
		t.Errorf("surrounding text lost: %q", got)
	}
}

func TestTextFromHTML_Paragraphs(t *testing.T) {
	html := `<html><body><p>first   paragraph</p><p>second
paragraph</p></body></html>`
	got, err := TextFromHTML(html)
	if err != nil {
		t.Fatalf("TextFromHTML returned error: %v", err)
	}
	want := "first paragraph\nsecond paragraph"
	if got != want {
		t.Errorf("TextFromHTML = %q, want %q", got, want)
	}
}

func TestCollapsePDFLineBreaks(t *testing.T) {
	in := "first line\nstill first paragraph\n\nsecond paragraph\ncontinues here"
	got := CollapsePDFLineBreaks(in)
	want := "first line still first paragraph\nsecond paragraph continues here"
	if got != want {
		t.Errorf("CollapsePDFLineBreaks = %q, want %q", got, want)
	}
}
