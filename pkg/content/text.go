package content

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// bracketedLinkPattern matches raw-link artifacts like "[http://...]" left
// behind by text conversion of anchor-heavy markup.
var bracketedLinkPattern = regexp.MustCompile(`\[http[^\]\s]*\]`)

// blockSelector lists the block-level elements whose text is collected as
// paragraphs.
const blockSelector = "p, h1, h2, h3, h4, h5, h6, li, blockquote, pre, td"

// TextFromHTML converts an HTML fragment into plain text. Block-level
// elements become newline-separated paragraphs; pages without block markup
// fall back to whitespace-normalized body text.
func TextFromHTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var paragraphs []string
	root.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		// Skip containers whose text is already covered by a nested block.
		if sel.Find(blockSelector).Length() > 0 {
			return
		}
		if text := normalizeWhitespace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		return normalizeWhitespace(root.Text()), nil
	}
	return strings.Join(paragraphs, "\n"), nil
}

// StripBracketedLinks removes residual "[http...]" artifacts from converted
// text.
func StripBracketedLinks(text string) string {
	return strings.TrimSpace(bracketedLinkPattern.ReplaceAllString(text, ""))
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
