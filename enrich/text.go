package enrich

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	markupExpr = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)

	// NewsAPI cuts content and appends a marker such as "… [+2314 chars]".
	truncationExpr = regexp.MustCompile(`\s*(?:…|\.\.\.)?\s*\[\+\d+ chars\]\s*$`)
)

// blockElements get a separating space so adjacent paragraphs do not run together.
const blockElements = "p, div, br, li, tr, h1, h2, h3, h4, h5, h6, blockquote"

// CleanText prepares source text for the oracle: markup is stripped, entities
// decoded, the source's truncation marker dropped, and whitespace collapsed.
func CleanText(s string) string {
	if markupExpr.MatchString(s) {
		s = stripMarkup(s)
	} else {
		s = html.UnescapeString(s)
	}
	s = truncationExpr.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func stripMarkup(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return markupExpr.ReplaceAllString(s, " ")
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find(blockElements).Each(func(_ int, sel *goquery.Selection) {
		sel.AfterHtml(" ")
	})
	return doc.Text()
}
