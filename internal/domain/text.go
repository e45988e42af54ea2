package domain

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Excerpt strips markup from an HTML fragment, collapses whitespace and
// truncates the result to limit runes.
func Excerpt(html string, limit int) string {
	text := html
	if strings.ContainsAny(html, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err == nil {
			text = doc.Text()
		}
	}
	return Truncate(strings.Join(strings.Fields(text), " "), limit)
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
