package blog

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// ExcerptLength caps derived excerpts, in runes.
const ExcerptLength = 280

// Excerpt derives a plain-text teaser from the first non-empty paragraph of
// an HTML body. Bodies without paragraphs fall back to the document text.
func Excerpt(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	var text string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text = collapse(p.Text())
		return text == ""
	})
	if text == "" {
		text = collapse(doc.Text())
	}
	return truncate(text, ExcerptLength)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)[:limit]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// ReadingMinutes estimates reading time at 200 words per minute, minimum 1.
func ReadingMinutes(body string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return 1
	}
	words := len(strings.Fields(doc.Text()))
	minutes := (words + 199) / 200
	if minutes < 1 {
		return 1
	}
	return minutes
}
