package blog

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestExcerptFirstParagraph(t *testing.T) {
	body := `<h2>Intro</h2><p>   </p><p>New rules on <strong>non-compete</strong>
	clauses take effect.</p><p>Second paragraph.</p>`
	require.Equal(t, "New rules on non-compete clauses take effect.", Excerpt(body))
}

func TestExcerptFallsBackToText(t *testing.T) {
	require.Equal(t, "Just a heading", Excerpt("<h1>Just a heading</h1>"))
	require.Equal(t, "", Excerpt(""))
}

func TestExcerptTruncatesOnWordBoundary(t *testing.T) {
	body := "<p>" + strings.Repeat("litigation ", 60) + "</p>"
	got := Excerpt(body)
	require.True(t, strings.HasSuffix(got, "…"))
	require.LessOrEqual(t, utf8.RuneCountInString(got), ExcerptLength+1)
	require.False(t, strings.Contains(got, "litigatio…"))
}

func TestReadingMinutes(t *testing.T) {
	require.Equal(t, 1, ReadingMinutes("<p>short</p>"))
	require.Equal(t, 3, ReadingMinutes("<p>"+strings.Repeat("word ", 450)+"</p>"))
}
