package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextRemovesAllHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"script tag", `Hello <script>alert('xss')</script> World`, `Hello  World`},
		{"inline handler", `<div onclick="alert('xss')">Click me</div>`, `Click me`},
		{"mixed tags", `<b>Bold</b> <i>Italic</i>`, `Bold Italic`},
		{"plain text", `  Jane Doe, Partner `, `Jane Doe, Partner`},
		{"ampersand kept literal", `Smith & Jones <i>LLP</i>`, `Smith & Jones LLP`},
		{"quotes decoded", `O'Brien "and" partners`, `O'Brien "and" partners`},
		{"escaped markup stays escaped", `&lt;img src=x onerror=alert(1)&gt;`, `&lt;img src=x onerror=alert(1)&gt;`},
		{"double-escaped entity", `&amp;lt;b&amp;gt;`, `&lt;b&gt;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestTextIsIdempotent(t *testing.T) {
	for _, input := range []string{
		`Smith & Jones`,
		`a < b and c > d`,
		`&lt;img src=x onerror=alert(1)&gt;`,
		`&amp;lt;script&amp;gt;`,
		`Tom "T" O'Neil <em>Esq.</em>`,
	} {
		once := Text(input)
		require.NotContains(t, once, "<", "input %q", input)
		require.Equal(t, once, Text(once), "input %q", input)
	}
}

func TestSectionDataNeverYieldsMarkupInPlainFields(t *testing.T) {
	out := SectionData(map[string]any{"heading": `&lt;img src=x onerror=alert(1)&gt;`})
	require.NotContains(t, out["heading"], "<")
	require.Equal(t, out, SectionData(out))
}

func TestHTMLKeepsFormatting(t *testing.T) {
	out := HTML(`<p>We <strong>win</strong> cases.<script>alert(1)</script></p><a href="javascript:alert(1)">x</a>`)
	require.Contains(t, out, "<strong>win</strong>")
	require.NotContains(t, out, "script")
	require.NotContains(t, out, "javascript:")
}

func TestTextSlice(t *testing.T) {
	require.Nil(t, TextSlice(nil))
	require.Equal(t, []string{"a", "b"}, TextSlice([]string{"<i>a</i>", " ", "b"}))
}

func TestSectionData(t *testing.T) {
	in := map[string]any{
		"heading": `<h1>Welcome</h1>`,
		"html":    `<p>Hi<img src=x onerror=alert(1)></p>`,
		"items": []any{
			map[string]any{"title": "<b>Litigation</b>", "body": "<em>Court</em>"},
		},
		"limit": float64(3),
	}
	out := SectionData(in)

	require.Equal(t, "Welcome", out["heading"])
	require.NotContains(t, out["html"], "onerror")
	require.Contains(t, out["html"], "<p>")
	item := out["items"].([]any)[0].(map[string]any)
	require.Equal(t, "Litigation", item["title"])
	require.Equal(t, "<em>Court</em>", item["body"])
	require.Equal(t, float64(3), out["limit"])
	require.Nil(t, SectionData(nil))
}

func TestEmbedPolicyAllowsHTTPSIframeOnly(t *testing.T) {
	out := EmbedPolicy.Sanitize(`<iframe src="https://maps.example.com/embed?q=1" width="600"></iframe><script>x</script>`)
	require.Contains(t, out, `src="https://maps.example.com/embed?q=1"`)
	require.NotContains(t, out, "script")

	out = EmbedPolicy.Sanitize(`<iframe src="http://insecure.example/embed"></iframe>`)
	require.NotContains(t, out, "insecure")
}
