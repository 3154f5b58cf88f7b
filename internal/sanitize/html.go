package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy allows the formatting an editor produces for rich text
	// sections, blog bodies and job descriptions.
	UGCPolicy = bluemonday.UGCPolicy()

	// EmbedPolicy admits a single map iframe from the known map providers.
	EmbedPolicy = newEmbedPolicy()
)

func newEmbedPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("iframe")
	p.AllowAttrs("src").OnElements("iframe")
	p.AllowAttrs("width", "height", "loading", "title", "referrerpolicy").OnElements("iframe")
	p.AllowURLSchemes("https")
	p.RequireParseableURLs(true)
	return p
}

// Text strips all HTML tags and returns trimmed plain text. Ampersands and
// quotes are decoded again because templates escape on output: "Smith &amp;
// Jones" is stored as "Smith & Jones". Angle brackets stay escaped so the
// result never contains markup.
func Text(input string) string {
	return strings.TrimSpace(stripTags(input))
}

var plainEntities = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", `"`, "&quot;", `"`, "&#13;", "\r")

func stripTags(input string) string {
	return plainEntities.Replace(StrictPolicy.Sanitize(input))
}

// HTML sanitizes rich text, allowing safe formatting tags.
// Removes <script>, <iframe>, event handlers, style attributes.
func HTML(input string) string {
	return UGCPolicy.Sanitize(input)
}

// TextSlice sanitizes each string in a slice, removing all HTML. Entries
// that are blank after sanitizing are dropped.
func TextSlice(inputs []string) []string {
	if inputs == nil {
		return nil
	}
	sanitized := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if v := Text(input); v != "" {
			sanitized = append(sanitized, v)
		}
	}
	return sanitized
}

// RichFields lists section data keys whose values hold editor HTML.
var RichFields = map[string]bool{
	"html": true,
	"body": true,
}

// SectionData returns a copy of data where every string value is stripped of
// HTML except keys in RichFields, which get the UGC policy. Nested objects and
// arrays are walked.
func SectionData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = sanitizeValue(key, value)
	}
	return out
}

func sanitizeValue(key string, value any) any {
	switch v := value.(type) {
	case string:
		if RichFields[key] {
			return HTML(v)
		}
		return stripTags(v)
	case map[string]any:
		return SectionData(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = sanitizeValue(key, item)
		}
		return items
	default:
		return v
	}
}
