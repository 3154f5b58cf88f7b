package site

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/counselcms/server/internal/sanitize"
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"richText": richText,
		"str":      str,
		"items":    items,
		"embedURL": embedURL,
		"date":     formatDate,
		"isoDate":  isoDate,
		"year":     func() int { return time.Now().Year() },
		"initials": initials,
		"join":     strings.Join,
		"lower":    strings.ToLower,
		"dict":     dict,
		"add":      func(a, b int) int { return a + b },
	}
}

// richText sanitizes stored editor HTML before marking it safe.
func richText(v any) template.HTML {
	s, _ := v.(string)
	return template.HTML(sanitize.HTML(s))
}

// str reads a string value from section data, tolerating missing keys and
// non-string values.
func str(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	switch v := data[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// items reads a list of objects from section data.
func items(data map[string]any, key string) []map[string]any {
	raw, _ := data[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// embedURL passes through https URLs for iframes and drops anything else.
func embedURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return ""
	}
	return u.String()
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("January 2, 2006")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("January 2, 2006")
	}
	return ""
}

func isoDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}
	return ""
}

func initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		for _, r := range part {
			b.WriteRune(r)
			break
		}
		if b.Len() >= 2 {
			break
		}
	}
	return strings.ToUpper(b.String())
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		out[key] = pairs[i+1]
	}
	return out, nil
}
