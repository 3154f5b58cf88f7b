package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// URLValidationError reports a malformed link in editor input.
type URLValidationError struct {
	Field   string
	Message string
	URL     string
}

func (e URLValidationError) Error() string {
	return fmt.Sprintf("%s: %s (url: %s)", e.Field, e.Message, e.URL)
}

// ValidateURL checks an absolute http(s) URL. Empty values pass; use the
// "required" tag for mandatory fields.
func ValidateURL(raw, field string, requireHTTPS bool) error {
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return URLValidationError{Field: field, Message: "invalid URL format", URL: raw}
	}
	scheme := strings.ToLower(parsed.Scheme)
	switch {
	case scheme == "":
		return URLValidationError{Field: field, Message: "URL must include a scheme (http:// or https://)", URL: raw}
	case scheme != "http" && scheme != "https":
		return URLValidationError{Field: field, Message: "URL scheme must be http or https", URL: raw}
	case parsed.Host == "":
		return URLValidationError{Field: field, Message: "URL must include a host", URL: raw}
	case requireHTTPS && scheme != "https":
		return URLValidationError{Field: field, Message: "URL must use HTTPS", URL: raw}
	}
	return nil
}

// ValidateLink accepts either an absolute http(s) URL, a site-relative path
// ("/about", "/blog/x#top"), a mailto: or a tel: link. Navigation items and
// call-to-action buttons use it.
func ValidateLink(raw, field string) error {
	if raw == "" {
		return nil
	}
	switch {
	case strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//"):
		if _, err := url.Parse(raw); err != nil {
			return URLValidationError{Field: field, Message: "invalid path", URL: raw}
		}
		return nil
	case strings.HasPrefix(raw, "mailto:"), strings.HasPrefix(raw, "tel:"), strings.HasPrefix(raw, "#"):
		return nil
	}
	return ValidateURL(raw, field, false)
}
