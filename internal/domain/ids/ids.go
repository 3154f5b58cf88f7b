package ids

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ulidRegex = regexp.MustCompile(`(?i)^[0-9A-HJKMNP-TV-Z]{26}$`)
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

	ErrInvalidULID = errors.New("invalid ULID")
	ErrInvalidSlug = errors.New("invalid slug")
	ErrInvalidBase = errors.New("invalid base URL")

	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID generates a new ULID string. IDs minted within the same millisecond
// sort in creation order.
func NewULID() (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// MustULID is NewULID for callers that cannot recover from entropy failure.
func MustULID() string {
	id, err := NewULID()
	if err != nil {
		panic(fmt.Sprintf("ids: generate ulid: %v", err))
	}
	return id
}

// IsULID returns true when value is a valid ULID (case-insensitive Crockford Base32).
func IsULID(value string) bool {
	return ulidRegex.MatchString(strings.TrimSpace(value))
}

// ValidateULID validates a ULID string.
func ValidateULID(value string) error {
	if !IsULID(value) {
		return ErrInvalidULID
	}
	return nil
}

// NormalizeSlug lowercases value and collapses every run of characters outside
// [a-z0-9] into a single hyphen.
func NormalizeSlug(value string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	return strings.Trim(slug, "-")
}

// ValidateSlug reports whether value is already in normalized form.
func ValidateSlug(value string) error {
	if !slugRegex.MatchString(value) {
		return ErrInvalidSlug
	}
	return nil
}

// BuildURL joins a site base URL with a path, e.g. ("https://firm.example", "/blog/x").
func BuildURL(baseURL, path string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", ErrInvalidBase
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(parsed.Scheme+"://"+parsed.Host+strings.TrimRight(parsed.Path, "/"), "/") + path, nil
}
