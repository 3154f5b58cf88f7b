package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor marks a position in a list ordered by (timestamp DESC, id DESC).
type Cursor struct {
	Timestamp time.Time
	ID        string
}

// Encode returns base64(unix_nano:ID).
func (c Cursor) Encode() string {
	value := fmt.Sprintf("%d:%s", c.Timestamp.UTC().UnixNano(), strings.ToUpper(strings.TrimSpace(c.ID)))
	return base64.RawURLEncoding.EncodeToString([]byte(value))
}

// Decode parses a cursor produced by Cursor.Encode. An empty string is the
// start of the list and yields a zero Cursor.
func Decode(cursor string) (Cursor, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return Cursor{}, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(decoded), ":")
	if !ok || strings.TrimSpace(id) == "" {
		return Cursor{}, ErrInvalidCursor
	}
	unixNano, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{Timestamp: time.Unix(0, unixNano).UTC(), ID: strings.ToUpper(strings.TrimSpace(id))}, nil
}

// IsZero reports whether the cursor points at the start of the list.
func (c Cursor) IsZero() bool {
	return c.ID == "" && c.Timestamp.IsZero()
}

// ParseLimit reads a "limit" query value, clamped to [1, MaxLimit].
func ParseLimit(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, nil
}
