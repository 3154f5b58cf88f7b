// Package seed loads a YAML content document into a storage backend. Pages,
// jobs and posts are matched by slug and updated in place; showcase
// collections listed in the document replace the stored ones.
package seed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	dateparser "github.com/markusmobius/go-dateparser"
	"gopkg.in/yaml.v3"
)

// Document is the top level of a seed file.
type Document struct {
	Site    map[string]any   `yaml:"site"`
	Pages   []PageDoc        `yaml:"pages"`
	Team    []map[string]any `yaml:"team"`
	Clients []map[string]any `yaml:"clients"`
	Sliders []map[string]any `yaml:"sliders"`
	Gallery []map[string]any `yaml:"gallery"`
	Jobs    []JobDoc         `yaml:"jobs"`
	Posts   []PostDoc        `yaml:"posts"`
}

type PageDoc struct {
	Slug        string       `yaml:"slug"`
	Title       string       `yaml:"title"`
	Description string       `yaml:"description"`
	Published   bool         `yaml:"published"`
	Sections    []SectionDoc `yaml:"sections"`
}

type SectionDoc struct {
	Type    string         `yaml:"type"`
	Visible *bool          `yaml:"visible"`
	Data    map[string]any `yaml:"data"`
}

type JobDoc struct {
	Slug           string `yaml:"slug"`
	Title          string `yaml:"title"`
	Department     string `yaml:"department"`
	Location       string `yaml:"location"`
	EmploymentType string `yaml:"employment_type"`
	Summary        string `yaml:"summary"`
	Description    string `yaml:"description"`
	Open           bool   `yaml:"open"`
	Deadline       Date   `yaml:"deadline"`
}

type PostDoc struct {
	Slug          string      `yaml:"slug"`
	Title         string      `yaml:"title"`
	Excerpt       string      `yaml:"excerpt"`
	Body          string      `yaml:"body"`
	CoverImageURL string      `yaml:"cover_image_url"`
	Author        string      `yaml:"author"`
	Tags          []string    `yaml:"tags"`
	Published     Publication `yaml:"published"`
	PublishedAt   Date        `yaml:"published_at"`
}

// Parse decodes a seed document. Unknown keys are rejected so a typo does
// not silently drop content.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("parse seed document: %w", err)
	}
	return &doc, nil
}

// dateConfig anchors relative expressions ("last friday") to a fixed clock
// in tests.
var dateConfig = func() *dateparser.Configuration {
	return &dateparser.Configuration{CurrentTime: time.Now().UTC()}
}

// Date accepts RFC 3339 timestamps, plain YYYY-MM-DD dates and the free-form
// dates found in legacy exports, such as "March 3rd 2021".
type Date struct {
	time.Time
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: date must be a scalar", node.Line)
	}
	t, err := parseDate(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Time = t
	return nil
}

// Ptr returns nil for an unset date.
func (d Date) Ptr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// Publication is a post's published flag. Legacy documents store the
// publication date in the same key, which implies published.
type Publication struct {
	Published bool
	At        time.Time
}

func (p *Publication) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: published must be a boolean or a date", node.Line)
	}
	var flag bool
	if node.Tag == "!!bool" {
		if err := node.Decode(&flag); err != nil {
			return err
		}
		p.Published = flag
		return nil
	}
	t, err := parseDate(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: published: %w", node.Line, err)
	}
	p.Published, p.At = true, t
	return nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	parsed, err := dateparser.Parse(dateConfig(), value)
	if err != nil || parsed.Time.IsZero() {
		return time.Time{}, fmt.Errorf("unrecognized date %q", value)
	}
	return parsed.Time.UTC(), nil
}

// decodeInto overlays a loosely typed YAML mapping onto dst through its
// JSON tags, the same shape the admin API accepts.
func decodeInto(raw map[string]any, dst any) error {
	data, err := json.Marshal(normalize(raw))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// normalize converts values json cannot encode. Unquoted YAML timestamps
// decode to time.Time and are kept as RFC 3339 strings.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return v
	}
}
