package problem

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

const typeBase = "https://counselcms.dev/problems/"

// Problem type URIs shared by every handler.
const (
	TypeValidation    = typeBase + "validation-error"
	TypeInvalidID     = typeBase + "invalid-id"
	TypeNotFound      = typeBase + "not-found"
	TypeConflict      = typeBase + "conflict"
	TypeUnauthorized  = typeBase + "unauthorized"
	TypeForbidden     = typeBase + "forbidden"
	TypeGone          = typeBase + "gone"
	TypeTooLarge      = typeBase + "payload-too-large"
	TypeRateLimited   = typeBase + "rate-limited"
	TypeMethod        = typeBase + "method-not-allowed"
	TypeUnsupported   = typeBase + "unsupported-media-type"
	TypeCSRF          = typeBase + "csrf-failure"
	TypeInternalError = typeBase + "internal-error"
)

type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
}

type Option func(*ProblemDetails)

func WithDetail(detail string) Option {
	return func(p *ProblemDetails) {
		p.Detail = detail
	}
}

// WithErrors attaches per-field validation messages keyed by JSON field name.
func WithErrors(errs map[string]string) Option {
	return func(p *ProblemDetails) {
		if len(errs) > 0 {
			p.Errors = errs
		}
	}
}

// Write renders an RFC 7807 response. The underlying error text is only
// exposed as detail in development and test environments.
func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	p := ProblemDetails{
		Type:   typ,
		Title:  title,
		Status: status,
	}
	for _, opt := range opts {
		opt(&p)
	}

	if p.Detail == "" && err != nil {
		if env == "development" || env == "test" {
			p.Detail = err.Error()
		} else {
			p.Detail = http.StatusText(status)
		}
	}

	if r != nil {
		p.Instance = r.URL.Path
		logProblem(r, p, err)
	}

	WriteProblem(w, p)
}

func logProblem(r *http.Request, p ProblemDetails, err error) {
	if err == nil {
		return
	}
	logger := zerolog.Ctx(r.Context())
	var event *zerolog.Event
	if p.Status >= 500 {
		event = logger.Error()
	} else {
		event = logger.Warn()
	}
	event.Err(err).
		Int("status", p.Status).
		Str("type", p.Type).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg(p.Title)
}

func WriteProblem(w http.ResponseWriter, p ProblemDetails) {
	if p.Type == "" {
		p.Type = "about:blank"
	}
	payload, err := json.Marshal(p)
	if err != nil {
		payload = []byte(`{"type":"about:blank","title":"Internal Server Error","status":500}`)
		p.Status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(p.Status)
	_, _ = w.Write(payload)
}
