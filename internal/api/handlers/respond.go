package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/counselcms/server/internal/api/middleware"
	"github.com/counselcms/server/internal/api/problem"
	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/domain/ordering"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/counselcms/server/internal/domain/users"
	"github.com/counselcms/server/internal/storage/files"
	"github.com/counselcms/server/internal/validation"
)

var errEmptyBody = errors.New("request body is empty")

// listResponse wraps every collection payload so fields can be added later
// without breaking clients.
type listResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items}
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.PathValue(key))
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// pathID validates the named ULID path parameter, writing a 400 problem when
// it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name, env string) (string, bool) {
	value := pathParam(r, name)
	if err := ids.ValidateULID(value); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeInvalidID, "Invalid identifier", err, env,
			problem.WithErrors(map[string]string{name: "must be a valid ULID"}))
		return "", false
	}
	return strings.ToUpper(value), true
}

// writeBadRequest reports an undecodable body.
func writeBadRequest(w http.ResponseWriter, r *http.Request, err error, env string) {
	if middleware.IsBodyTooLarge(err) {
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Payload too large", err, env)
		return
	}
	problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, env,
		problem.WithDetail(fmt.Sprintf("request body could not be decoded: %v", err)))
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error, env string) {
	if fe, ok := validation.AsFieldError(err); ok {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Validation failed", err, env,
			problem.WithErrors(fe.Fields))
		return
	}

	switch {
	case errors.Is(err, ordering.ErrInvalidOrder):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid order", err, env,
			problem.WithDetail(err.Error()))
	case errors.Is(err, pages.ErrNotFound),
		errors.Is(err, pages.ErrSectionNotFound),
		errors.Is(err, showcase.ErrNotFound),
		errors.Is(err, careers.ErrJobNotFound),
		errors.Is(err, careers.ErrApplicantNotFound),
		errors.Is(err, careers.ErrNoResume),
		errors.Is(err, blog.ErrNotFound),
		errors.Is(err, inquiries.ErrNotFound),
		errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, files.ErrNotFound):
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env)
	case errors.Is(err, pages.ErrSlugTaken),
		errors.Is(err, careers.ErrSlugTaken),
		errors.Is(err, blog.ErrSlugTaken),
		errors.Is(err, users.ErrUsernameTaken),
		errors.Is(err, users.ErrEmailTaken),
		errors.Is(err, users.ErrLastAdmin):
		problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, env,
			problem.WithDetail(err.Error()))
	case errors.Is(err, careers.ErrJobClosed):
		problem.Write(w, r, http.StatusGone, problem.TypeGone, "Gone", err, env,
			problem.WithDetail(err.Error()))
	case errors.Is(err, files.ErrTooLarge), middleware.IsBodyTooLarge(err):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Payload too large", err, env)
	case errors.Is(err, files.ErrUnsupportedType):
		problem.Write(w, r, http.StatusUnsupportedMediaType, problem.TypeUnsupported, "Unsupported file type", err, env,
			problem.WithDetail(err.Error()))
	case errors.Is(err, files.ErrInvalidName), errors.Is(err, ids.ErrInvalidULID):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeInvalidID, "Invalid identifier", err, env)
	case errors.Is(err, users.ErrInvalidCredentials):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", nil, env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternalError, "Server error", err, env)
	}
}

// actor names the session user for audit entries.
func actor(r *http.Request) string {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return "unknown"
	}
	if claims.Username != "" {
		return claims.Username
	}
	return claims.Subject
}
