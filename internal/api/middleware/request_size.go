package middleware

import (
	"errors"
	"net/http"

	"github.com/counselcms/server/internal/api/problem"
)

const (
	// PublicMaxBodySize bounds JSON and form bodies.
	PublicMaxBodySize int64 = 1 << 20
	// ApplicationMaxBodySize leaves room for a 5 MB résumé plus form fields.
	ApplicationMaxBodySize int64 = 6 << 20
	// UploadMaxBodySize bounds admin media uploads.
	UploadMaxBodySize int64 = 10 << 20
)

var errBodyTooLarge = errors.New("request body too large")

// RequestSize caps the request body at maxBytes. Declared lengths over the
// cap are rejected before the handler runs; streamed bodies fail on read.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Payload too large", errBodyTooLarge, "")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// IsBodyTooLarge reports whether err came from a body cut off by RequestSize.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
