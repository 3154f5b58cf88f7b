package middleware

import (
	"html/template"
	"net/http"

	"github.com/counselcms/server/internal/api/problem"
	"github.com/gorilla/csrf"
)

// CSRFHeader carries the token for script-driven admin requests.
const CSRFHeader = "X-CSRF-Token"

// CSRFProtection guards cookie-authenticated state changes with the gorilla
// double-submit token. Requests carrying a bearer token skip the check since
// browsers never attach Authorization headers on their own.
func CSRFProtection(authKey []byte, secure bool, env string) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(csrfErrorHandler(env)),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsBearerRequest(r) {
				next.ServeHTTP(w, r)
				return
			}
			if !secure && r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func csrfErrorHandler(env string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusForbidden, problem.TypeCSRF, "CSRF token validation failed", csrf.FailureReason(r), env)
	})
}

// CSRFToken returns the masked token for r, empty when the request bypassed
// CSRFProtection.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

// CSRFField renders the hidden form input for r.
func CSRFField(r *http.Request) template.HTML {
	return csrf.TemplateField(r)
}
