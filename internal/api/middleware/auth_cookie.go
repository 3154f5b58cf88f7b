package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/counselcms/server/internal/api/problem"
	"github.com/counselcms/server/internal/auth"
)

const AdminAuthCookieName = "counsel_admin_token"

// LoginPath is where unauthenticated console requests are sent.
const LoginPath = "/admin/login"

var errForbidden = errors.New("insufficient role")

// AdminAuthCookie gates the HTML admin console. Requests without a valid
// session cookie are redirected to the login page.
func AdminAuthCookie(manager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromCookie(manager, r)
			if err != nil || !auth.CanEdit(claims.Role) {
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// AdminAPIAuth gates /api/v1/admin/*. It accepts the session cookie or an
// Authorization bearer token and requires the admin or editor role.
func AdminAPIAuth(manager *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := requestClaims(manager, r)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env)
				return
			}
			if !auth.CanEdit(claims.Role) {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient permissions", errForbidden, env)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole must run after AdminAPIAuth or AdminAuthCookie.
func RequireRole(env string, roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", auth.ErrMissingToken, env)
				return
			}
			if !auth.HasRole(claims.Role, roles...) {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient permissions", errForbidden, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsBearerRequest reports whether r authenticates with an Authorization
// header rather than the session cookie.
func IsBearerRequest(r *http.Request) bool {
	_, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
	return err == nil
}

func requestClaims(manager *auth.JWTManager, r *http.Request) (*auth.Claims, error) {
	if manager == nil {
		return nil, auth.ErrInvalidToken
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		token, err := auth.TokenFromHeader(header)
		if err != nil {
			return nil, err
		}
		return manager.Validate(token)
	}
	return claimsFromCookie(manager, r)
}

func claimsFromCookie(manager *auth.JWTManager, r *http.Request) (*auth.Claims, error) {
	if manager == nil {
		return nil, auth.ErrInvalidToken
	}
	cookie, err := r.Cookie(AdminAuthCookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return nil, auth.ErrMissingToken
	}
	return manager.Validate(cookie.Value)
}

// SetSessionCookie stores token as the HttpOnly admin session cookie.
func SetSessionCookie(w http.ResponseWriter, token string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminAuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminAuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
