package handlers

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/counselcms/server/internal/api/middleware"
	"github.com/counselcms/server/internal/api/problem"
	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/domain/users"
	"github.com/counselcms/server/internal/site"
	"github.com/counselcms/server/internal/validation"
	"github.com/rs/zerolog"
)

// Authenticator checks admin credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*users.User, error)
}

type AdminAuthHandler struct {
	users        Authenticator
	jwtManager   *auth.JWTManager
	renderer     *site.Renderer
	auditLogger  *audit.Logger
	env          string
	secureCookie bool
}

func NewAdminAuthHandler(authenticator Authenticator, jwtManager *auth.JWTManager, renderer *site.Renderer, auditLogger *audit.Logger, env string, secureCookie bool) *AdminAuthHandler {
	return &AdminAuthHandler{
		users:        authenticator,
		jwtManager:   jwtManager,
		renderer:     renderer,
		auditLogger:  auditLogger,
		env:          env,
		secureCookie: secureCookie,
	}
}

var errUnsupportedLoginType = errors.New("login body must be application/json")

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
	User      userInfo `json:"user"`
}

type userInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Login handles POST /api/v1/admin/login. The token is returned in the body
// for API clients and set as the session cookie for the console.
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := readLogin(r)
	if err != nil {
		if errors.Is(err, errUnsupportedLoginType) {
			problem.Write(w, r, http.StatusUnsupportedMediaType, problem.TypeUnsupported, "Unsupported media type", err, h.env,
				problem.WithDetail(err.Error()))
			return
		}
		writeBadRequest(w, r, err, h.env)
		return
	}
	if missing := missingCredentials(req); len(missing) > 0 {
		writeError(w, r, &validation.FieldError{Fields: missing}, h.env)
		return
	}

	user, token, expiresAt, err := h.authenticate(w, r, req)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", nil, h.env)
			return
		}
		writeError(w, r, err, h.env)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		User: userInfo{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
		},
	})
}

// LoginForm handles POST /admin/login from the console login page.
func (h *AdminAuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	req := loginRequest{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	if req.Username == "" || req.Password == "" {
		h.renderLogin(w, r, http.StatusBadRequest, "Enter your username and password.")
		return
	}
	if _, _, _, err := h.authenticate(w, r, req); err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			h.renderLogin(w, r, http.StatusUnauthorized, "Invalid username or password.")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("admin login failed")
		h.renderLogin(w, r, http.StatusInternalServerError, "Sign-in is unavailable, please try again.")
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// authenticate checks the credentials, issues a token and sets the session
// cookie.
func (h *AdminAuthHandler) authenticate(w http.ResponseWriter, r *http.Request, req loginRequest) (*users.User, string, time.Time, error) {
	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			h.auditLogger.LogFromRequest(r, "auth.login", "user", "", audit.StatusFailure,
				map[string]string{"username": req.Username})
		}
		return nil, "", time.Time{}, err
	}
	if !auth.CanEdit(user.Role) {
		h.auditLogger.LogFromRequest(r, "auth.login", "user", user.ID, audit.StatusFailure,
			map[string]string{"username": user.Username, "reason": "role"})
		return nil, "", time.Time{}, users.ErrInvalidCredentials
	}

	token, err := h.jwtManager.Generate(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	expiry := h.jwtManager.Expiry()
	middleware.SetSessionCookie(w, token, int(expiry.Seconds()), h.secureCookie)
	h.auditLogger.LogFromRequest(r, "auth.login", "user", user.ID, audit.StatusSuccess,
		map[string]string{"username": user.Username})
	return user, token, time.Now().Add(expiry), nil
}

// LoginPage handles GET /admin/login. A valid session goes straight to the
// dashboard.
func (h *AdminAuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.AdminAuthCookieName); err == nil && cookie.Value != "" {
		if claims, err := h.jwtManager.Validate(cookie.Value); err == nil && auth.CanEdit(claims.Role) {
			http.Redirect(w, r, "/admin", http.StatusFound)
			return
		}
	}
	h.renderLogin(w, r, http.StatusOK, "")
}

// Logout handles POST /admin/logout and POST /api/v1/admin/logout.
func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w, h.secureCookie)
	h.auditLogger.LogFromRequest(r, "auth.logout", "user", "", audit.StatusSuccess, nil)
	if middleware.IsBearerRequest(r) || strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
		return
	}
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (h *AdminAuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, message string) {
	page := newAdminPage(r, "Sign in")
	page.User = nil
	page.Error = message
	renderAdmin(w, r, h.renderer, status, "admin/login", page, h.env)
}

// readLogin decodes a JSON login body. The API login is mounted outside CSRF
// protection, so it only accepts JSON: a cross-site form cannot send it
// without a CORS preflight.
func readLogin(r *http.Request) (loginRequest, error) {
	var req loginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return req, errUnsupportedLoginType
	}
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	req.Username = strings.TrimSpace(req.Username)
	return req, nil
}

func missingCredentials(req loginRequest) map[string]string {
	missing := map[string]string{}
	if req.Username == "" {
		missing["username"] = "is required"
	}
	if req.Password == "" {
		missing["password"] = "is required"
	}
	return missing
}
