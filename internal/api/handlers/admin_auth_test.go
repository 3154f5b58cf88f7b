package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/counselcms/server/internal/api/middleware"
	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/domain/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testPassword = "objection-sustained"

func newAuthHandler(t *testing.T) (*AdminAuthHandler, *auth.JWTManager) {
	t.Helper()
	app := newTestApp(t)
	svc := users.NewService(app.store.Users, app.audit, zerolog.Nop())
	ctx := context.Background()
	_, err := svc.Create(ctx, users.CreateUserParams{Username: "partner", Password: testPassword, Role: "admin"}, "test")
	require.NoError(t, err)
	_, err = svc.Create(ctx, users.CreateUserParams{Username: "auditor", Password: testPassword, Role: "viewer"}, "test")
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager("test-secret-that-is-long-enough-0123456789", time.Hour, "counsel-test")
	return NewAdminAuthHandler(svc, jwtManager, app.renderer, app.audit, "test", false), jwtManager
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AdminAuthCookieName {
			return c
		}
	}
	return nil
}

func TestAdminAuth_APILogin(t *testing.T) {
	h, jwtManager := newAuthHandler(t)

	t.Run("valid credentials", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Login(w, adminRequest(t, http.MethodPost, "/api/v1/admin/login", loginRequest{Username: " Partner ", Password: testPassword}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decodeJSONBody[loginResponse](t, w)
		require.Equal(t, "partner", resp.User.Username)
		require.Equal(t, "admin", resp.User.Role)
		claims, err := jwtManager.Validate(resp.Token)
		require.NoError(t, err)
		require.Equal(t, resp.User.ID, claims.Subject)

		cookie := sessionCookie(w)
		require.NotNil(t, cookie)
		require.Equal(t, resp.Token, cookie.Value)
		require.True(t, cookie.HttpOnly)
		require.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)
	})

	tests := []struct {
		name       string
		body       loginRequest
		wantStatus int
	}{
		{"wrong password", loginRequest{Username: "partner", Password: "overruled-overruled"}, http.StatusUnauthorized},
		{"unknown user", loginRequest{Username: "ghost", Password: testPassword}, http.StatusUnauthorized},
		{"viewer cannot sign in", loginRequest{Username: "auditor", Password: testPassword}, http.StatusUnauthorized},
		{"missing fields", loginRequest{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Login(w, adminRequest(t, http.MethodPost, "/api/v1/admin/login", tt.body))
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			require.Nil(t, sessionCookie(w))
		})
	}

	t.Run("form bodies are refused", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Login(w, formRequest("/api/v1/admin/login", url.Values{"username": {"partner"}, "password": {testPassword}}))
		require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})
}

func TestAdminAuth_FormLogin(t *testing.T) {
	h, _ := newAuthHandler(t)

	w := httptest.NewRecorder()
	h.LoginForm(w, formRequest("/admin/login", url.Values{"username": {"partner"}, "password": {testPassword}}))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/admin", w.Header().Get("Location"))
	require.NotNil(t, sessionCookie(w))

	w = httptest.NewRecorder()
	h.LoginForm(w, formRequest("/admin/login", url.Values{"username": {"partner"}, "password": {"wrong-password-1"}}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Invalid username or password.")
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	h.LoginForm(w, formRequest("/admin/login", url.Values{"username": {"partner"}}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Enter your username and password.")
}

func TestAdminAuth_LoginPage(t *testing.T) {
	h, jwtManager := newAuthHandler(t)

	w := httptest.NewRecorder()
	h.LoginPage(w, httptest.NewRequest(http.MethodGet, "/admin/login", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `action="/admin/login"`)

	token, err := jwtManager.Generate(adminID, "partner", "admin")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AdminAuthCookieName, Value: token})
	w = httptest.NewRecorder()
	h.LoginPage(w, req)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/admin", w.Header().Get("Location"))
}

func TestAdminAuth_Logout(t *testing.T) {
	h, _ := newAuthHandler(t)

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/admin/logout", nil))
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, middleware.LoginPath, w.Header().Get("Location"))
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
	require.Negative(t, cookie.MaxAge)

	w = httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/api/v1/admin/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "application/json"))
}
