package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/counselcms/server/internal/auth"
	"github.com/stretchr/testify/require"
)

var testCSRFKey = []byte("12345678901234567890123456789012")

func TestCSRFProtectionBlocksMissingToken(t *testing.T) {
	h := CSRFProtection(testCSRFKey, false, "test")(okHandler())

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/v1/admin/pages", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()
		h.ServeHTTP(res, req)

		require.Equal(t, http.StatusForbidden, res.Code, method)
		require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
		require.Contains(t, res.Body.String(), "csrf-failure")
	}
}

func TestCSRFProtectionAllowsSafeMethods(t *testing.T) {
	h := CSRFProtection(testCSRFKey, false, "test")(okHandler())

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		res := httptest.NewRecorder()
		h.ServeHTTP(res, httptest.NewRequest(method, "/admin", nil))
		require.Equal(t, http.StatusOK, res.Code, method)
	}
}

func TestCSRFProtectionRoundTrip(t *testing.T) {
	var token string
	h := CSRFProtection(testCSRFKey, false, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			token = CSRFToken(r)
			require.Contains(t, string(CSRFField(r)), token)
		}
		w.WriteHeader(http.StatusOK)
	}))

	getRes := httptest.NewRecorder()
	h.ServeHTTP(getRes, httptest.NewRequest(http.MethodGet, "http://example.com/admin", nil))
	require.NotEmpty(t, token)

	cookies := getRes.Result().Cookies()
	require.NotEmpty(t, cookies)

	post := httptest.NewRequest(http.MethodPost, "http://example.com/api/v1/admin/pages", strings.NewReader("{}"))
	post.Header.Set(CSRFHeader, token)
	for _, c := range cookies {
		post.AddCookie(c)
	}
	postRes := httptest.NewRecorder()
	h.ServeHTTP(postRes, post)
	require.Equal(t, http.StatusOK, postRes.Code)
}

func TestCSRFProtectionSkipsBearerRequests(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour, "test")
	h := CSRFProtection(testCSRFKey, false, "test")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/pages", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+mustToken(t, manager, "admin"))
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
}

func TestCSRFProtectionSecureCookie(t *testing.T) {
	h := CSRFProtection(testCSRFKey, true, "production")(okHandler())
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "https://example.com/admin", nil))

	var found bool
	for _, c := range res.Result().Cookies() {
		if c.Name == "_gorilla_csrf" {
			found = true
			require.True(t, c.Secure)
			require.True(t, c.HttpOnly)
		}
	}
	require.True(t, found)
}
