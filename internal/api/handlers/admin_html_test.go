package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/stretchr/testify/require"
)

func adminHTMLMux(h *AdminHTMLHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin", h.Dashboard)
	mux.HandleFunc("GET /admin/pages/{id}", h.PageEdit)
	mux.HandleFunc("GET /admin/preview/{id}", h.Preview)
	mux.HandleFunc("GET /admin/{resource}", h.Resource)
	return mux
}

func newAdminHTML(app *testApp) *AdminHTMLHandler {
	return NewAdminHTMLHandler(app.renderer, app.pages, app.posts, app.careers, app.inquiries, app.config, "test")
}

func TestAdminHTML_Dashboard(t *testing.T) {
	app := newTestApp(t)
	app.publishedPage(t, pages.HomeSlug, "Home")
	app.openJob(t, "associate")
	mux := adminHTMLMux(newAdminHTML(app))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, withClaims(httptest.NewRequest(http.MethodGet, "/admin", nil), adminID, "partner", auth.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	require.Contains(t, w.Body.String(), "partner")
}

func TestAdminHTML_Resource(t *testing.T) {
	app := newTestApp(t)
	mux := adminHTMLMux(newAdminHTML(app))

	tests := []struct {
		name       string
		path       string
		role       auth.Role
		wantStatus int
		wantBody   string
	}{
		{"team screen", "/admin/team", auth.RoleEditor, http.StatusOK, "/api/v1/admin/team"},
		{"inquiries screen", "/admin/inquiries", auth.RoleEditor, http.StatusOK, "/api/v1/admin/inquiries"},
		{"users for admins", "/admin/users", auth.RoleAdmin, http.StatusOK, "/api/v1/admin/users"},
		{"users hidden from editors", "/admin/users", auth.RoleEditor, http.StatusFound, ""},
		{"unknown screen", "/admin/bogus", auth.RoleEditor, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, withClaims(httptest.NewRequest(http.MethodGet, tt.path, nil), adminID, "someone", tt.role))
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				require.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestAdminHTML_PageEditAndPreview(t *testing.T) {
	app := newTestApp(t)
	page, err := app.pages.Create(t.Context(), pages.PageInput{Title: "Unpublished services", Slug: "services"})
	require.NoError(t, err)
	_, err = app.pages.AddSection(t.Context(), page.ID, pages.SectionInput{
		Type: pages.SectionHero,
		Data: map[string]any{"heading": "Draft heading"},
	})
	require.NoError(t, err)
	mux := adminHTMLMux(newAdminHTML(app))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, withClaims(httptest.NewRequest(http.MethodGet, "/admin/pages/"+page.ID, nil), adminID, "editor", auth.RoleEditor))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), "Unpublished services")
	require.Contains(t, w.Body.String(), string(pages.SectionCTA))

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, withClaims(httptest.NewRequest(http.MethodGet, "/admin/preview/"+page.ID, nil), adminID, "editor", auth.RoleEditor))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "noindex", w.Header().Get("X-Robots-Tag"))
	require.Contains(t, w.Body.String(), "Draft heading")

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, withClaims(httptest.NewRequest(http.MethodGet, "/admin/preview/not-an-id", nil), adminID, "editor", auth.RoleEditor))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
