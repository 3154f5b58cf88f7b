package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/counselcms/server/internal/api/problem"
	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/stretchr/testify/require"
)

func TestBlogHandler_Pagination(t *testing.T) {
	app := newTestApp(t)
	h := NewBlogHandler(app.posts, app.audit, "test")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/posts", h.ListPublished)
	mux.HandleFunc("GET /api/v1/admin/posts", h.List)
	mux.HandleFunc("POST /api/v1/admin/posts", h.Create)

	for i := range 3 {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodPost, "/api/v1/admin/posts", blog.PostInput{
			Title:     fmt.Sprintf("Case note %d", i),
			Body:      "<p>The court held that the clause was unenforceable.</p>",
			Published: true,
		}))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodPost, "/api/v1/admin/posts", blog.PostInput{Title: "Unreleased draft"}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/posts?limit=2", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decodeJSONBody[listResponse[blog.Post]](t, w)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/posts?limit=2&after="+url.QueryEscape(page.NextCursor), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rest := decodeJSONBody[listResponse[blog.Post]](t, w)
	require.Len(t, rest.Items, 1)
	require.Empty(t, rest.NextCursor)
	for _, p := range append(page.Items, rest.Items...) {
		require.True(t, p.Published)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/posts", nil))
	require.Len(t, decodeJSONBody[listResponse[blog.Post]](t, w).Items, 4)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/posts?after=not-a-cursor", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, problem.TypeValidation, decodeJSONBody[problem.ProblemDetails](t, w).Type)
}

func TestInquiriesHandler(t *testing.T) {
	app := newTestApp(t)
	h := NewInquiriesHandler(app.inquiries, app.audit, "test")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/admin/inquiries", h.List)
	mux.HandleFunc("GET /api/v1/admin/inquiries/{id}", h.Get)
	mux.HandleFunc("PUT /api/v1/admin/inquiries/{id}/read", h.MarkRead)
	mux.HandleFunc("DELETE /api/v1/admin/inquiries/{id}", h.Delete)

	submit := func(name string) *inquiries.Inquiry {
		inquiry, err := app.inquiries.Submit(context.Background(), inquiries.Submission{
			Name:    name,
			Email:   "client@example.com",
			Message: "I would like advice on a lease dispute.",
		})
		require.NoError(t, err)
		require.NotNil(t, inquiry)
		return inquiry
	}
	first := submit("Dana Client")
	second := submit("Eli Client")

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodPut, "/api/v1/admin/inquiries/"+first.ID+"/read", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, decodeJSONBody[inquiries.Inquiry](t, w).Read)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/inquiries?unread=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	unread := decodeJSONBody[listResponse[inquiries.Inquiry]](t, w).Items
	require.Len(t, unread, 1)
	require.Equal(t, second.ID, unread[0].ID)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/inquiries?limit=0", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodDelete, "/api/v1/admin/inquiries/"+second.ID, nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/inquiries/"+second.ID, nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSiteConfigHandler(t *testing.T) {
	app := newTestApp(t)
	h := NewSiteConfigHandler(app.config, app.audit, "test")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/config", h.Get)
	mux.HandleFunc("PUT /api/v1/admin/config", h.Update)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, siteconfig.Default().SiteName, decodeJSONBody[siteconfig.SiteConfig](t, w).SiteName)

	cfg := siteconfig.Default()
	cfg.SiteName = "Hale & Pardee LLP"
	cfg.Contact.Email = "office@hale.example"
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodPut, "/api/v1/admin/config", cfg))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	got := decodeJSONBody[siteconfig.SiteConfig](t, w)
	require.Equal(t, "Hale & Pardee LLP", got.SiteName)
	require.Equal(t, "office@hale.example", got.Contact.Email)

	tests := []struct {
		name   string
		mutate func(*siteconfig.SiteConfig)
	}{
		{"site name required", func(c *siteconfig.SiteConfig) { c.SiteName = "" }},
		{"bad color", func(c *siteconfig.SiteConfig) { c.Theme.PrimaryColor = "navy" }},
		{"bad email", func(c *siteconfig.SiteConfig) { c.Contact.Email = "office" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := siteconfig.Default()
			tt.mutate(&bad)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, adminRequest(t, http.MethodPut, "/api/v1/admin/config", bad))
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}
