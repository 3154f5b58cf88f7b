package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/counselcms/server/internal/site"
	"github.com/counselcms/server/internal/storage/files"
	"github.com/counselcms/server/internal/storage/memory"
	"github.com/counselcms/server/web"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://firm.example"

// testApp wires every service over the in-memory store.
type testApp struct {
	store     *memory.Store
	pages     *pages.Service
	team      *showcase.Service[showcase.TeamMember, *showcase.TeamMember]
	posts     *blog.Service
	careers   *careers.Service
	inquiries *inquiries.Service
	config    *siteconfig.Service
	files     *files.Store
	renderer  *site.Renderer
	audit     *audit.Logger
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := memory.New()
	fileStore, err := files.New(t.TempDir())
	require.NoError(t, err)
	tmpl, err := site.LoadTemplates(web.Templates())
	require.NoError(t, err)

	app := &testApp{
		store:     store,
		pages:     pages.NewService(store.Pages),
		team:      showcase.NewService[showcase.TeamMember](store.Showcase, showcase.Team),
		posts:     blog.NewService(store.Blog),
		careers:   careers.NewService(store.Careers, fileStore, nil),
		inquiries: inquiries.NewService(store.Inquiries, nil),
		config:    siteconfig.NewService(store.SiteConfig, siteconfig.NewCache(store.SiteConfig, 0)),
		files:     fileStore,
		audit:     audit.NewLogger(zerolog.Nop()),
	}
	app.renderer = site.NewRenderer(tmpl, site.Sources{
		Team:  app.team,
		Posts: app.posts,
		Jobs:  app.careers,
	}, testBaseURL)
	return app
}

func (a *testApp) siteHandler() *SiteHandler {
	return NewSiteHandler(a.renderer, a.pages, a.config, a.posts, a.careers, a.inquiries, testBaseURL, "test")
}

// publishedPage creates a published page with the given sections.
func (a *testApp) publishedPage(t *testing.T, slug, title string, sections ...pages.SectionInput) *pages.Page {
	t.Helper()
	ctx := context.Background()
	page, err := a.pages.Create(ctx, pages.PageInput{Slug: slug, Title: title, Published: true})
	require.NoError(t, err)
	for _, in := range sections {
		_, err := a.pages.AddSection(ctx, page.ID, in)
		require.NoError(t, err)
	}
	page, err = a.pages.Get(ctx, page.ID)
	require.NoError(t, err)
	return page
}

func (a *testApp) openJob(t *testing.T, slug string) *careers.Job {
	t.Helper()
	job, err := a.careers.CreateJob(context.Background(), careers.JobInput{
		Slug:        slug,
		Title:       "Associate Attorney",
		Location:    "Springfield",
		Summary:     "Litigation associate",
		Description: "<p>Join our litigation team.</p>",
		Open:        true,
	})
	require.NoError(t, err)
	return job
}

// withClaims attaches an authenticated session to r.
func withClaims(r *http.Request, id, username string, role auth.Role) *http.Request {
	claims := &auth.Claims{Username: username, Role: string(role)}
	claims.Subject = id
	return r.WithContext(auth.WithClaims(r.Context(), claims))
}

// adminRequest builds an editor-authenticated JSON request.
func adminRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return withClaims(req, "01HZZZZZZZZZZZZZZZZZZZZZZZ", "editor", auth.RoleEditor)
}

func decodeJSONBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out), w.Body.String())
	return out
}
