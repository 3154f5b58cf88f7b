package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/counselcms/server/internal/api/middleware"
	"github.com/counselcms/server/internal/api/problem"
	"github.com/counselcms/server/internal/auth"
	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/counselcms/server/internal/site"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// adminPage is the data every console template receives through admin/head.
type adminPage struct {
	Title     string
	CSRFToken string
	CSRFField template.HTML
	User      *auth.Claims
	Error     string
}

func newAdminPage(r *http.Request, title string) adminPage {
	claims, _ := auth.ClaimsFromContext(r.Context())
	return adminPage{
		Title:     title,
		CSRFToken: middleware.CSRFToken(r),
		CSRFField: middleware.CSRFField(r),
		User:      claims,
	}
}

// renderAdmin buffers the template so an execution error still produces a
// clean 500.
func renderAdmin(w http.ResponseWriter, r *http.Request, renderer *site.Renderer, status int, name string, data any, env string) {
	var buf bytes.Buffer
	if err := renderer.RenderAdmin(&buf, name, data); err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternalError, "Server error", err, env)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// consoleResource describes one generic list/edit screen driven by admin.js.
type consoleResource struct {
	Resource  string
	Label     string
	Endpoint  string
	Orderable bool
	ReadOnly  bool
	Upload    bool
	AdminOnly bool
	Columns   []string
	Template  string
}

// ConsoleResources are the generic screens, keyed by the /admin/{resource}
// path segment.
var ConsoleResources = map[string]consoleResource{
	"pages": {
		Label:    "Pages",
		Endpoint: "/api/v1/admin/pages",
		Columns:  []string{"title", "slug", "published", "updated_at"},
		Template: `{"title": "", "slug": "", "description": "", "published": false}`,
	},
	"team": {
		Label:     "Team",
		Endpoint:  "/api/v1/admin/team",
		Orderable: true,
		Columns:   []string{"name", "title", "email"},
		Template:  `{"name": "", "title": "", "bio": "", "photo_url": "", "email": "", "phone": "", "linkedin_url": "", "practice_areas": []}`,
	},
	"clients": {
		Label:     "Clients",
		Endpoint:  "/api/v1/admin/clients",
		Orderable: true,
		Columns:   []string{"name", "website_url"},
		Template:  `{"name": "", "logo_url": "", "website_url": "", "testimonial": ""}`,
	},
	"sliders": {
		Label:     "Slider",
		Endpoint:  "/api/v1/admin/sliders",
		Orderable: true,
		Columns:   []string{"title", "active"},
		Template:  `{"title": "", "subtitle": "", "image_url": "", "link_url": "", "link_label": "", "active": true}`,
	},
	"gallery": {
		Label:     "Gallery",
		Endpoint:  "/api/v1/admin/gallery",
		Orderable: true,
		Columns:   []string{"title", "category", "image_url"},
		Template:  `{"title": "", "image_url": "", "caption": "", "category": ""}`,
	},
	"posts": {
		Label:    "Blog",
		Endpoint: "/api/v1/admin/posts",
		Columns:  []string{"title", "slug", "published", "published_at"},
		Template: `{"title": "", "slug": "", "excerpt": "", "body": "", "cover_image_url": "", "author": "", "tags": [], "published": false}`,
	},
	"jobs": {
		Label:    "Jobs",
		Endpoint: "/api/v1/admin/jobs",
		Columns:  []string{"title", "slug", "location", "open", "deadline"},
		Template: `{"title": "", "slug": "", "department": "", "location": "", "employment_type": "full_time", "summary": "", "description": "", "open": true}`,
	},
	"applicants": {
		Label:    "Applicants",
		Endpoint: "/api/v1/admin/applicants",
		ReadOnly: true,
		Columns:  []string{"name", "email", "job_title", "status", "created_at"},
	},
	"inquiries": {
		Label:    "Inquiries",
		Endpoint: "/api/v1/admin/inquiries",
		ReadOnly: true,
		Columns:  []string{"name", "email", "subject", "read", "created_at"},
	},
	"uploads": {
		Label:    "Uploads",
		Endpoint: "/api/v1/admin/uploads",
		ReadOnly: true,
		Upload:   true,
		Columns:  []string{"name", "url", "size", "modified_at"},
	},
	"config": {
		Label:    "Settings",
		Endpoint: "/api/v1/admin/config",
	},
	"users": {
		Label:     "Users",
		Endpoint:  "/api/v1/admin/users",
		AdminOnly: true,
		Columns:   []string{"username", "email", "role", "last_login_at"},
		Template:  `{"username": "", "email": "", "password": "", "role": "editor"}`,
	},
}

type dashboardStats struct {
	Pages           int
	Posts           int
	OpenJobs        int
	NewApplicants   int
	UnreadInquiries int
}

// AdminHTMLHandler serves the console screens. Data is loaded by admin.js
// from the JSON API except for the dashboard and page editor.
type AdminHTMLHandler struct {
	renderer  *site.Renderer
	pages     *pages.Service
	posts     *blog.Service
	careers   *careers.Service
	inquiries *inquiries.Service
	config    *siteconfig.Service
	env       string
}

func NewAdminHTMLHandler(renderer *site.Renderer, pageService *pages.Service, postService *blog.Service, careerService *careers.Service, inquiryService *inquiries.Service, configService *siteconfig.Service, env string) *AdminHTMLHandler {
	return &AdminHTMLHandler{
		renderer:  renderer,
		pages:     pageService,
		posts:     postService,
		careers:   careerService,
		inquiries: inquiryService,
		config:    configService,
		env:       env,
	}
}

// Dashboard handles GET /admin. Counts are fetched concurrently; a failed
// count shows as zero.
func (h *AdminHTMLHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	var stats dashboardStats

	var g errgroup.Group
	g.Go(func() error {
		list, err := h.pages.List(ctx, pages.ListFilter{})
		stats.Pages = len(list)
		return err
	})
	g.Go(func() error {
		result, err := h.posts.List(ctx, blog.Filter{Limit: 1000})
		stats.Posts = len(result.Posts)
		return err
	})
	g.Go(func() error {
		jobs, err := h.careers.OpenJobs(ctx)
		stats.OpenJobs = len(jobs)
		return err
	})
	g.Go(func() error {
		list, err := h.careers.ListApplicants(ctx, careers.ApplicantFilter{Status: careers.StatusNew})
		stats.NewApplicants = len(list)
		return err
	})
	g.Go(func() error {
		list, err := h.inquiries.List(ctx, inquiries.Filter{UnreadOnly: true, Limit: 500})
		stats.UnreadInquiries = len(list)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Msg("dashboard stats incomplete")
	}

	renderAdmin(w, r, h.renderer, http.StatusOK, "admin/dashboard", struct {
		adminPage
		Stats dashboardStats
	}{newAdminPage(r, "Dashboard"), stats}, h.env)
}

// Resource handles GET /admin/{resource} for the generic screens.
func (h *AdminHTMLHandler) Resource(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "resource")
	res, ok := ConsoleResources[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	claims, _ := auth.ClaimsFromContext(r.Context())
	if res.AdminOnly && (claims == nil || !auth.IsAdmin(claims.Role)) {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	res.Resource = name
	renderAdmin(w, r, h.renderer, http.StatusOK, "admin/resource", struct {
		adminPage
		consoleResource
	}{newAdminPage(r, res.Label), res}, h.env)
}

// PageEdit handles GET /admin/pages/{id}, the section editor.
func (h *AdminHTMLHandler) PageEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	page, err := h.pages.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	renderAdmin(w, r, h.renderer, http.StatusOK, "admin/page_edit", struct {
		adminPage
		Page         *pages.Page
		SectionTypes []pages.SectionType
	}{newAdminPage(r, page.Title), page, pages.SectionTypes}, h.env)
}

// Preview handles GET /admin/preview/{id}: the page as the public site would
// render it, published or not.
func (h *AdminHTMLHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	page, err := h.pages.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	cfg, err := h.config.Get(r.Context())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.RenderPage(r.Context(), &buf, *page, cfg, site.PageOptions{
		Preview: true,
		Form:    site.FormState{CSRFField: middleware.CSRFField(r)},
	}); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Robots-Tag", "noindex")
	_, _ = buf.WriteTo(w)
}
