package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/counselcms/server/internal/api/middleware"
	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/counselcms/server/internal/metrics"
	"github.com/counselcms/server/internal/site"
	"github.com/counselcms/server/internal/storage/files"
	"github.com/counselcms/server/internal/validation"
	"github.com/rs/zerolog"
)

// sitemapPostLimit caps the posts listed in sitemap.xml.
const sitemapPostLimit = 1000

// SiteHandler serves the public HTML site: pages, the contact form, the blog,
// careers, robots.txt and sitemap.xml.
type SiteHandler struct {
	renderer  *site.Renderer
	pages     *pages.Service
	config    *siteconfig.Service
	posts     *blog.Service
	careers   *careers.Service
	inquiries *inquiries.Service
	baseURL   string
	env       string
	now       func() time.Time
}

func NewSiteHandler(renderer *site.Renderer, pageService *pages.Service, configService *siteconfig.Service, postService *blog.Service, careerService *careers.Service, inquiryService *inquiries.Service, baseURL, env string) *SiteHandler {
	return &SiteHandler{
		renderer:  renderer,
		pages:     pageService,
		config:    configService,
		posts:     postService,
		careers:   careerService,
		inquiries: inquiryService,
		baseURL:   baseURL,
		env:       env,
		now:       time.Now,
	}
}

// siteConfig never fails: a storage error falls back to the defaults so the
// public site keeps rendering.
func (h *SiteHandler) siteConfig(r *http.Request) siteconfig.SiteConfig {
	cfg, err := h.config.Get(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("site config unavailable, using defaults")
		return siteconfig.Default()
	}
	return cfg
}

// Home handles GET /{$}.
func (h *SiteHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, pages.HomeSlug, http.StatusOK, site.FormState{})
}

// Page handles GET /{slug}.
func (h *SiteHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, pathParam(r, "slug"), http.StatusOK, site.FormState{})
}

func (h *SiteHandler) renderPage(w http.ResponseWriter, r *http.Request, slug string, status int, form site.FormState) {
	page, err := h.pages.GetPublished(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pages.ErrNotFound) {
			h.notFound(w, r)
			return
		}
		h.serverError(w, r, err)
		return
	}
	form.CSRFField = middleware.CSRFField(r)
	if r.URL.Query().Get("sent") == "1" {
		form.Sent = true
	}

	var buf bytes.Buffer
	if err := h.renderer.RenderPage(r.Context(), &buf, *page, h.siteConfig(r), site.PageOptions{Form: form}); err != nil {
		h.serverError(w, r, err)
		return
	}
	writeHTML(w, status, &buf)
}

// Contact handles POST /contact. Success redirects back to the page the form
// was on with ?sent=1; validation errors re-render that page with the
// submitted values.
func (h *SiteHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		metrics.FormSubmissions.WithLabelValues("contact", "invalid").Inc()
		h.message(w, r, http.StatusBadRequest, "Message not sent", "Your message could not be read. Please try again.")
		return
	}
	sub := inquiries.Submission{
		Name:      r.PostFormValue("name"),
		Email:     r.PostFormValue("email"),
		Phone:     r.PostFormValue("phone"),
		Subject:   r.PostFormValue("subject"),
		Message:   r.PostFormValue("message"),
		SourceURL: localPath(r.PostFormValue("source_url")),
		Website:   r.PostFormValue("website"),
	}

	inquiry, err := h.inquiries.Submit(r.Context(), sub)
	if err != nil {
		if fe, ok := validation.AsFieldError(err); ok {
			metrics.FormSubmissions.WithLabelValues("contact", "invalid").Inc()
			slug, ok := h.formPage(r, sub.SourceURL)
			if !ok {
				h.message(w, r, http.StatusBadRequest, "Message not sent", "Please check the form fields and try again.")
				return
			}
			h.renderPage(w, r, slug, http.StatusBadRequest, site.FormState{
				Errors: fe.Fields,
				Values: map[string]string{
					"name":    sub.Name,
					"email":   sub.Email,
					"phone":   sub.Phone,
					"subject": sub.Subject,
					"message": sub.Message,
				},
			})
			return
		}
		metrics.FormSubmissions.WithLabelValues("contact", "error").Inc()
		h.serverError(w, r, err)
		return
	}
	if inquiry == nil {
		metrics.FormSubmissions.WithLabelValues("contact", "spam").Inc()
	} else {
		metrics.FormSubmissions.WithLabelValues("contact", "accepted").Inc()
	}
	http.Redirect(w, r, sub.SourceURL+"?sent=1#contact", http.StatusSeeOther)
}

// BlogList handles GET /blog?after=&tag=.
func (h *SiteHandler) BlogList(w http.ResponseWriter, r *http.Request) {
	filter, err := blogFilter(r.URL.Query(), true)
	if err != nil {
		h.message(w, r, http.StatusBadRequest, "Page not available", "That page of posts does not exist.")
		return
	}
	result, err := h.posts.List(r.Context(), filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	cfg := h.siteConfig(r)
	doc := site.Document{Site: cfg, Title: "News & insights | " + cfg.SiteName, Path: "/blog"}
	if filter.Tag != "" || !filter.After.IsZero() {
		doc.NoIndex = true
	}
	h.view(w, r, http.StatusOK, "blog_list", struct {
		Tag        string
		Posts      []blog.Post
		NextCursor string
	}{filter.Tag, result.Posts, result.NextCursor}, doc)
}

// BlogPost handles GET /blog/{slug}.
func (h *SiteHandler) BlogPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetPublished(r.Context(), pathParam(r, "slug"))
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			h.notFound(w, r)
			return
		}
		h.serverError(w, r, err)
		return
	}
	cfg := h.siteConfig(r)
	h.view(w, r, http.StatusOK, "blog_post", post, site.Document{
		Site:        cfg,
		Title:       post.Title + " | " + cfg.SiteName,
		Description: post.Excerpt,
		Path:        "/blog/" + post.Slug,
	})
}

// Careers handles GET /careers.
func (h *SiteHandler) Careers(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.careers.OpenJobs(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	cfg := h.siteConfig(r)
	h.view(w, r, http.StatusOK, "careers", struct {
		Jobs []careers.Job
	}{jobs}, site.Document{Site: cfg, Title: "Careers | " + cfg.SiteName, Path: "/careers"})
}

// Job handles GET /careers/{slug}. Closed jobs still render, without the
// application form.
func (h *SiteHandler) Job(w http.ResponseWriter, r *http.Request) {
	form := site.FormState{Sent: r.URL.Query().Get("sent") == "1"}
	h.renderJob(w, r, pathParam(r, "slug"), http.StatusOK, form)
}

func (h *SiteHandler) renderJob(w http.ResponseWriter, r *http.Request, slug string, status int, form site.FormState) {
	job, err := h.careers.GetPublicJob(r.Context(), slug)
	if err != nil {
		if errors.Is(err, careers.ErrJobNotFound) {
			h.notFound(w, r)
			return
		}
		h.serverError(w, r, err)
		return
	}
	form.CSRFField = middleware.CSRFField(r)
	accepting := job.AcceptingApplications(h.now())
	cfg := h.siteConfig(r)
	h.view(w, r, status, "job", struct {
		Job       *careers.Job
		Accepting bool
		Form      site.FormState
	}{job, accepting, form}, site.Document{
		Site:        cfg,
		Title:       job.Title + " | Careers | " + cfg.SiteName,
		Description: job.Summary,
		Path:        "/careers/" + job.Slug,
		NoIndex:     !accepting,
	})
}

// Apply handles POST /careers/{slug}/apply, a multipart form with an optional
// "resume" file.
func (h *SiteHandler) Apply(w http.ResponseWriter, r *http.Request) {
	slug := pathParam(r, "slug")
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		metrics.FormSubmissions.WithLabelValues("apply", "invalid").Inc()
		if middleware.IsBodyTooLarge(err) {
			h.renderJob(w, r, slug, http.StatusRequestEntityTooLarge, site.FormState{
				Errors: map[string]string{"resume": "must be 5 MB or smaller"},
			})
			return
		}
		h.message(w, r, http.StatusBadRequest, "Application not sent", "Your application could not be read. Please try again.")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	input := careers.ApplicationInput{
		Name:        r.PostFormValue("name"),
		Email:       r.PostFormValue("email"),
		Phone:       r.PostFormValue("phone"),
		CoverLetter: r.PostFormValue("cover_letter"),
	}
	var resume *careers.Resume
	if file, header, err := r.FormFile("resume"); err == nil {
		defer file.Close()
		resume = &careers.Resume{Filename: header.Filename, Body: file}
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		h.serverError(w, r, err)
		return
	}

	_, err := h.careers.Apply(r.Context(), slug, input, resume)
	if err == nil {
		metrics.FormSubmissions.WithLabelValues("apply", "accepted").Inc()
		http.Redirect(w, r, "/careers/"+url.PathEscape(slug)+"?sent=1", http.StatusSeeOther)
		return
	}

	values := map[string]string{
		"name":         input.Name,
		"email":        input.Email,
		"phone":        input.Phone,
		"cover_letter": input.CoverLetter,
	}
	switch fe, isField := validation.AsFieldError(err); {
	case isField:
		metrics.FormSubmissions.WithLabelValues("apply", "invalid").Inc()
		h.renderJob(w, r, slug, http.StatusBadRequest, site.FormState{Errors: fe.Fields, Values: values})
	case errors.Is(err, files.ErrTooLarge):
		metrics.FormSubmissions.WithLabelValues("apply", "invalid").Inc()
		h.renderJob(w, r, slug, http.StatusRequestEntityTooLarge, site.FormState{
			Errors: map[string]string{"resume": "must be 5 MB or smaller"},
			Values: values,
		})
	case errors.Is(err, files.ErrUnsupportedType):
		metrics.FormSubmissions.WithLabelValues("apply", "invalid").Inc()
		h.renderJob(w, r, slug, http.StatusUnsupportedMediaType, site.FormState{
			Errors: map[string]string{"resume": "must be a PDF, DOC or DOCX file"},
			Values: values,
		})
	case errors.Is(err, careers.ErrJobClosed):
		metrics.FormSubmissions.WithLabelValues("apply", "closed").Inc()
		h.message(w, r, http.StatusGone, "Position closed", "This position is no longer accepting applications.")
	case errors.Is(err, careers.ErrJobNotFound):
		h.notFound(w, r)
	default:
		metrics.FormSubmissions.WithLabelValues("apply", "error").Inc()
		h.serverError(w, r, err)
	}
}

// Robots handles GET /robots.txt.
func (h *SiteHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(site.RobotsTXT(h.baseURL)))
}

// Sitemap handles GET /sitemap.xml.
func (h *SiteHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageList, err := h.pages.List(ctx, pages.ListFilter{PublishedOnly: true})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	posts, err := h.posts.Latest(ctx, sitemapPostLimit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	jobs, err := h.careers.OpenJobs(ctx)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := site.WriteSitemap(&buf, site.SitemapEntries(h.baseURL, pageList, posts, jobs)); err != nil {
		h.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = buf.WriteTo(w)
}

// NotFound renders the 404 page for paths no route claims.
func (h *SiteHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.notFound(w, r)
}

func (h *SiteHandler) notFound(w http.ResponseWriter, r *http.Request) {
	h.message(w, r, http.StatusNotFound, "Page not found", "The page you are looking for does not exist or has moved.")
}

func (h *SiteHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("public page failed")
	h.message(w, r, http.StatusInternalServerError, "Something went wrong", "Please try again in a moment.")
}

func (h *SiteHandler) message(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	cfg := h.siteConfig(r)
	h.view(w, r, status, "message", struct {
		Title   string
		Message string
	}{title, message}, site.Document{Site: cfg, Title: title + " | " + cfg.SiteName, NoIndex: true})
}

// view renders a standalone view. A failing template falls back to plain text.
func (h *SiteHandler) view(w http.ResponseWriter, r *http.Request, status int, name string, data any, doc site.Document) {
	var buf bytes.Buffer
	if err := h.renderer.RenderView(r.Context(), &buf, name, data, doc); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("view", name).Msg("view render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, &buf)
}

func writeHTML(w http.ResponseWriter, status int, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// localPath reduces a submitted return URL to a same-site path so the
// redirect cannot leave the site.
func localPath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Path == "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return u.EscapedPath()
}

// formPage picks the published page to re-render a rejected form on: the page
// it was posted from, else the home page.
func (h *SiteHandler) formPage(r *http.Request, path string) (string, bool) {
	for _, slug := range []string{slugFromPath(path), pages.HomeSlug} {
		if _, err := h.pages.GetPublished(r.Context(), slug); err == nil {
			return slug, true
		}
	}
	return "", false
}

func slugFromPath(path string) string {
	slug := strings.Trim(path, "/")
	if slug == "" {
		return pages.HomeSlug
	}
	return slug
}
