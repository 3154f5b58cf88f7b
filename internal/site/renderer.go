package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"slices"
	"time"

	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/domain/ordering"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/counselcms/server/internal/metrics"
	"github.com/rs/zerolog"
)

// FormState carries the contact form's CSRF field and the outcome of the last
// submission into CONTACT sections.
type FormState struct {
	CSRFField template.HTML
	Sent      bool
	Errors    map[string]string
	Values    map[string]string
}

// RenderContext is the value every section template executes against.
type RenderContext struct {
	Site    siteconfig.SiteConfig
	Page    pages.Page
	Section pages.Section
	Data    any
	Form    FormState
}

// Document is the value the layout executes against.
type Document struct {
	Site         siteconfig.SiteConfig
	Title        string
	Description  string
	CanonicalURL string
	Path         string
	ThemeCSS     template.CSS
	JSONLD       template.JS
	Body         template.HTML
	Preview      bool
	NoIndex      bool
}

// PageOptions adjusts a page render.
type PageOptions struct {
	Form    FormState
	Preview bool
}

type Renderer struct {
	templates *Templates
	sources   Sources
	baseURL   string
}

func NewRenderer(templates *Templates, sources Sources, baseURL string) *Renderer {
	return &Renderer{templates: templates, sources: sources, baseURL: baseURL}
}

func (r *Renderer) Templates() *Templates {
	return r.templates
}

// RenderPage writes the full HTML document for page. Visible sections render
// in position order; a failing or unknown section never fails the page.
func (r *Renderer) RenderPage(ctx context.Context, w io.Writer, page pages.Page, site siteconfig.SiteConfig, opts PageOptions) error {
	start := time.Now()
	kind := "page"
	if opts.Preview {
		kind = "preview"
	}
	defer func() {
		metrics.PageRenderDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	sections := VisibleSections(page.Sections)
	data := newPageData(ctx, r.sources, maxBlogLimitOf(sections))
	if err := data.prefetch(ctx, sections); err != nil {
		return fmt.Errorf("resolve page data: %w", err)
	}

	var body bytes.Buffer
	for _, section := range sections {
		html, err := r.renderSection(ctx, data, RenderContext{Site: site, Page: page, Section: section, Form: opts.Form})
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).
				Str("page", page.Slug).
				Str("section_id", section.ID).
				Str("section_type", string(section.Type)).
				Msg("section render failed")
			fmt.Fprintf(&body, "<!-- section %s unavailable -->\n", template.HTMLEscapeString(section.ID))
			continue
		}
		body.WriteString(string(html))
	}

	return r.writeDocument(w, Document{
		Site:         site,
		Title:        pageTitle(page, site),
		Description:  firstNonEmpty(page.Description, site.Tagline),
		CanonicalURL: r.absolute(page.Path()),
		Path:         page.Path(),
		Body:         template.HTML(body.String()),
		Preview:      opts.Preview,
		NoIndex:      opts.Preview || !page.Published,
	})
}

// RenderSection renders a single section outside a page, resolving its own
// data. Unknown types yield empty output.
func (r *Renderer) RenderSection(ctx context.Context, section pages.Section, site siteconfig.SiteConfig) (template.HTML, error) {
	data := newPageData(ctx, r.sources, blogLimit(section.Data))
	return r.renderSection(ctx, data, RenderContext{Site: site, Section: section})
}

func (r *Renderer) renderSection(ctx context.Context, d *pageData, rc RenderContext) (template.HTML, error) {
	typ := string(rc.Section.Type)
	comp, ok := components[rc.Section.Type]
	if !ok {
		metrics.SectionRenders.WithLabelValues(typ, "unknown").Inc()
		zerolog.Ctx(ctx).Warn().
			Str("section_id", rc.Section.ID).
			Str("section_type", typ).
			Msg("unknown section type skipped")
		return "", nil
	}

	value, err := comp.resolve(ctx, d, rc.Section, rc.Site)
	if err != nil {
		metrics.SectionRenders.WithLabelValues(typ, "error").Inc()
		return "", fmt.Errorf("resolve %s data: %w", typ, err)
	}
	rc.Data = value

	var buf bytes.Buffer
	if err := r.templates.Public().ExecuteTemplate(&buf, comp.template, rc); err != nil {
		metrics.SectionRenders.WithLabelValues(typ, "error").Inc()
		return "", fmt.Errorf("execute %s: %w", comp.template, err)
	}
	metrics.SectionRenders.WithLabelValues(typ, "ok").Inc()
	return template.HTML(buf.String()), nil
}

// RenderView renders a standalone view (blog list, job detail, error pages)
// inside the layout. doc.Body is replaced by the view output.
func (r *Renderer) RenderView(ctx context.Context, w io.Writer, name string, data any, doc Document) error {
	start := time.Now()
	defer func() {
		metrics.PageRenderDuration.WithLabelValues("view").Observe(time.Since(start).Seconds())
	}()

	var body bytes.Buffer
	if err := r.templates.Public().ExecuteTemplate(&body, "view/"+name, data); err != nil {
		return fmt.Errorf("execute view %s: %w", name, err)
	}
	doc.Body = template.HTML(body.String())
	if doc.CanonicalURL == "" && doc.Path != "" {
		doc.CanonicalURL = r.absolute(doc.Path)
	}
	if doc.Title == "" {
		doc.Title = doc.Site.SiteName
	}
	return r.writeDocument(w, doc)
}

// RenderAdmin executes an admin console template.
func (r *Renderer) RenderAdmin(w io.Writer, name string, data any) error {
	if err := r.templates.Admin().ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("execute admin %s: %w", name, err)
	}
	return nil
}

// writeDocument buffers the layout so a template error never leaves a
// half-written response.
func (r *Renderer) writeDocument(w io.Writer, doc Document) error {
	doc.ThemeCSS = ThemeCSS(doc.Site.Theme)
	ld, err := jsonLDScript(LegalService(doc.Site, r.baseURL))
	if err != nil {
		return fmt.Errorf("encode json-ld: %w", err)
	}
	doc.JSONLD = ld

	var buf bytes.Buffer
	if err := r.templates.Public().ExecuteTemplate(&buf, "layout", doc); err != nil {
		return fmt.Errorf("execute layout: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

func (r *Renderer) absolute(path string) string {
	if r.baseURL == "" {
		return path
	}
	u, err := ids.BuildURL(r.baseURL, path)
	if err != nil {
		return path
	}
	return u
}

// VisibleSections returns the visible sections sorted by position, ties
// broken by ID. The input is not modified.
func VisibleSections(sections []pages.Section) []pages.Section {
	out := slices.DeleteFunc(slices.Clone(sections), func(s pages.Section) bool { return !s.Visible })
	ordering.Sort(out)
	return out
}

func pageTitle(page pages.Page, site siteconfig.SiteConfig) string {
	if page.Slug == pages.HomeSlug || page.Title == "" {
		if site.Tagline != "" {
			return site.SiteName + " | " + site.Tagline
		}
		return site.SiteName
	}
	return page.Title + " | " + site.SiteName
}
