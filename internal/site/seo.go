package site

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/domain/pages"
)

// RobotsTXT keeps crawlers out of the admin console and the JSON API and
// points them at the sitemap.
func RobotsTXT(baseURL string) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Disallow: /admin\n")
	b.WriteString("Disallow: /api\n")
	b.WriteString("Allow: /\n")
	if sitemap, err := ids.BuildURL(baseURL, "/sitemap.xml"); err == nil {
		fmt.Fprintf(&b, "\nSitemap: %s\n", sitemap)
	}
	return b.String()
}

type SitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SitemapEntries lists the public URLs for published pages, published posts
// and open jobs. Unpublished entries are skipped.
func SitemapEntries(baseURL string, pageList []pages.Page, posts []blog.Post, jobs []careers.Job) []SitemapURL {
	abs := func(path string) string {
		u, err := ids.BuildURL(baseURL, path)
		if err != nil {
			return path
		}
		return u
	}
	var out []SitemapURL
	for _, p := range pageList {
		if !p.Published {
			continue
		}
		priority := "0.8"
		if p.Slug == pages.HomeSlug {
			priority = "1.0"
		}
		out = append(out, SitemapURL{Loc: abs(p.Path()), LastMod: lastMod(p.UpdatedAt), ChangeFreq: "weekly", Priority: priority})
	}
	if len(posts) > 0 {
		out = append(out, SitemapURL{Loc: abs("/blog"), ChangeFreq: "daily", Priority: "0.7"})
	}
	for _, p := range posts {
		if !p.Published {
			continue
		}
		out = append(out, SitemapURL{Loc: abs("/blog/" + p.Slug), LastMod: lastMod(p.UpdatedAt), ChangeFreq: "monthly", Priority: "0.6"})
	}
	if len(jobs) > 0 {
		out = append(out, SitemapURL{Loc: abs("/careers"), ChangeFreq: "weekly", Priority: "0.6"})
	}
	for _, j := range jobs {
		out = append(out, SitemapURL{Loc: abs("/careers/" + j.Slug), LastMod: lastMod(j.UpdatedAt), ChangeFreq: "weekly", Priority: "0.5"})
	}
	return out
}

func WriteSitemap(w io.Writer, entries []SitemapURL) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9", URLs: entries}); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	return enc.Close()
}

func lastMod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
