package site

import (
	"context"
	"slices"

	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/counselcms/server/internal/domain/siteconfig"
)

// ListView is the data handed to collection-backed section templates.
type ListView[T any] struct {
	Title string
	Intro string
	Items []T
}

type MapView struct {
	Title        string
	EmbedURL     string
	Latitude     *float64
	Longitude    *float64
	AddressLines []string
}

type ContactView struct {
	Title        string
	Intro        string
	Email        string
	Phone        string
	Fax          string
	AddressLines []string
	OfficeHours  []string
	ShowForm     bool
}

// component resolves the template data for one section type.
type component struct {
	template string
	resolve  func(ctx context.Context, d *pageData, s pages.Section, site siteconfig.SiteConfig) (any, error)
}

var components = map[pages.SectionType]component{
	pages.SectionHero:     static("section/HERO"),
	pages.SectionAbout:    static("section/ABOUT"),
	pages.SectionServices: static("section/SERVICES"),
	pages.SectionRichText: static("section/RICH_TEXT"),
	pages.SectionCTA:      static("section/CTA"),
	pages.SectionTeam:     collection("section/TEAM", func(d *pageData) ([]showcase.TeamMember, error) { return d.team() }),
	pages.SectionClients:  collection("section/CLIENTS", func(d *pageData) ([]showcase.Client, error) { return d.clients() }),
	pages.SectionSlider:   collection("section/SLIDER", func(d *pageData) ([]showcase.Slide, error) { return d.slides() }),
	pages.SectionGallery:  collection("section/GALLERY", func(d *pageData) ([]showcase.GalleryItem, error) { return d.gallery() }),
	pages.SectionJobs:     collection("section/JOBS", func(d *pageData) ([]careers.Job, error) { return d.jobs() }),
	pages.SectionBlog: {
		template: "section/BLOG",
		resolve: func(_ context.Context, d *pageData, s pages.Section, _ siteconfig.SiteConfig) (any, error) {
			posts, err := d.posts()
			if err != nil {
				return nil, err
			}
			if limit := blogLimit(s.Data); len(posts) > limit {
				posts = posts[:limit]
			}
			return ListView[blog.Post]{Title: str(s.Data, "title"), Intro: str(s.Data, "intro"), Items: posts}, nil
		},
	},
	pages.SectionMap: {
		template: "section/MAP",
		resolve: func(_ context.Context, _ *pageData, s pages.Section, site siteconfig.SiteConfig) (any, error) {
			view := MapView{
				Title:        str(s.Data, "title"),
				EmbedURL:     embedURL(str(s.Data, "embed_url")),
				AddressLines: site.Contact.Address.Lines(),
			}
			if view.EmbedURL == "" {
				view.EmbedURL = embedURL(site.Contact.MapEmbedURL)
			}
			if site.Contact.HasCoordinates() {
				view.Latitude, view.Longitude = site.Contact.Latitude, site.Contact.Longitude
			}
			return view, nil
		},
	},
	pages.SectionContact: {
		template: "section/CONTACT",
		resolve: func(_ context.Context, _ *pageData, s pages.Section, site siteconfig.SiteConfig) (any, error) {
			view := ContactView{
				Title:        str(s.Data, "title"),
				Intro:        str(s.Data, "intro"),
				Email:        firstNonEmpty(str(s.Data, "email"), site.Contact.Email),
				Phone:        firstNonEmpty(str(s.Data, "phone"), site.Contact.Phone),
				Fax:          site.Contact.Fax,
				AddressLines: site.Contact.Address.Lines(),
				OfficeHours:  slices.Clone(site.Contact.OfficeHours),
				ShowForm:     s.Data["show_form"] != false,
			}
			return view, nil
		},
	},
}

func static(name string) component {
	return component{
		template: name,
		resolve: func(_ context.Context, _ *pageData, s pages.Section, _ siteconfig.SiteConfig) (any, error) {
			if s.Data == nil {
				return map[string]any{}, nil
			}
			return s.Data, nil
		},
	}
}

func collection[T any](name string, fetch func(*pageData) ([]T, error)) component {
	return component{
		template: name,
		resolve: func(_ context.Context, d *pageData, s pages.Section, _ siteconfig.SiteConfig) (any, error) {
			items, err := fetch(d)
			if err != nil {
				return nil, err
			}
			return ListView[T]{Title: str(s.Data, "title"), Intro: str(s.Data, "intro"), Items: items}, nil
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
