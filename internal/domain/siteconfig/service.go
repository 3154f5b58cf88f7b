package siteconfig

import (
	"context"
	"strings"
	"time"

	"github.com/counselcms/server/internal/sanitize"
	"github.com/counselcms/server/internal/validation"
)

type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// Get serves the cached configuration.
func (s *Service) Get(ctx context.Context) (SiteConfig, error) {
	return s.cache.Get(ctx)
}

// Update validates and persists cfg, then invalidates the cache.
func (s *Service) Update(ctx context.Context, cfg SiteConfig) (SiteConfig, error) {
	clean(&cfg)
	if err := validation.Struct(cfg); err != nil {
		return SiteConfig{}, err
	}
	cfg.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, &cfg); err != nil {
		return SiteConfig{}, err
	}
	s.cache.Invalidate()
	return cfg, nil
}

func clean(cfg *SiteConfig) {
	cfg.SiteName = sanitize.Text(cfg.SiteName)
	cfg.Tagline = sanitize.Text(cfg.Tagline)
	cfg.FooterText = sanitize.Text(cfg.FooterText)
	cfg.Theme.FontFamily = sanitize.Text(cfg.Theme.FontFamily)
	// Font names end up inside a CSS declaration.
	cfg.Theme.FontFamily = strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '\\':
			return -1
		}
		return r
	}, cfg.Theme.FontFamily)
	cfg.Contact.Phone = sanitize.Text(cfg.Contact.Phone)
	cfg.Contact.Fax = sanitize.Text(cfg.Contact.Fax)
	cfg.Contact.OfficeHours = sanitize.TextSlice(cfg.Contact.OfficeHours)
	a := &cfg.Contact.Address
	a.Street, a.City, a.Region = sanitize.Text(a.Street), sanitize.Text(a.City), sanitize.Text(a.Region)
	a.PostalCode, a.Country = sanitize.Text(a.PostalCode), sanitize.Text(a.Country)
	cleanNav(cfg.Navigation)
	for i := range cfg.Social {
		cfg.Social[i].Network = strings.ToLower(sanitize.Text(cfg.Social[i].Network))
	}
}

func cleanNav(items []NavItem) {
	for i := range items {
		items[i].Label = sanitize.Text(items[i].Label)
		items[i].URL = strings.TrimSpace(items[i].URL)
		cleanNav(items[i].Children)
	}
}
