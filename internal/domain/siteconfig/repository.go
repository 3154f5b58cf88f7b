// Package siteconfig holds the singleton site configuration shared by every
// rendered page: theme, contact details, navigation and social links.
package siteconfig

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("site configuration not found")

type SiteConfig struct {
	SiteName   string       `json:"site_name" validate:"required,max=120"`
	Tagline    string       `json:"tagline" validate:"max=200"`
	Theme      Theme        `json:"theme"`
	Contact    Contact      `json:"contact"`
	Navigation []NavItem    `json:"navigation" validate:"max=20,dive"`
	Social     []SocialLink `json:"social" validate:"max=12,dive"`
	FooterText string       `json:"footer_text" validate:"max=1000"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

type Theme struct {
	PrimaryColor   string `json:"primary_color" validate:"omitempty,hexcolor"`
	SecondaryColor string `json:"secondary_color" validate:"omitempty,hexcolor"`
	AccentColor    string `json:"accent_color" validate:"omitempty,hexcolor"`
	FontFamily     string `json:"font_family" validate:"max=120"`
	LogoURL        string `json:"logo_url" validate:"omitempty,link"`
	FaviconURL     string `json:"favicon_url" validate:"omitempty,link"`
}

type Contact struct {
	Email       string   `json:"email" validate:"omitempty,email"`
	Phone       string   `json:"phone" validate:"max=40"`
	Fax         string   `json:"fax" validate:"max=40"`
	Address     Address  `json:"address"`
	OfficeHours []string `json:"office_hours" validate:"max=14,dive,max=80"`
	MapEmbedURL string   `json:"map_embed_url" validate:"omitempty,weburl"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type Address struct {
	Street     string `json:"street" validate:"max=200"`
	City       string `json:"city" validate:"max=120"`
	Region     string `json:"region" validate:"max=120"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"max=120"`
}

// Lines returns the non-empty address lines for display.
func (a Address) Lines() []string {
	locality := a.City
	if a.Region != "" {
		if locality != "" {
			locality += ", "
		}
		locality += a.Region
	}
	if a.PostalCode != "" {
		if locality != "" {
			locality += " "
		}
		locality += a.PostalCode
	}
	var lines []string
	for _, line := range []string{a.Street, locality, a.Country} {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// NavItem is a menu entry. Children form one level of dropdown.
type NavItem struct {
	Label    string    `json:"label" validate:"required,max=60"`
	URL      string    `json:"url" validate:"required,link"`
	Children []NavItem `json:"children,omitempty" validate:"max=20,dive"`
}

type SocialLink struct {
	Network string `json:"network" validate:"required,max=40"`
	URL     string `json:"url" validate:"required,weburl"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (c Contact) HasCoordinates() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Default is served while no configuration document has been saved.
func Default() SiteConfig {
	return SiteConfig{
		SiteName: "Law Firm",
		Theme: Theme{
			PrimaryColor:   "#1f2a44",
			SecondaryColor: "#b08d57",
			AccentColor:    "#f5f3ef",
			FontFamily:     "Georgia, 'Times New Roman', serif",
		},
		Navigation: []NavItem{
			{Label: "Home", URL: "/"},
			{Label: "Blog", URL: "/blog"},
			{Label: "Careers", URL: "/careers"},
		},
	}
}

type Repository interface {
	// Get returns ErrNotFound when no document has been saved.
	Get(ctx context.Context) (*SiteConfig, error)
	Save(ctx context.Context, cfg *SiteConfig) error
}
