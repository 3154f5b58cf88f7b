package pages

import (
	"context"
	"errors"
	"time"

	"github.com/counselcms/server/internal/domain/ordering"
)

var (
	ErrNotFound        = errors.New("page not found")
	ErrSectionNotFound = errors.New("section not found")
	ErrSlugTaken       = errors.New("page slug already in use")
	ErrInvalidOrder    = ordering.ErrInvalidOrder
)

// HomeSlug is the page served at the site root.
const HomeSlug = "home"

// SectionType tags a section with the component that renders it.
type SectionType string

const (
	SectionHero     SectionType = "HERO"
	SectionAbout    SectionType = "ABOUT"
	SectionServices SectionType = "SERVICES"
	SectionTeam     SectionType = "TEAM"
	SectionClients  SectionType = "CLIENTS"
	SectionSlider   SectionType = "SLIDER"
	SectionGallery  SectionType = "GALLERY"
	SectionBlog     SectionType = "BLOG"
	SectionJobs     SectionType = "JOBS"
	SectionContact  SectionType = "CONTACT"
	SectionMap      SectionType = "MAP"
	SectionRichText SectionType = "RICH_TEXT"
	SectionCTA      SectionType = "CTA"
)

// SectionTypes lists every known type in the order the admin picker shows them.
var SectionTypes = []SectionType{
	SectionHero, SectionAbout, SectionServices, SectionTeam, SectionClients,
	SectionSlider, SectionGallery, SectionBlog, SectionJobs, SectionContact,
	SectionMap, SectionRichText, SectionCTA,
}

func (t SectionType) Known() bool {
	for _, known := range SectionTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Section struct {
	ID        string         `json:"id"`
	PageID    string         `json:"page_id"`
	Type      SectionType    `json:"type"`
	Position  int            `json:"position"`
	Visible   bool           `json:"visible"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (s Section) OrderKey() (int, string) { return s.Position, s.ID }

type Page struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Published   bool      `json:"published"`
	Sections    []Section `json:"sections,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Path is the public URL path of the page.
func (p Page) Path() string {
	if p.Slug == HomeSlug {
		return "/"
	}
	return "/" + p.Slug
}

type ListFilter struct {
	PublishedOnly bool
}

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Page, error)
	GetByID(ctx context.Context, id string) (*Page, error)
	GetBySlug(ctx context.Context, slug string) (*Page, error)
	Create(ctx context.Context, page *Page) error
	Update(ctx context.Context, page *Page) error
	Delete(ctx context.Context, id string) error

	CreateSection(ctx context.Context, section *Section) error
	UpdateSection(ctx context.Context, section *Section) error
	// DeleteSection removes a section and compacts the remaining positions.
	DeleteSection(ctx context.Context, pageID, sectionID string) error
	// SetSectionPositions rewrites positions 0..n-1 in the given order, atomically.
	SetSectionPositions(ctx context.Context, pageID string, sectionIDs []string) error
}
