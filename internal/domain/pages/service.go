package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/domain/ordering"
	"github.com/counselcms/server/internal/sanitize"
	"github.com/counselcms/server/internal/validation"
)

type PageInput struct {
	Slug        string `json:"slug" validate:"max=80"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=500"`
	Published   bool   `json:"published"`
}

type SectionInput struct {
	Type    SectionType    `json:"type" validate:"required"`
	Visible *bool          `json:"visible"`
	Data    map[string]any `json:"data"`
}

// ReservedSlugs are top-level paths served by fixed routes; a page with one
// of these slugs could never be reached.
var ReservedSlugs = map[string]bool{
	"admin": true, "api": true, "blog": true, "careers": true,
	"health": true, "healthz": true, "readyz": true, "metrics": true, "version": true,
	"static": true, "uploads": true,
}

// requiredData lists data keys a section of the given type cannot render without.
var requiredData = map[SectionType][]string{
	SectionHero:     {"heading"},
	SectionRichText: {"html"},
	SectionCTA:      {"heading", "button_label", "button_url"},
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Page, error) {
	return s.repo.List(ctx, filter)
}

// Get returns a page with its sections ordered by position.
func (s *Service) Get(ctx context.Context, id string) (*Page, error) {
	page, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ordering.Sort(page.Sections)
	return page, nil
}

// GetPublished resolves a public path slug. Unpublished pages are reported as
// not found.
func (s *Service) GetPublished(ctx context.Context, slug string) (*Page, error) {
	slug = ids.NormalizeSlug(slug)
	if slug == "" {
		slug = HomeSlug
	}
	page, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !page.Published {
		return nil, ErrNotFound
	}
	ordering.Sort(page.Sections)
	return page, nil
}

func (s *Service) Create(ctx context.Context, input PageInput) (*Page, error) {
	page, err := s.buildPage(input)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate page id: %w", err)
	}
	page.ID = id
	if err := s.repo.Create(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) Update(ctx context.Context, id string, input PageInput) (*Page, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	page, err := s.buildPage(input)
	if err != nil {
		return nil, err
	}
	page.ID = existing.ID
	page.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, page); err != nil {
		return nil, err
	}
	page.Sections = existing.Sections
	ordering.Sort(page.Sections)
	return page, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) buildPage(input PageInput) (*Page, error) {
	input.Title = sanitize.Text(input.Title)
	input.Description = sanitize.Text(input.Description)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	slug := ids.NormalizeSlug(input.Slug)
	if slug == "" {
		slug = ids.NormalizeSlug(input.Title)
	}
	if slug == "" {
		return nil, validation.NewFieldError("slug", "is required")
	}
	if ReservedSlugs[slug] {
		return nil, validation.NewFieldError("slug", "is reserved")
	}
	return &Page{
		Slug:        slug,
		Title:       input.Title,
		Description: input.Description,
		Published:   input.Published,
	}, nil
}

// AddSection appends a section after the page's current last section.
func (s *Service) AddSection(ctx context.Context, pageID string, input SectionInput) (*Section, error) {
	page, err := s.repo.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	section, err := buildSection(input)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate section id: %w", err)
	}
	section.ID = id
	section.PageID = page.ID
	section.Position = len(page.Sections)
	if err := s.repo.CreateSection(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

func (s *Service) UpdateSection(ctx context.Context, pageID, sectionID string, input SectionInput) (*Section, error) {
	page, err := s.repo.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	existing := findSection(page, sectionID)
	if existing == nil {
		return nil, ErrSectionNotFound
	}
	section, err := buildSection(input)
	if err != nil {
		return nil, err
	}
	section.ID = existing.ID
	section.PageID = existing.PageID
	section.Position = existing.Position
	section.CreatedAt = existing.CreatedAt
	if input.Visible == nil {
		section.Visible = existing.Visible
	}
	if err := s.repo.UpdateSection(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

func (s *Service) DeleteSection(ctx context.Context, pageID, sectionID string) error {
	page, err := s.repo.GetByID(ctx, pageID)
	if err != nil {
		return err
	}
	if findSection(page, sectionID) == nil {
		return ErrSectionNotFound
	}
	return s.repo.DeleteSection(ctx, page.ID, sectionID)
}

// ReorderSections applies a full ordering of the page's sections.
func (s *Service) ReorderSections(ctx context.Context, pageID string, sectionIDs []string) (*Page, error) {
	page, err := s.repo.GetByID(ctx, pageID)
	if err != nil {
		return nil, err
	}
	current := make([]string, len(page.Sections))
	for i, sec := range page.Sections {
		current[i] = sec.ID
	}
	if err := ordering.Validate(current, sectionIDs); err != nil {
		return nil, err
	}
	normalized := make([]string, len(sectionIDs))
	for i, id := range sectionIDs {
		normalized[i] = strings.ToUpper(strings.TrimSpace(id))
	}
	if err := s.repo.SetSectionPositions(ctx, page.ID, normalized); err != nil {
		return nil, err
	}
	return s.Get(ctx, page.ID)
}

func findSection(page *Page, sectionID string) *Section {
	for i := range page.Sections {
		if strings.EqualFold(page.Sections[i].ID, sectionID) {
			return &page.Sections[i]
		}
	}
	return nil
}

func buildSection(input SectionInput) (*Section, error) {
	input.Type = SectionType(strings.ToUpper(strings.TrimSpace(string(input.Type))))
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !input.Type.Known() {
		return nil, validation.NewFieldError("type", "unknown section type "+string(input.Type))
	}
	data := sanitize.SectionData(input.Data)
	if data == nil {
		data = map[string]any{}
	}
	fields := map[string]string{}
	for _, key := range requiredData[input.Type] {
		if v, _ := data[key].(string); strings.TrimSpace(v) == "" {
			fields["data."+key] = "is required"
		}
	}
	if input.Type == SectionBlog {
		if raw, ok := data["limit"]; ok {
			if n, ok := raw.(float64); !ok || n < 1 || n > 12 {
				fields["data.limit"] = "must be a number between 1 and 12"
			}
		}
	}
	if href, ok := data["button_url"].(string); ok {
		if err := validation.ValidateLink(href, "button_url"); err != nil {
			fields["data.button_url"] = "must be an http(s) URL or a path starting with /"
		}
	}
	if len(fields) > 0 {
		return nil, &validation.FieldError{Fields: fields}
	}
	visible := true
	if input.Visible != nil {
		visible = *input.Visible
	}
	return &Section{Type: input.Type, Visible: visible, Data: data}, nil
}
