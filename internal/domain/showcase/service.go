package showcase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/domain/ordering"
	"github.com/counselcms/server/internal/sanitize"
	"github.com/counselcms/server/internal/validation"
)

// Item is implemented by pointers to the showcase types through the
// embedded Meta and their Clean method.
type Item interface {
	Base() *Meta
	Clean()
}

// Service is the CRUD service for one collection. P is inferred as *T:
//
//	team := showcase.NewService[showcase.TeamMember](repo, showcase.Team)
type Service[T any, P interface {
	*T
	Item
}] struct {
	repo       Repository
	collection Collection
}

func NewService[T any, P interface {
	*T
	Item
}](repo Repository, collection Collection) *Service[T, P] {
	return &Service[T, P]{repo: repo, collection: collection}
}

func (s *Service[T, P]) Collection() Collection {
	return s.collection
}

// List returns every item ordered by position.
func (s *Service[T, P]) List(ctx context.Context) ([]T, error) {
	records, err := s.repo.List(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(records))
	for _, rec := range records {
		item, err := decode[T, P](rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Service[T, P]) Get(ctx context.Context, id string) (T, error) {
	rec, err := s.repo.Get(ctx, s.collection, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T, P](rec)
}

func (s *Service[T, P]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	data, err := prepare[T, P](&item)
	if err != nil {
		return zero, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return zero, fmt.Errorf("generate %s id: %w", s.collection, err)
	}
	rec, err := s.repo.Create(ctx, s.collection, Record{ID: id, Data: data})
	if err != nil {
		return zero, err
	}
	return decode[T, P](rec)
}

func (s *Service[T, P]) Update(ctx context.Context, id string, item T) (T, error) {
	var zero T
	data, err := prepare[T, P](&item)
	if err != nil {
		return zero, err
	}
	rec, err := s.repo.Update(ctx, s.collection, id, data)
	if err != nil {
		return zero, err
	}
	return decode[T, P](rec)
}

func (s *Service[T, P]) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, s.collection, id)
}

// Reorder rewrites positions to follow ids, which must name every item.
func (s *Service[T, P]) Reorder(ctx context.Context, idsInOrder []string) ([]T, error) {
	records, err := s.repo.List(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	current := make([]string, len(records))
	for i, rec := range records {
		current[i] = rec.ID
	}
	if err := ordering.Validate(current, idsInOrder); err != nil {
		return nil, err
	}
	normalized := make([]string, len(idsInOrder))
	for i, id := range idsInOrder {
		normalized[i] = strings.ToUpper(strings.TrimSpace(id))
	}
	if err := s.repo.SetPositions(ctx, s.collection, normalized); err != nil {
		return nil, err
	}
	return s.List(ctx)
}

func prepare[T any, P interface {
	*T
	Item
}](item *T) ([]byte, error) {
	p := P(item)
	p.Clean()
	*p.Base() = Meta{}
	if err := validation.Struct(item); err != nil {
		return nil, err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return data, nil
}

func decode[T any, P interface {
	*T
	Item
}](rec Record) (T, error) {
	var item T
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &item); err != nil {
			return item, fmt.Errorf("decode item %s: %w", rec.ID, err)
		}
	}
	*P(&item).Base() = Meta{
		ID:        rec.ID,
		Position:  rec.Position,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	return item, nil
}

func (m *TeamMember) Clean() {
	m.Name = sanitize.Text(m.Name)
	m.Title = sanitize.Text(m.Title)
	m.Bio = sanitize.HTML(m.Bio)
	m.Email = strings.TrimSpace(m.Email)
	m.Phone = sanitize.Text(m.Phone)
	m.PhotoURL = strings.TrimSpace(m.PhotoURL)
	m.LinkedInURL = strings.TrimSpace(m.LinkedInURL)
	m.PracticeAreas = sanitize.TextSlice(m.PracticeAreas)
}

func (c *Client) Clean() {
	c.Name = sanitize.Text(c.Name)
	c.LogoURL = strings.TrimSpace(c.LogoURL)
	c.WebsiteURL = strings.TrimSpace(c.WebsiteURL)
	c.Testimonial = sanitize.Text(c.Testimonial)
}

func (s *Slide) Clean() {
	s.Title = sanitize.Text(s.Title)
	s.Subtitle = sanitize.Text(s.Subtitle)
	s.ImageURL = strings.TrimSpace(s.ImageURL)
	s.LinkURL = strings.TrimSpace(s.LinkURL)
	s.LinkLabel = sanitize.Text(s.LinkLabel)
}

func (g *GalleryItem) Clean() {
	g.Title = sanitize.Text(g.Title)
	g.ImageURL = strings.TrimSpace(g.ImageURL)
	g.Caption = sanitize.Text(g.Caption)
	g.Category = sanitize.Text(g.Category)
}

// ActiveSlides filters slides to those marked active, preserving order.
func ActiveSlides(slides []Slide) []Slide {
	out := make([]Slide, 0, len(slides))
	for _, s := range slides {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}
