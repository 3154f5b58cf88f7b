package blog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/counselcms/server/internal/api/pagination"
	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/sanitize"
	"github.com/counselcms/server/internal/validation"
)

type PostInput struct {
	Slug          string     `json:"slug" validate:"max=120"`
	Title         string     `json:"title" validate:"required,max=200"`
	Excerpt       string     `json:"excerpt" validate:"max=500"`
	Body          string     `json:"body" validate:"max=100000"`
	CoverImageURL string     `json:"cover_image_url" validate:"omitempty,link"`
	Author        string     `json:"author" validate:"max=120"`
	Tags          []string   `json:"tags" validate:"max=10,dive,max=40"`
	Published     bool       `json:"published"`
	PublishedAt   *time.Time `json:"published_at"`
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter Filter) (ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = pagination.DefaultLimit
	}
	filter.Tag = ids.NormalizeSlug(filter.Tag)
	return s.repo.List(ctx, filter)
}

// Latest returns up to limit published posts, newest first.
func (s *Service) Latest(ctx context.Context, limit int) ([]Post, error) {
	result, err := s.repo.List(ctx, Filter{PublishedOnly: true, Limit: limit})
	if err != nil {
		return nil, err
	}
	return result.Posts, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPublished resolves a public post; drafts and future-dated posts are not found.
func (s *Service) GetPublished(ctx context.Context, slug string) (*Post, error) {
	post, err := s.repo.GetBySlug(ctx, ids.NormalizeSlug(slug))
	if err != nil {
		return nil, err
	}
	if !post.Published || post.PublishedAt == nil || post.PublishedAt.After(s.now()) {
		return nil, ErrNotFound
	}
	return post, nil
}

func (s *Service) Create(ctx context.Context, input PostInput) (*Post, error) {
	post, err := s.build(input, nil)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate post id: %w", err)
	}
	post.ID = id
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) Update(ctx context.Context, id string, input PostInput) (*Post, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	post, err := s.build(input, existing)
	if err != nil {
		return nil, err
	}
	post.ID = existing.ID
	post.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) build(input PostInput, existing *Post) (*Post, error) {
	input.Title = sanitize.Text(input.Title)
	input.Author = sanitize.Text(input.Author)
	input.Excerpt = sanitize.Text(input.Excerpt)
	input.CoverImageURL = strings.TrimSpace(input.CoverImageURL)
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

	body := sanitize.HTML(input.Body)
	excerpt := input.Excerpt
	if excerpt == "" {
		excerpt = Excerpt(body)
	}

	tags := make([]string, 0, len(input.Tags))
	seen := map[string]bool{}
	for _, tag := range input.Tags {
		tag = ids.NormalizeSlug(tag)
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	// First publication stamps published_at unless the editor set one.
	publishedAt := input.PublishedAt
	if input.Published && publishedAt == nil {
		if existing != nil && existing.PublishedAt != nil {
			publishedAt = existing.PublishedAt
		} else {
			now := s.now().UTC()
			publishedAt = &now
		}
	}

	return &Post{
		Slug:          slug,
		Title:         input.Title,
		Excerpt:       excerpt,
		Body:          body,
		CoverImageURL: input.CoverImageURL,
		Author:        input.Author,
		Tags:          tags,
		Published:     input.Published,
		PublishedAt:   publishedAt,
	}, nil
}
