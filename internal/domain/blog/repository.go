package blog

import (
	"context"
	"errors"
	"time"

	"github.com/counselcms/server/internal/api/pagination"
)

var (
	ErrNotFound  = errors.New("post not found")
	ErrSlugTaken = errors.New("post slug already in use")
)

type Post struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt"`
	Body          string     `json:"body"`
	CoverImageURL string     `json:"cover_image_url"`
	Author        string     `json:"author"`
	Tags          []string   `json:"tags"`
	Published     bool       `json:"published"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Filter selects posts. Published-only listings are ordered by
// (published_at DESC, id DESC); admin listings by (created_at DESC, id DESC).
type Filter struct {
	PublishedOnly bool
	Tag           string
	After         pagination.Cursor
	Limit         int
}

type ListResult struct {
	Posts      []Post
	NextCursor string
}

type Repository interface {
	List(ctx context.Context, filter Filter) (ListResult, error)
	GetByID(ctx context.Context, id string) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	Create(ctx context.Context, post *Post) error
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id string) error
}
