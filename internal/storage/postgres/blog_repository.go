package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/counselcms/server/internal/api/pagination"
	"github.com/counselcms/server/internal/domain/blog"
	"github.com/jackc/pgx/v5"
)

type BlogRepository struct {
	conn
}

const postColumns = `id, slug, title, excerpt, body, cover_image_url, author, tags, published, published_at, created_at, updated_at`

func scanPost(row pgx.Row) (*blog.Post, error) {
	var p blog.Post
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Excerpt, &p.Body, &p.CoverImageURL, &p.Author,
		&p.Tags, &p.Published, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List pages through posts with keyset pagination. Public listings sort on
// published_at, admin listings on created_at.
func (r *BlogRepository) List(ctx context.Context, filter blog.Filter) (blog.ListResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	sortCol := "created_at"
	var (
		where []string
		args  []any
	)
	if filter.PublishedOnly {
		sortCol = "published_at"
		where = append(where, "published", "published_at <= now()")
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if !filter.After.IsZero() {
		args = append(args, filter.After.Timestamp, filter.After.ID)
		where = append(where, fmt.Sprintf("(%s, id) < ($%d, $%d)", sortCol, len(args)-1, len(args)))
	}
	query := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit+1)
	query += fmt.Sprintf(` ORDER BY %s DESC, id DESC LIMIT $%d`, sortCol, len(args))

	rows, err := r.queryer().Query(ctx, query, args...)
	if err != nil {
		return blog.ListResult{}, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []blog.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return blog.ListResult{}, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return blog.ListResult{}, fmt.Errorf("iterate posts: %w", err)
	}

	result := blog.ListResult{Posts: posts}
	if len(posts) > limit {
		result.Posts = posts[:limit]
		last := result.Posts[limit-1]
		ts := last.CreatedAt
		if filter.PublishedOnly && last.PublishedAt != nil {
			ts = *last.PublishedAt
		}
		result.NextCursor = pagination.Cursor{Timestamp: ts, ID: last.ID}.Encode()
	}
	return result, nil
}

func (r *BlogRepository) GetByID(ctx context.Context, id string) (*blog.Post, error) {
	return r.getWhere(ctx, "id = $1", normalizeID(id))
}

func (r *BlogRepository) GetBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	return r.getWhere(ctx, "slug = $1", slug)
}

func (r *BlogRepository) getWhere(ctx context.Context, where, arg string) (*blog.Post, error) {
	p, err := scanPost(r.queryer().QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE `+where, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, blog.ErrNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (r *BlogRepository) Create(ctx context.Context, post *blog.Post) error {
	err := r.queryer().QueryRow(ctx, `
INSERT INTO posts (id, slug, title, excerpt, body, cover_image_url, author, tags, published, published_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at
`, post.ID, post.Slug, post.Title, post.Excerpt, post.Body, post.CoverImageURL, post.Author,
		tagsOrEmpty(post.Tags), post.Published, post.PublishedAt,
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "posts_slug_key") {
			return blog.ErrSlugTaken
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *BlogRepository) Update(ctx context.Context, post *blog.Post) error {
	err := r.queryer().QueryRow(ctx, `
UPDATE posts
   SET slug = $2, title = $3, excerpt = $4, body = $5, cover_image_url = $6, author = $7,
       tags = $8, published = $9, published_at = $10, updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at
`, post.ID, post.Slug, post.Title, post.Excerpt, post.Body, post.CoverImageURL, post.Author,
		tagsOrEmpty(post.Tags), post.Published, post.PublishedAt,
	).Scan(&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return blog.ErrNotFound
		}
		if isUniqueViolation(err, "posts_slug_key") {
			return blog.ErrSlugTaken
		}
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

func (r *BlogRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM posts WHERE id = $1`, normalizeID(id))
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return blog.ErrNotFound
	}
	return nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
