package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/counselcms/server/internal/api/pagination"
	"github.com/counselcms/server/internal/domain/blog"
)

type BlogRepository struct {
	locker
	clock *clock
	posts map[string]*blog.Post
}

func sortTime(p blog.Post, publishedOnly bool) time.Time {
	if publishedOnly && p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

func (r *BlogRepository) List(ctx context.Context, filter blog.Filter) (blog.ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.clock.Now()
	all := make([]blog.Post, 0, len(r.posts))
	for _, p := range r.posts {
		if filter.PublishedOnly && (!p.Published || p.PublishedAt == nil || p.PublishedAt.After(now)) {
			continue
		}
		if filter.Tag != "" && !slices.Contains(p.Tags, filter.Tag) {
			continue
		}
		all = append(all, *p)
	}
	sort.SliceStable(all, func(i, j int) bool {
		ti, tj := sortTime(all[i], filter.PublishedOnly), sortTime(all[j], filter.PublishedOnly)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return all[i].ID > all[j].ID
	})

	start := 0
	if !filter.After.IsZero() {
		start = len(all)
		for i, p := range all {
			t := sortTime(p, filter.PublishedOnly)
			if t.Before(filter.After.Timestamp) || (t.Equal(filter.After.Timestamp) && p.ID < filter.After.ID) {
				start = i
				break
			}
		}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	page := all[start:]
	result := blog.ListResult{}
	if len(page) > limit {
		page = page[:limit]
		last := page[len(page)-1]
		result.NextCursor = pagination.Cursor{Timestamp: sortTime(last, filter.PublishedOnly), ID: last.ID}.Encode()
	}
	result.Posts = page
	return result, nil
}

func (r *BlogRepository) GetByID(ctx context.Context, id string) (*blog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[key(id)]
	if !ok {
		return nil, blog.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *BlogRepository) GetBySlug(ctx context.Context, slug string) (*blog.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.posts {
		if p.Slug == slug {
			out := *p
			return &out, nil
		}
	}
	return nil, blog.ErrNotFound
}

func (r *BlogRepository) slugTaken(slug, exceptID string) bool {
	for id, p := range r.posts {
		if p.Slug == slug && id != key(exceptID) {
			return true
		}
	}
	return false
}

func (r *BlogRepository) Create(ctx context.Context, post *blog.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slugTaken(post.Slug, "") {
		return blog.ErrSlugTaken
	}
	now := r.clock.Now()
	post.CreatedAt, post.UpdatedAt = now, now
	stored := *post
	r.posts[key(post.ID)] = &stored
	return nil
}

func (r *BlogRepository) Update(ctx context.Context, post *blog.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.posts[key(post.ID)]
	if !ok {
		return blog.ErrNotFound
	}
	if r.slugTaken(post.Slug, post.ID) {
		return blog.ErrSlugTaken
	}
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = r.clock.Now()
	stored := *post
	r.posts[key(post.ID)] = &stored
	return nil
}

func (r *BlogRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[key(id)]; !ok {
		return blog.ErrNotFound
	}
	delete(r.posts, key(id))
	return nil
}
