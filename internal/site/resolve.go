package site

import (
	"context"
	"sync"

	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/showcase"
	"golang.org/x/sync/errgroup"
)

// DefaultBlogLimit is the number of posts a BLOG section shows when its data
// does not set "limit".
const DefaultBlogLimit = 3

const maxBlogLimit = 24

// Lister lists a showcase collection in position order.
type Lister[T any] interface {
	List(ctx context.Context) ([]T, error)
}

type PostSource interface {
	Latest(ctx context.Context, limit int) ([]blog.Post, error)
}

type JobSource interface {
	OpenJobs(ctx context.Context) ([]careers.Job, error)
}

// Sources supplies the collection-backed sections. A nil source renders its
// sections empty.
type Sources struct {
	Team    Lister[showcase.TeamMember]
	Clients Lister[showcase.Client]
	Slides  Lister[showcase.Slide]
	Gallery Lister[showcase.GalleryItem]
	Posts   PostSource
	Jobs    JobSource
}

// pageData memoizes collection fetches for one render, so two sections of
// the same type cost one query.
type pageData struct {
	team      func() ([]showcase.TeamMember, error)
	clients   func() ([]showcase.Client, error)
	slides    func() ([]showcase.Slide, error)
	gallery   func() ([]showcase.GalleryItem, error)
	jobs      func() ([]careers.Job, error)
	posts     func() ([]blog.Post, error)
	blogLimit int
}

func newPageData(ctx context.Context, src Sources, blogLimit int) *pageData {
	return &pageData{
		team:    once(ctx, src.Team),
		clients: once(ctx, src.Clients),
		slides: sync.OnceValues(func() ([]showcase.Slide, error) {
			if src.Slides == nil {
				return nil, nil
			}
			slides, err := src.Slides.List(ctx)
			if err != nil {
				return nil, err
			}
			return showcase.ActiveSlides(slides), nil
		}),
		gallery: once(ctx, src.Gallery),
		jobs: sync.OnceValues(func() ([]careers.Job, error) {
			if src.Jobs == nil {
				return nil, nil
			}
			return src.Jobs.OpenJobs(ctx)
		}),
		posts: sync.OnceValues(func() ([]blog.Post, error) {
			if src.Posts == nil {
				return nil, nil
			}
			return src.Posts.Latest(ctx, blogLimit)
		}),
		blogLimit: blogLimit,
	}
}

func once[T any](ctx context.Context, l Lister[T]) func() ([]T, error) {
	return sync.OnceValues(func() ([]T, error) {
		if l == nil {
			return nil, nil
		}
		return l.List(ctx)
	})
}

// prefetch loads every collection the sections need concurrently. Fetch
// errors are kept in the memoized results and surface per section; only a
// cancelled context aborts the page.
func (d *pageData) prefetch(ctx context.Context, sections []pages.Section) error {
	needed := map[pages.SectionType]func() error{}
	for _, s := range sections {
		switch s.Type {
		case pages.SectionTeam:
			needed[s.Type] = func() error { _, err := d.team(); return err }
		case pages.SectionClients:
			needed[s.Type] = func() error { _, err := d.clients(); return err }
		case pages.SectionSlider:
			needed[s.Type] = func() error { _, err := d.slides(); return err }
		case pages.SectionGallery:
			needed[s.Type] = func() error { _, err := d.gallery(); return err }
		case pages.SectionJobs:
			needed[s.Type] = func() error { _, err := d.jobs(); return err }
		case pages.SectionBlog:
			needed[s.Type] = func() error { _, err := d.posts(); return err }
		}
	}
	if len(needed) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, fetch := range needed {
		g.Go(func() error {
			_ = fetch()
			return gctx.Err()
		})
	}
	return g.Wait()
}

// blogLimit reads data.limit, which arrives as float64 from JSON documents
// and as int from YAML seeds.
func blogLimit(data map[string]any) int {
	var n int
	switch v := data["limit"].(type) {
	case float64:
		n = int(v)
	case int:
		n = v
	case int64:
		n = int(v)
	}
	if n <= 0 {
		return DefaultBlogLimit
	}
	return min(n, maxBlogLimit)
}

func maxBlogLimitOf(sections []pages.Section) int {
	limit := 0
	for _, s := range sections {
		if s.Type == pages.SectionBlog {
			limit = max(limit, blogLimit(s.Data))
		}
	}
	if limit == 0 {
		return DefaultBlogLimit
	}
	return limit
}
