package patches

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/counselcms/server/internal/api/pagination"
	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/domain/ordering"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/sanitize"
	"github.com/counselcms/server/internal/storage"
	"github.com/rs/zerolog"
)

func init() {
	register(Patch{
		Name:        "normalize-slugs",
		Description: "lowercase and hyphenate page, post and job slugs",
		Run:         normalizeSlugs,
	})
	register(Patch{
		Name:        "renumber-sections",
		Description: "rewrite section positions to 0..n-1 on every page",
		Run:         renumberSections,
	})
	register(Patch{
		Name:        "rename-section-type",
		Description: "retag sections of type --from as --to",
		Run:         renameSectionType,
		LogKey: func(opts Options) (string, error) {
			from, to, err := sectionTypes(opts)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("rename-section-type:%s:%s", from, to), nil
		},
	})
	register(Patch{
		Name:        "sanitize-rich-text",
		Description: "re-sanitize stored section data, post bodies and job descriptions",
		Run:         sanitizeRichText,
	})
}

// allPages loads every page with its sections.
func allPages(ctx context.Context, repo pages.Repository) ([]*pages.Page, error) {
	list, err := repo.List(ctx, pages.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	out := make([]*pages.Page, 0, len(list))
	for _, p := range list {
		page, err := repo.GetByID(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("load page %s: %w", p.Slug, err)
		}
		ordering.Sort(page.Sections)
		out = append(out, page)
	}
	return out, nil
}

// allPosts walks the admin listing, drafts included.
func allPosts(ctx context.Context, repo blog.Repository) ([]blog.Post, error) {
	var out []blog.Post
	filter := blog.Filter{Limit: pagination.MaxLimit}
	for {
		res, err := repo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list posts: %w", err)
		}
		out = append(out, res.Posts...)
		if res.NextCursor == "" {
			return out, nil
		}
		if filter.After, err = pagination.Decode(res.NextCursor); err != nil {
			return nil, err
		}
	}
}

func normalizeSlugs(ctx context.Context, repos storage.Repositories, _ Options, logger zerolog.Logger) (string, error) {
	var changed, conflicts int
	// A normalized slug that collides with an existing one is skipped.
	apply := func(kind, from string, update func(slug string) error) error {
		to := ids.NormalizeSlug(from)
		if to == from || to == "" {
			return nil
		}
		err := update(to)
		switch {
		case err == nil:
			changed++
			logger.Info().Str("kind", kind).Str("from", from).Str("to", to).Msg("slug normalized")
			return nil
		case errors.Is(err, pages.ErrSlugTaken), errors.Is(err, blog.ErrSlugTaken), errors.Is(err, careers.ErrSlugTaken):
			conflicts++
			logger.Warn().Str("kind", kind).Str("from", from).Str("to", to).Msg("normalized slug already taken; left unchanged")
			return nil
		default:
			return fmt.Errorf("%s %q: %w", kind, from, err)
		}
	}

	pageList, err := repos.Pages.List(ctx, pages.ListFilter{})
	if err != nil {
		return "", fmt.Errorf("list pages: %w", err)
	}
	for _, p := range pageList {
		page := p
		if err := apply("page", page.Slug, func(slug string) error {
			page.Slug = slug
			return repos.Pages.Update(ctx, &page)
		}); err != nil {
			return "", err
		}
	}

	posts, err := allPosts(ctx, repos.Blog)
	if err != nil {
		return "", err
	}
	for _, p := range posts {
		post := p
		if err := apply("post", post.Slug, func(slug string) error {
			post.Slug = slug
			return repos.Blog.Update(ctx, &post)
		}); err != nil {
			return "", err
		}
	}

	jobs, err := repos.Careers.ListJobs(ctx, careers.JobFilter{})
	if err != nil {
		return "", fmt.Errorf("list jobs: %w", err)
	}
	for _, j := range jobs {
		job := j
		if err := apply("job", job.Slug, func(slug string) error {
			job.Slug = slug
			return repos.Careers.UpdateJob(ctx, &job)
		}); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%d slugs normalized, %d skipped on conflict", changed, conflicts), nil
}

func renumberSections(ctx context.Context, repos storage.Repositories, _ Options, logger zerolog.Logger) (string, error) {
	all, err := allPages(ctx, repos.Pages)
	if err != nil {
		return "", err
	}
	var touched int
	for _, page := range all {
		sectionIDs := make([]string, len(page.Sections))
		inOrder := true
		for i, sec := range page.Sections {
			sectionIDs[i] = sec.ID
			if sec.Position != i {
				inOrder = false
			}
		}
		if inOrder {
			continue
		}
		if err := repos.Pages.SetSectionPositions(ctx, page.ID, sectionIDs); err != nil {
			return "", fmt.Errorf("page %s: %w", page.Slug, err)
		}
		touched++
		logger.Info().Str("page", page.Slug).Int("sections", len(sectionIDs)).Msg("sections renumbered")
	}
	return fmt.Sprintf("%d of %d pages renumbered", touched, len(all)), nil
}

func sectionTypes(opts Options) (pages.SectionType, pages.SectionType, error) {
	from := pages.SectionType(strings.ToUpper(strings.TrimSpace(opts.From)))
	to := pages.SectionType(strings.ToUpper(strings.TrimSpace(opts.To)))
	if from == "" || to == "" {
		return "", "", fmt.Errorf("%w: rename-section-type needs --from and --to", ErrMissingOption)
	}
	if !to.Known() {
		return "", "", fmt.Errorf("unknown section type %q", to)
	}
	if from == to {
		return "", "", fmt.Errorf("--from and --to are both %q", from)
	}
	return from, to, nil
}

func renameSectionType(ctx context.Context, repos storage.Repositories, opts Options, logger zerolog.Logger) (string, error) {
	from, to, err := sectionTypes(opts)
	if err != nil {
		return "", err
	}
	all, err := allPages(ctx, repos.Pages)
	if err != nil {
		return "", err
	}
	var renamed int
	for _, page := range all {
		for _, sec := range page.Sections {
			if !strings.EqualFold(string(sec.Type), string(from)) {
				continue
			}
			sec.Type = to
			if err := repos.Pages.UpdateSection(ctx, &sec); err != nil {
				return "", fmt.Errorf("page %s section %s: %w", page.Slug, sec.ID, err)
			}
			renamed++
		}
	}
	logger.Info().Str("from", string(from)).Str("to", string(to)).Int("sections", renamed).Msg("section type renamed")
	return fmt.Sprintf("%d sections retagged %s -> %s", renamed, from, to), nil
}

func sanitizeRichText(ctx context.Context, repos storage.Repositories, _ Options, logger zerolog.Logger) (string, error) {
	all, err := allPages(ctx, repos.Pages)
	if err != nil {
		return "", err
	}
	var sections, posts, jobs int
	for _, page := range all {
		for _, sec := range page.Sections {
			clean := sanitize.SectionData(sec.Data)
			if reflect.DeepEqual(clean, sec.Data) {
				continue
			}
			sec.Data = clean
			if err := repos.Pages.UpdateSection(ctx, &sec); err != nil {
				return "", fmt.Errorf("page %s section %s: %w", page.Slug, sec.ID, err)
			}
			sections++
		}
	}

	postList, err := allPosts(ctx, repos.Blog)
	if err != nil {
		return "", err
	}
	for _, post := range postList {
		clean := sanitize.HTML(post.Body)
		if clean == post.Body {
			continue
		}
		post.Body = clean
		if err := repos.Blog.Update(ctx, &post); err != nil {
			return "", fmt.Errorf("post %s: %w", post.Slug, err)
		}
		posts++
	}

	jobList, err := repos.Careers.ListJobs(ctx, careers.JobFilter{})
	if err != nil {
		return "", fmt.Errorf("list jobs: %w", err)
	}
	for _, job := range jobList {
		clean := sanitize.HTML(job.Description)
		if clean == job.Description {
			continue
		}
		job.Description = clean
		if err := repos.Careers.UpdateJob(ctx, &job); err != nil {
			return "", fmt.Errorf("job %s: %w", job.Slug, err)
		}
		jobs++
	}
	logger.Info().Int("sections", sections).Int("posts", posts).Int("jobs", jobs).Msg("rich text re-sanitized")
	return fmt.Sprintf("%d sections, %d posts, %d jobs re-sanitized", sections, posts, jobs), nil
}
