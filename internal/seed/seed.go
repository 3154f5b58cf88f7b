package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/counselcms/server/internal/storage"
	"github.com/rs/zerolog"
)

// Counts tallies what Apply did for one kind of content.
type Counts struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Replaced int `json:"replaced,omitempty"`
}

// Report summarizes an Apply run, keyed by content kind.
type Report map[string]*Counts

func (r Report) add(kind string) *Counts {
	if r[kind] == nil {
		r[kind] = &Counts{}
	}
	return r[kind]
}

// Apply writes doc to backend inside one transaction. Any invalid entry
// aborts the run; the error names the entry.
func Apply(ctx context.Context, backend storage.Repository, doc *Document, logger zerolog.Logger) (Report, error) {
	report := Report{}
	err := backend.WithTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		s := &seeder{repos: repos, report: report, logger: logger}
		steps := []func(context.Context, *Document) error{
			s.site,
			s.pages,
			s.showcase,
			s.jobs,
			s.posts,
		}
		for _, step := range steps {
			if err := step(ctx, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

type seeder struct {
	repos  storage.Repositories
	report Report
	logger zerolog.Logger
}

func (s *seeder) site(ctx context.Context, doc *Document) error {
	if doc.Site == nil {
		return nil
	}
	cfg := siteconfig.Default()
	if current, err := s.repos.SiteConfig.Get(ctx); err == nil {
		cfg = *current
	} else if !errors.Is(err, siteconfig.ErrNotFound) {
		return fmt.Errorf("load site config: %w", err)
	}
	if err := decodeInto(doc.Site, &cfg); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	svc := siteconfig.NewService(s.repos.SiteConfig, siteconfig.NewCache(s.repos.SiteConfig, 0))
	if _, err := svc.Update(ctx, cfg); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	s.report.add("site").Updated++
	return nil
}

func (s *seeder) pages(ctx context.Context, doc *Document) error {
	svc := pages.NewService(s.repos.Pages)
	for i, pd := range doc.Pages {
		input := pages.PageInput{Slug: pd.Slug, Title: pd.Title, Description: pd.Description, Published: pd.Published}
		slug := ids.NormalizeSlug(pd.Slug)
		if slug == "" {
			slug = ids.NormalizeSlug(pd.Title)
		}

		var page *pages.Page
		existing, err := s.repos.Pages.GetBySlug(ctx, slug)
		switch {
		case err == nil:
			if page, err = svc.Update(ctx, existing.ID, input); err != nil {
				return fmt.Errorf("pages[%d] %q: %w", i, slug, err)
			}
			full, err := svc.Get(ctx, page.ID)
			if err != nil {
				return fmt.Errorf("pages[%d] %q: %w", i, slug, err)
			}
			for _, sec := range full.Sections {
				if err := svc.DeleteSection(ctx, page.ID, sec.ID); err != nil {
					return fmt.Errorf("pages[%d] %q: clear sections: %w", i, slug, err)
				}
			}
			s.report.add("pages").Updated++
		case errors.Is(err, pages.ErrNotFound):
			if page, err = svc.Create(ctx, input); err != nil {
				return fmt.Errorf("pages[%d] %q: %w", i, slug, err)
			}
			s.report.add("pages").Created++
		default:
			return fmt.Errorf("pages[%d] %q: %w", i, slug, err)
		}

		for j, sd := range pd.Sections {
			_, err := svc.AddSection(ctx, page.ID, pages.SectionInput{
				Type:    pages.SectionType(sd.Type),
				Visible: sd.Visible,
				Data:    normalizeData(sd.Data),
			})
			if err != nil {
				return fmt.Errorf("pages[%d].sections[%d]: %w", i, j, err)
			}
		}
		s.report.add("sections").Created += len(pd.Sections)
		s.logger.Debug().Str("slug", page.Slug).Int("sections", len(pd.Sections)).Msg("seeded page")
	}
	return nil
}

func normalizeData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	return normalize(data).(map[string]any)
}

func (s *seeder) showcase(ctx context.Context, doc *Document) error {
	repo := s.repos.Showcase
	if err := replaceCollection(ctx, s, showcase.NewService[showcase.TeamMember](repo, showcase.Team), doc.Team); err != nil {
		return err
	}
	if err := replaceCollection(ctx, s, showcase.NewService[showcase.Client](repo, showcase.Clients), doc.Clients); err != nil {
		return err
	}
	if err := replaceCollection(ctx, s, showcase.NewService[showcase.Slide](repo, showcase.Sliders), doc.Sliders); err != nil {
		return err
	}
	return replaceCollection(ctx, s, showcase.NewService[showcase.GalleryItem](repo, showcase.Gallery), doc.Gallery)
}

// replaceCollection swaps the stored items for entries, in document order.
// A nil entries list leaves the collection untouched.
func replaceCollection[T any, P interface {
	*T
	showcase.Item
}](ctx context.Context, s *seeder, svc *showcase.Service[T, P], entries []map[string]any) error {
	if entries == nil {
		return nil
	}
	name := string(svc.Collection())
	current, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, item := range current {
		if err := svc.Delete(ctx, P(&item).Base().ID); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for i, raw := range entries {
		var item T
		if err := decodeInto(raw, &item); err != nil {
			return fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		if _, err := svc.Create(ctx, item); err != nil {
			return fmt.Errorf("%s[%d]: %w", name, i, err)
		}
	}
	counts := s.report.add(name)
	counts.Replaced += len(current)
	counts.Created += len(entries)
	return nil
}

func (s *seeder) jobs(ctx context.Context, doc *Document) error {
	svc := careers.NewService(s.repos.Careers, nil, nil)
	for i, jd := range doc.Jobs {
		input := careers.JobInput{
			Slug:           jd.Slug,
			Title:          jd.Title,
			Department:     jd.Department,
			Location:       jd.Location,
			EmploymentType: careers.EmploymentType(jd.EmploymentType),
			Summary:        jd.Summary,
			Description:    jd.Description,
			Open:           jd.Open,
			Deadline:       jd.Deadline.Ptr(),
		}
		slug := ids.NormalizeSlug(jd.Slug)
		if slug == "" {
			slug = ids.NormalizeSlug(jd.Title)
		}
		existing, err := s.repos.Careers.GetJobBySlug(ctx, slug)
		switch {
		case err == nil:
			if _, err := svc.UpdateJob(ctx, existing.ID, input); err != nil {
				return fmt.Errorf("jobs[%d] %q: %w", i, slug, err)
			}
			s.report.add("jobs").Updated++
		case errors.Is(err, careers.ErrJobNotFound):
			if _, err := svc.CreateJob(ctx, input); err != nil {
				return fmt.Errorf("jobs[%d] %q: %w", i, slug, err)
			}
			s.report.add("jobs").Created++
		default:
			return fmt.Errorf("jobs[%d] %q: %w", i, slug, err)
		}
	}
	return nil
}

func (s *seeder) posts(ctx context.Context, doc *Document) error {
	svc := blog.NewService(s.repos.Blog)
	for i, pd := range doc.Posts {
		input := blog.PostInput{
			Slug:          pd.Slug,
			Title:         pd.Title,
			Excerpt:       pd.Excerpt,
			Body:          pd.Body,
			CoverImageURL: pd.CoverImageURL,
			Author:        pd.Author,
			Tags:          pd.Tags,
			Published:     pd.Published.Published,
			PublishedAt:   pd.PublishedAt.Ptr(),
		}
		if input.PublishedAt == nil && !pd.Published.At.IsZero() {
			at := pd.Published.At
			input.PublishedAt = &at
		}
		slug := ids.NormalizeSlug(pd.Slug)
		if slug == "" {
			slug = ids.NormalizeSlug(pd.Title)
		}
		existing, err := s.repos.Blog.GetBySlug(ctx, slug)
		switch {
		case err == nil:
			if _, err := svc.Update(ctx, existing.ID, input); err != nil {
				return fmt.Errorf("posts[%d] %q: %w", i, slug, err)
			}
			s.report.add("posts").Updated++
		case errors.Is(err, blog.ErrNotFound):
			if _, err := svc.Create(ctx, input); err != nil {
				return fmt.Errorf("posts[%d] %q: %w", i, slug, err)
			}
			s.report.add("posts").Created++
		default:
			return fmt.Errorf("posts[%d] %q: %w", i, slug, err)
		}
	}
	return nil
}
