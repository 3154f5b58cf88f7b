package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/counselcms/server/internal/api/pagination"
	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/counselcms/server/internal/domain/users"
	"github.com/counselcms/server/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestPageSectionsLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t).Repositories().Pages

	page := &pages.Page{ID: ids.MustULID(), Slug: "home", Title: "Home", Published: true}
	require.NoError(t, repo.Create(ctx, page))
	require.ErrorIs(t, repo.Create(ctx, &pages.Page{ID: ids.MustULID(), Slug: "home", Title: "Dup"}), pages.ErrSlugTaken)

	var sectionIDs []string
	for i, typ := range []pages.SectionType{pages.SectionHero, pages.SectionTeam, pages.SectionMap} {
		sec := &pages.Section{ID: ids.MustULID(), PageID: page.ID, Type: typ, Position: i, Visible: true, Data: map[string]any{"heading": string(typ)}}
		require.NoError(t, repo.CreateSection(ctx, sec))
		sectionIDs = append(sectionIDs, sec.ID)
	}

	reversed := []string{sectionIDs[2], sectionIDs[1], sectionIDs[0]}
	require.NoError(t, repo.SetSectionPositions(ctx, page.ID, reversed))
	got, err := repo.GetBySlug(ctx, "home")
	require.NoError(t, err)
	require.Len(t, got.Sections, 3)
	require.Equal(t, pages.SectionMap, got.Sections[0].Type)
	require.Equal(t, "MAP", got.Sections[0].Data["heading"])

	require.NoError(t, repo.DeleteSection(ctx, page.ID, sectionIDs[1]))
	got, err = repo.GetByID(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections, 2)
	require.Equal(t, 0, got.Sections[0].Position)
	require.Equal(t, 1, got.Sections[1].Position)

	require.ErrorIs(t, repo.DeleteSection(ctx, page.ID, sectionIDs[1]), pages.ErrSectionNotFound)
	require.NoError(t, repo.Delete(ctx, page.ID))
	_, err = repo.GetByID(ctx, page.ID)
	require.ErrorIs(t, err, pages.ErrNotFound)
}

func TestShowcaseAppendsAndCompacts(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t).Repositories().Showcase

	var created []showcase.Record
	for i := range 3 {
		rec, err := repo.Create(ctx, showcase.Team, showcase.Record{ID: ids.MustULID(), Data: []byte(fmt.Sprintf(`{"name":"m%d"}`, i))})
		require.NoError(t, err)
		require.Equal(t, i, rec.Position)
		created = append(created, rec)
	}
	other, err := repo.Create(ctx, showcase.Clients, showcase.Record{ID: ids.MustULID(), Data: []byte(`{"name":"c"}`)})
	require.NoError(t, err)
	require.Equal(t, 0, other.Position)

	require.NoError(t, repo.Delete(ctx, showcase.Team, created[0].ID))
	list, err := repo.List(ctx, showcase.Team)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, created[1].ID, list[0].ID)
	require.Equal(t, 0, list[0].Position)

	err = repo.SetPositions(ctx, showcase.Team, []string{created[2].ID, ids.MustULID()})
	require.ErrorIs(t, err, showcase.ErrInvalidOrder)
	list, err = repo.List(ctx, showcase.Team)
	require.NoError(t, err)
	require.Equal(t, created[1].ID, list[0].ID, "failed reorder must roll back")
}

func TestBlogKeysetPagination(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t).Repositories().Blog

	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	for i := range 5 {
		at := base.Add(time.Duration(i) * time.Hour)
		tags := []string{"news"}
		if i%2 == 0 {
			tags = append(tags, "tax")
		}
		require.NoError(t, repo.Create(ctx, &blog.Post{
			ID: ids.MustULID(), Slug: fmt.Sprintf("post-%d", i), Title: "Post",
			Tags: tags, Published: true, PublishedAt: &at,
		}))
	}
	require.NoError(t, repo.Create(ctx, &blog.Post{ID: ids.MustULID(), Slug: "draft", Title: "Draft"}))

	first, err := repo.List(ctx, blog.Filter{PublishedOnly: true, Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Posts, 3)
	require.Equal(t, "post-4", first.Posts[0].Slug)

	cursor, err := pagination.Decode(first.NextCursor)
	require.NoError(t, err)
	second, err := repo.List(ctx, blog.Filter{PublishedOnly: true, Limit: 3, After: cursor})
	require.NoError(t, err)
	require.Len(t, second.Posts, 2)
	require.Empty(t, second.NextCursor)

	tagged, err := repo.List(ctx, blog.Filter{PublishedOnly: true, Tag: "tax", Limit: 10})
	require.NoError(t, err)
	require.Len(t, tagged.Posts, 3)

	all, err := repo.List(ctx, blog.Filter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all.Posts, 6)
}

func TestCareersApplicantsCascadeAndPurge(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t).Repositories().Careers

	job := &careers.Job{ID: ids.MustULID(), Slug: "associate", Title: "Associate", EmploymentType: careers.FullTime, Open: true}
	require.NoError(t, repo.CreateJob(ctx, job))

	applicant := &careers.Applicant{ID: ids.MustULID(), JobID: job.ID, Name: "A", Email: "a@example.com", Status: careers.StatusNew, ResumeFile: "x.pdf"}
	require.NoError(t, repo.CreateApplicant(ctx, applicant))
	require.Equal(t, "Associate", applicant.JobTitle)

	err := repo.CreateApplicant(ctx, &careers.Applicant{ID: ids.MustULID(), JobID: ids.MustULID(), Name: "B", Email: "b@example.com", Status: careers.StatusNew})
	require.ErrorIs(t, err, careers.ErrJobNotFound)

	updated, err := repo.UpdateApplicantStatus(ctx, applicant.ID, careers.StatusReviewing)
	require.NoError(t, err)
	require.Equal(t, careers.StatusReviewing, updated.Status)

	filtered, err := repo.ListApplicants(ctx, careers.ApplicantFilter{Status: careers.StatusNew})
	require.NoError(t, err)
	require.Empty(t, filtered)

	purged, err := repo.DeleteApplicantsBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, purged, 1)
	require.Equal(t, "x.pdf", purged[0].ResumeFile)

	require.NoError(t, repo.CreateApplicant(ctx, &careers.Applicant{ID: ids.MustULID(), JobID: job.ID, Name: "C", Email: "c@example.com", Status: careers.StatusNew, ResumeFile: "y.pdf"}))
	removed, err := repo.DeleteJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	require.Equal(t, "y.pdf", removed[0].ResumeFile)

	_, err = repo.DeleteJob(ctx, job.ID)
	require.ErrorIs(t, err, careers.ErrJobNotFound)
}

func TestUsersUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t).Repositories().Users

	require.NoError(t, repo.Create(ctx, &users.User{ID: ids.MustULID(), Username: "alice", Email: "a@example.com", PasswordHash: "h", Role: "admin"}))
	err := repo.Create(ctx, &users.User{ID: ids.MustULID(), Username: "ALICE", PasswordHash: "h", Role: "editor"})
	require.ErrorIs(t, err, users.ErrUsernameTaken)
	err = repo.Create(ctx, &users.User{ID: ids.MustULID(), Username: "bob", Email: "A@example.com", PasswordHash: "h", Role: "editor"})
	require.ErrorIs(t, err, users.ErrEmailTaken)

	u, err := repo.GetByUsername(ctx, "Alice")
	require.NoError(t, err)
	require.NoError(t, repo.TouchLogin(ctx, u.ID, time.Now()))

	n, err := repo.CountByRole(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestSiteConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t).Repositories().SiteConfig

	_, err := repo.Get(ctx)
	require.ErrorIs(t, err, siteconfig.ErrNotFound)

	cfg := siteconfig.Default()
	cfg.SiteName = "Smith & Partners"
	require.NoError(t, repo.Save(ctx, &cfg))
	cfg.Tagline = "Trusted counsel"
	require.NoError(t, repo.Save(ctx, &cfg))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Smith & Partners", got.SiteName)
	require.Equal(t, "Trusted counsel", got.Tagline)
	require.False(t, got.UpdatedAt.IsZero())
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := setupPostgres(t)
	boom := errors.New("boom")

	err := repo.WithTx(ctx, func(ctx context.Context, tx storage.Repositories) error {
		require.NoError(t, tx.Pages.Create(ctx, &pages.Page{ID: ids.MustULID(), Slug: "about", Title: "About"}))
		require.NoError(t, tx.Patches.Record(ctx, "normalize-slugs", "0 rows"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.Repositories().Pages.GetBySlug(ctx, "about")
	require.ErrorIs(t, err, pages.ErrNotFound)
	applied, err := repo.Repositories().Patches.Applied(ctx)
	require.NoError(t, err)
	require.Empty(t, applied)
}
