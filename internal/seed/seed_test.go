package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/counselcms/server/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `
site:
  site_name: Hale & Pardee LLP
  tagline: Counsel since 1982
  contact:
    email: office@hale.example
    phone: "+1 555 0100"
pages:
  - title: Home
    slug: home
    published: true
    sections:
      - type: HERO
        data:
          heading: Trusted counsel
      - type: TEAM
      - type: CONTACT
        visible: false
team:
  - name: Ada Hale
    title: Managing Partner
    practice_areas: [Litigation, Arbitration]
  - name: Ben Pardee
    title: Partner
clients:
  - name: Northwind Traders
jobs:
  - title: Litigation Associate
    employment_type: full_time
    open: true
    deadline: 2030-01-31
posts:
  - title: Arbitration clauses after the ruling
    body: "<p>The court declined to enforce the clause.</p><p>Second paragraph.</p>"
    published: "March 3rd 2021"
  - title: Draft note
    published: false
`

func parseSample(t *testing.T, doc string) *Document {
	t.Helper()
	parsed, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return parsed
}

func TestParse(t *testing.T) {
	doc := parseSample(t, sampleDocument)

	require.Equal(t, "Hale & Pardee LLP", doc.Site["site_name"])
	require.Len(t, doc.Pages, 1)
	require.Len(t, doc.Pages[0].Sections, 3)
	require.False(t, *doc.Pages[0].Sections[2].Visible)
	require.Len(t, doc.Team, 2)
	require.Nil(t, doc.Sliders)

	require.Equal(t, time.Date(2030, 1, 31, 0, 0, 0, 0, time.UTC), doc.Jobs[0].Deadline.Time)

	legacy := doc.Posts[0].Published
	require.True(t, legacy.Published)
	require.Equal(t, 2021, legacy.At.Year())
	require.Equal(t, time.March, legacy.At.Month())
	require.Equal(t, 3, legacy.At.Day())
	require.False(t, doc.Posts[1].Published.Published)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "pagez: []\n", "pagez"},
		{"bad date", "jobs:\n  - title: Clerk\n    deadline: not a date at all\n", "unrecognized date"},
		{"published list", "posts:\n  - title: x\n    published: [1]\n", "published must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	doc, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, doc.Pages)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	report, err := Apply(ctx, store, parseSample(t, sampleDocument), zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, report["pages"].Created)
	require.Equal(t, 3, report["sections"].Created)
	require.Equal(t, 2, report["team"].Created)
	require.Equal(t, 1, report["jobs"].Created)
	require.Equal(t, 2, report["posts"].Created)

	cfg, err := store.SiteConfig.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "Hale & Pardee LLP", cfg.SiteName)
	require.Equal(t, "office@hale.example", cfg.Contact.Email)
	require.NotEmpty(t, cfg.Theme.PrimaryColor, "defaults fill keys the document omits")

	home, err := store.Pages.GetBySlug(ctx, "home")
	require.NoError(t, err)
	require.True(t, home.Published)

	team := showcase.NewService[showcase.TeamMember](store.Showcase, showcase.Team)
	members, err := team.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "Ada Hale", members[0].Name)
	require.Equal(t, []string{"Litigation", "Arbitration"}, members[0].PracticeAreas)

	post, err := store.Blog.GetBySlug(ctx, "arbitration-clauses-after-the-ruling")
	require.NoError(t, err)
	require.True(t, post.Published)
	require.Equal(t, 2021, post.PublishedAt.Year())
	require.Equal(t, "The court declined to enforce the clause.", post.Excerpt)

	list, err := store.Careers.ListJobs(ctx, careers.JobFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "litigation-associate", list[0].Slug)
}

func TestApplyIsRepeatable(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	doc := parseSample(t, sampleDocument)

	_, err := Apply(ctx, store, doc, zerolog.Nop())
	require.NoError(t, err)
	report, err := Apply(ctx, store, doc, zerolog.Nop())
	require.NoError(t, err)

	require.Equal(t, 1, report["pages"].Updated)
	require.Zero(t, report["pages"].Created)
	require.Equal(t, 2, report["team"].Replaced)
	require.Equal(t, 2, report["posts"].Updated)

	home, err := store.Pages.GetBySlug(ctx, "home")
	require.NoError(t, err)
	full, err := store.Pages.GetByID(ctx, home.ID)
	require.NoError(t, err)
	require.Len(t, full.Sections, 3, "sections are replaced, not appended")

	members, err := showcase.NewService[showcase.TeamMember](store.Showcase, showcase.Team).List(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)

	posts, err := store.Blog.List(ctx, blog.Filter{})
	require.NoError(t, err)
	require.Len(t, posts.Posts, 2)
}

func TestApplyReportsInvalidEntry(t *testing.T) {
	doc := parseSample(t, `
pages:
  - title: Home
    sections:
      - type: HERO
`)
	_, err := Apply(context.Background(), memory.New(), doc, zerolog.Nop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "pages[0].sections[0]")
}
