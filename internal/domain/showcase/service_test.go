package showcase_test

import (
	"context"
	"testing"

	"github.com/counselcms/server/internal/domain/showcase"
	"github.com/counselcms/server/internal/storage/memory"
	"github.com/counselcms/server/internal/validation"
	"github.com/stretchr/testify/require"
)

func TestTeamCRUDAndReorder(t *testing.T) {
	ctx := context.Background()
	team := showcase.NewService[showcase.TeamMember](memory.New().Showcase, showcase.Team)

	alice, err := team.Create(ctx, showcase.TeamMember{Name: "  Alice Smith ", Title: "Partner", PracticeAreas: []string{"Tax", " ", "<b>Estates</b>"}})
	require.NoError(t, err)
	require.Equal(t, "Alice Smith", alice.Name)
	require.Equal(t, []string{"Tax", "Estates"}, alice.PracticeAreas)
	require.Equal(t, 0, alice.Position)
	require.NotEmpty(t, alice.ID)

	bob, err := team.Create(ctx, showcase.TeamMember{Name: "Bob Jones"})
	require.NoError(t, err)
	require.Equal(t, 1, bob.Position)

	list, err := team.Reorder(ctx, []string{bob.ID, alice.ID})
	require.NoError(t, err)
	require.Equal(t, "Bob Jones", list[0].Name)
	require.Equal(t, 0, list[0].Position)

	_, err = team.Reorder(ctx, []string{bob.ID, bob.ID})
	require.ErrorIs(t, err, showcase.ErrInvalidOrder)

	updated, err := team.Update(ctx, alice.ID, showcase.TeamMember{Name: "Alice Smith-Jones"})
	require.NoError(t, err)
	require.Equal(t, alice.ID, updated.ID)
	require.Equal(t, 1, updated.Position)

	require.NoError(t, team.Delete(ctx, bob.ID))
	got, err := team.Get(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.Position)

	_, err = team.Get(ctx, bob.ID)
	require.ErrorIs(t, err, showcase.ErrNotFound)
}

func TestCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	clients := showcase.NewService[showcase.Client](store.Showcase, showcase.Clients)
	gallery := showcase.NewService[showcase.GalleryItem](store.Showcase, showcase.Gallery)

	_, err := clients.Create(ctx, showcase.Client{Name: "Acme", WebsiteURL: "https://acme.example"})
	require.NoError(t, err)

	items, err := gallery.List(ctx)
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestSlideValidation(t *testing.T) {
	sliders := showcase.NewService[showcase.Slide](memory.New().Showcase, showcase.Sliders)
	_, err := sliders.Create(context.Background(), showcase.Slide{Title: "Hello", ImageURL: "javascript:alert(1)"})
	fe, ok := validation.AsFieldError(err)
	require.True(t, ok)
	require.Contains(t, fe.Fields, "image_url")
}

func TestActiveSlides(t *testing.T) {
	slides := []showcase.Slide{{Title: "a", Active: true}, {Title: "b"}, {Title: "c", Active: true}}
	active := showcase.ActiveSlides(slides)
	require.Len(t, active, 2)
	require.Equal(t, "c", active[1].Title)
}
