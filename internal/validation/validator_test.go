package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string `json:"title" validate:"required,max=10"`
	Slug  string `json:"slug" validate:"omitempty,slug"`
	Owner string `json:"owner_id" validate:"omitempty,ulid"`
	Href  string `json:"href" validate:"omitempty,link"`
	Items []item `json:"items" validate:"dive"`
}

type item struct {
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

func TestStructValid(t *testing.T) {
	require.NoError(t, Struct(sample{Title: "Home", Slug: "home", Owner: "01HYX3KQW7ERTV9XNBM2P8QJZF", Href: "/about"}))
}

func TestStructCollectsFieldErrors(t *testing.T) {
	err := Struct(sample{
		Title: "",
		Slug:  "Not A Slug",
		Owner: "nope",
		Href:  "javascript:x",
		Items: []item{{Color: "red"}},
	})
	fe, ok := AsFieldError(err)
	require.True(t, ok)
	require.Equal(t, "is required", fe.Fields["title"])
	require.Contains(t, fe.Fields["slug"], "lowercase")
	require.Equal(t, "must be a valid ULID", fe.Fields["owner_id"])
	require.Contains(t, fe.Fields, "href")
	require.Contains(t, fe.Fields, "items[0].color")
	require.Contains(t, err.Error(), "title is required")
}

func TestAsFieldErrorWrapped(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), NewFieldError("email", "is required"))
	fe, ok := AsFieldError(wrapped)
	require.True(t, ok)
	require.Equal(t, "is required", fe.Fields["email"])

	_, ok = AsFieldError(errors.New("plain"))
	require.False(t, ok)
}
