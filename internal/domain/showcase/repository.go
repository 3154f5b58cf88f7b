// Package showcase manages the position-ordered collections shown on the
// public site: team members, clients, slider slides and gallery items.
package showcase

import (
	"context"
	"errors"
	"time"

	"github.com/counselcms/server/internal/domain/ordering"
)

var (
	ErrNotFound     = errors.New("item not found")
	ErrInvalidOrder = ordering.ErrInvalidOrder
)

// Collection names a stored collection. The value is also the URL segment
// under /api/v1/admin/.
type Collection string

const (
	Team    Collection = "team"
	Clients Collection = "clients"
	Sliders Collection = "sliders"
	Gallery Collection = "gallery"
)

var Collections = []Collection{Team, Clients, Sliders, Gallery}

// Meta is embedded by every showcase item.
type Meta struct {
	ID        string    `json:"id"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Meta) Base() *Meta { return m }

type TeamMember struct {
	Meta
	Name          string   `json:"name" validate:"required,max=120"`
	Title         string   `json:"title" validate:"max=120"`
	Bio           string   `json:"bio" validate:"max=5000"`
	PhotoURL      string   `json:"photo_url" validate:"omitempty,link"`
	Email         string   `json:"email" validate:"omitempty,email"`
	Phone         string   `json:"phone" validate:"max=40"`
	LinkedInURL   string   `json:"linkedin_url" validate:"omitempty,weburl"`
	PracticeAreas []string `json:"practice_areas" validate:"max=20,dive,max=80"`
}

type Client struct {
	Meta
	Name        string `json:"name" validate:"required,max=120"`
	LogoURL     string `json:"logo_url" validate:"omitempty,link"`
	WebsiteURL  string `json:"website_url" validate:"omitempty,weburl"`
	Testimonial string `json:"testimonial" validate:"max=2000"`
}

type Slide struct {
	Meta
	Title     string `json:"title" validate:"required,max=200"`
	Subtitle  string `json:"subtitle" validate:"max=300"`
	ImageURL  string `json:"image_url" validate:"required,link"`
	LinkURL   string `json:"link_url" validate:"omitempty,link"`
	LinkLabel string `json:"link_label" validate:"max=60"`
	Active    bool   `json:"active"`
}

type GalleryItem struct {
	Meta
	Title    string `json:"title" validate:"max=200"`
	ImageURL string `json:"image_url" validate:"required,link"`
	Caption  string `json:"caption" validate:"max=500"`
	Category string `json:"category" validate:"max=60"`
}

// Record is the stored form of an item: its ordering metadata plus the JSON
// encoding of the item's content fields.
type Record struct {
	ID        string
	Position  int
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository interface {
	List(ctx context.Context, collection Collection) ([]Record, error)
	Get(ctx context.Context, collection Collection, id string) (Record, error)
	// Create appends the record after the collection's last position.
	Create(ctx context.Context, collection Collection, record Record) (Record, error)
	Update(ctx context.Context, collection Collection, id string, data []byte) (Record, error)
	// Delete removes a record and compacts the remaining positions.
	Delete(ctx context.Context, collection Collection, id string) error
	SetPositions(ctx context.Context, collection Collection, ids []string) error
}
