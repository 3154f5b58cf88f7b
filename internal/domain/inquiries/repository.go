// Package inquiries stores contact-form submissions.
package inquiries

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("inquiry not found")

type Inquiry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	SourceURL string    `json:"source_url"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type Filter struct {
	UnreadOnly bool
	Limit      int
}

type Repository interface {
	Create(ctx context.Context, inquiry *Inquiry) error
	Get(ctx context.Context, id string) (*Inquiry, error)
	List(ctx context.Context, filter Filter) ([]Inquiry, error)
	MarkRead(ctx context.Context, id string) (*Inquiry, error)
	Delete(ctx context.Context, id string) error
}
