package inquiries

import (
	"context"
	"fmt"
	"strings"

	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/sanitize"
	"github.com/counselcms/server/internal/validation"
	"github.com/rs/zerolog"
)

// Submission is the public contact form payload. Website is a honeypot field
// hidden from humans; bots that fill it are silently accepted and dropped.
type Submission struct {
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"max=40"`
	Subject   string `json:"subject" validate:"max=200"`
	Message   string `json:"message" validate:"required,min=10,max=5000"`
	SourceURL string `json:"source_url" validate:"max=500"`
	Website   string `json:"website"`
}

// Notifier is told about stored inquiries.
type Notifier interface {
	InquiryReceived(ctx context.Context, inquiryID string) error
}

type Service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Submit validates and stores a contact-form submission. A nil inquiry with
// nil error means the submission was discarded as spam.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Inquiry, error) {
	if strings.TrimSpace(sub.Website) != "" {
		zerolog.Ctx(ctx).Info().Msg("contact form honeypot triggered, discarding")
		return nil, nil
	}
	sub.Name = sanitize.Text(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Phone = sanitize.Text(sub.Phone)
	sub.Subject = sanitize.Text(sub.Subject)
	sub.Message = sanitize.Text(sub.Message)
	sub.SourceURL = sanitize.Text(sub.SourceURL)
	if err := validation.Struct(sub); err != nil {
		return nil, err
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate inquiry id: %w", err)
	}
	inquiry := &Inquiry{
		ID:        id,
		Name:      sub.Name,
		Email:     sub.Email,
		Phone:     sub.Phone,
		Subject:   sub.Subject,
		Message:   sub.Message,
		SourceURL: sub.SourceURL,
	}
	if err := s.repo.Create(ctx, inquiry); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.InquiryReceived(ctx, inquiry.ID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("inquiry_id", inquiry.ID).Msg("failed to queue inquiry notification")
		}
	}
	return inquiry, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Inquiry, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Inquiry, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) MarkRead(ctx context.Context, id string) (*Inquiry, error) {
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
