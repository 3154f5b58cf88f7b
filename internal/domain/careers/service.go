package careers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/sanitize"
	"github.com/counselcms/server/internal/validation"
	"github.com/rs/zerolog"
)

// MaxResumeBytes bounds uploaded resumes.
const MaxResumeBytes = 5 << 20

// ResumeExtensions lists the accepted resume formats.
var ResumeExtensions = []string{".pdf", ".doc", ".docx"}

type JobInput struct {
	Slug           string         `json:"slug" validate:"max=80"`
	Title          string         `json:"title" validate:"required,max=200"`
	Department     string         `json:"department" validate:"max=120"`
	Location       string         `json:"location" validate:"max=120"`
	EmploymentType EmploymentType `json:"employment_type" validate:"omitempty,oneof=full_time part_time contract internship"`
	Summary        string         `json:"summary" validate:"max=500"`
	Description    string         `json:"description" validate:"max=20000"`
	Open           bool           `json:"open"`
	Deadline       *time.Time     `json:"deadline"`
}

type ApplicationInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Phone       string `json:"phone" validate:"max=40"`
	CoverLetter string `json:"cover_letter" validate:"max=10000"`
}

// Resume is an uploaded resume stream.
type Resume struct {
	Filename string
	Body     io.Reader
}

// FileStore persists resumes. Save returns the stored file name.
type FileStore interface {
	Save(ctx context.Context, originalName string, body io.Reader, maxBytes int64, allowed []string) (string, error)
	Delete(ctx context.Context, name string) error
}

// Notifier is told about new applications after they are stored.
type Notifier interface {
	ApplicationReceived(ctx context.Context, applicantID string) error
}

type Service struct {
	repo     Repository
	files    FileStore
	notifier Notifier
	now      func() time.Time
}

func NewService(repo Repository, files FileStore, notifier Notifier) *Service {
	return &Service{repo: repo, files: files, notifier: notifier, now: time.Now}
}

func (s *Service) ListJobs(ctx context.Context, filter JobFilter) ([]Job, error) {
	return s.repo.ListJobs(ctx, filter)
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.GetJob(ctx, id)
}

// OpenJobs lists jobs currently accepting applications.
func (s *Service) OpenJobs(ctx context.Context) ([]Job, error) {
	jobs, err := s.repo.ListJobs(ctx, JobFilter{OpenOnly: true})
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := jobs[:0]
	for _, job := range jobs {
		if job.AcceptingApplications(now) {
			out = append(out, job)
		}
	}
	return out, nil
}

// GetPublicJob resolves a job for the careers page. Closed jobs are still
// returned so the page can say the position is filled.
func (s *Service) GetPublicJob(ctx context.Context, slug string) (*Job, error) {
	return s.repo.GetJobBySlug(ctx, ids.NormalizeSlug(slug))
}

func (s *Service) CreateJob(ctx context.Context, input JobInput) (*Job, error) {
	job, err := buildJob(input)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}
	job.ID = id
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Service) UpdateJob(ctx context.Context, id string, input JobInput) (*Job, error) {
	existing, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	job, err := buildJob(input)
	if err != nil {
		return nil, err
	}
	job.ID = existing.ID
	job.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// DeleteJob removes the job, its applicants and their resume files.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	removed, err := s.repo.DeleteJob(ctx, id)
	if err != nil {
		return err
	}
	for i := range removed {
		s.removeResume(ctx, &removed[i])
	}
	return nil
}

func buildJob(input JobInput) (*Job, error) {
	input.Title = sanitize.Text(input.Title)
	input.Department = sanitize.Text(input.Department)
	input.Location = sanitize.Text(input.Location)
	input.Summary = sanitize.Text(input.Summary)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	slug := ids.NormalizeSlug(input.Slug)
	if slug == "" {
		slug = ids.NormalizeSlug(input.Title)
	}
	if slug == "" {
		return nil, validation.NewFieldError("slug", "is required")
	}
	employment := input.EmploymentType
	if employment == "" {
		employment = FullTime
	}
	return &Job{
		Slug:           slug,
		Title:          input.Title,
		Department:     input.Department,
		Location:       input.Location,
		EmploymentType: employment,
		Summary:        input.Summary,
		Description:    sanitize.HTML(input.Description),
		Open:           input.Open,
		Deadline:       input.Deadline,
	}, nil
}

// Apply stores an application for the job with slug. A closed job, or one
// whose deadline has passed, returns ErrJobClosed.
func (s *Service) Apply(ctx context.Context, slug string, input ApplicationInput, resume *Resume) (*Applicant, error) {
	job, err := s.repo.GetJobBySlug(ctx, ids.NormalizeSlug(slug))
	if err != nil {
		return nil, err
	}
	if !job.AcceptingApplications(s.now()) {
		return nil, ErrJobClosed
	}

	input.Name = sanitize.Text(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = sanitize.Text(input.Phone)
	input.CoverLetter = sanitize.Text(input.CoverLetter)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate applicant id: %w", err)
	}
	applicant := &Applicant{
		ID:          id,
		JobID:       job.ID,
		JobTitle:    job.Title,
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		CoverLetter: input.CoverLetter,
		Status:      StatusNew,
	}

	if resume != nil && resume.Body != nil && s.files != nil {
		stored, err := s.files.Save(ctx, resume.Filename, resume.Body, MaxResumeBytes, ResumeExtensions)
		if err != nil {
			return nil, err
		}
		applicant.ResumeFile = stored
		applicant.ResumeName = sanitize.Text(resume.Filename)
	}

	if err := s.repo.CreateApplicant(ctx, applicant); err != nil {
		if applicant.ResumeFile != "" {
			_ = s.files.Delete(ctx, applicant.ResumeFile)
		}
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.ApplicationReceived(ctx, applicant.ID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("applicant_id", applicant.ID).Msg("failed to queue application notification")
		}
	}
	return applicant, nil
}

func (s *Service) ListApplicants(ctx context.Context, filter ApplicantFilter) ([]Applicant, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validation.NewFieldError("status", "unknown applicant status")
	}
	return s.repo.ListApplicants(ctx, filter)
}

func (s *Service) GetApplicant(ctx context.Context, id string) (*Applicant, error) {
	return s.repo.GetApplicant(ctx, id)
}

func (s *Service) UpdateApplicantStatus(ctx context.Context, id string, status ApplicantStatus) (*Applicant, error) {
	if !status.Valid() {
		return nil, validation.NewFieldError("status", "unknown applicant status")
	}
	return s.repo.UpdateApplicantStatus(ctx, id, status)
}

// DeleteApplicant removes the applicant and its resume file.
func (s *Service) DeleteApplicant(ctx context.Context, id string) error {
	applicant, err := s.repo.DeleteApplicant(ctx, id)
	if err != nil {
		return err
	}
	s.removeResume(ctx, applicant)
	return nil
}

// PurgeApplicants deletes applicants older than retention and their resumes.
func (s *Service) PurgeApplicants(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	removed, err := s.repo.DeleteApplicantsBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	for i := range removed {
		s.removeResume(ctx, &removed[i])
	}
	return len(removed), nil
}

func (s *Service) removeResume(ctx context.Context, applicant *Applicant) {
	if applicant == nil || applicant.ResumeFile == "" || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, applicant.ResumeFile); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("file", applicant.ResumeFile).Msg("failed to delete resume")
	}
}
