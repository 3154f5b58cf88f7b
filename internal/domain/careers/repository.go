// Package careers holds job openings and the applications submitted for them.
package careers

import (
	"context"
	"errors"
	"time"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrApplicantNotFound = errors.New("applicant not found")
	ErrSlugTaken         = errors.New("job slug already in use")
	ErrJobClosed         = errors.New("job is no longer accepting applications")
	ErrNoResume          = errors.New("applicant has no resume")
)

type EmploymentType string

const (
	FullTime   EmploymentType = "full_time"
	PartTime   EmploymentType = "part_time"
	Contract   EmploymentType = "contract"
	Internship EmploymentType = "internship"
)

type Job struct {
	ID             string         `json:"id"`
	Slug           string         `json:"slug"`
	Title          string         `json:"title"`
	Department     string         `json:"department"`
	Location       string         `json:"location"`
	EmploymentType EmploymentType `json:"employment_type"`
	Summary        string         `json:"summary"`
	Description    string         `json:"description"`
	Open           bool           `json:"open"`
	Deadline       *time.Time     `json:"deadline,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// AcceptingApplications reports whether the job is open and its deadline
// (inclusive of the whole deadline day) has not passed at now.
func (j Job) AcceptingApplications(now time.Time) bool {
	if !j.Open {
		return false
	}
	if j.Deadline == nil {
		return true
	}
	d := j.Deadline.UTC()
	endOfDay := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC)
	return !now.UTC().After(endOfDay)
}

type ApplicantStatus string

const (
	StatusNew       ApplicantStatus = "new"
	StatusReviewing ApplicantStatus = "reviewing"
	StatusInterview ApplicantStatus = "interview"
	StatusOffered   ApplicantStatus = "offered"
	StatusRejected  ApplicantStatus = "rejected"
	StatusHired     ApplicantStatus = "hired"
)

func (s ApplicantStatus) Valid() bool {
	switch s {
	case StatusNew, StatusReviewing, StatusInterview, StatusOffered, StatusRejected, StatusHired:
		return true
	}
	return false
}

type Applicant struct {
	ID          string          `json:"id"`
	JobID       string          `json:"job_id"`
	JobTitle    string          `json:"job_title"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	CoverLetter string          `json:"cover_letter"`
	ResumeFile  string          `json:"resume_file,omitempty"`
	ResumeName  string          `json:"resume_name,omitempty"`
	Status      ApplicantStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type JobFilter struct {
	OpenOnly bool
}

type ApplicantFilter struct {
	JobID  string
	Status ApplicantStatus
}

type Repository interface {
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	GetJobBySlug(ctx context.Context, slug string) (*Job, error)
	CreateJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error
	// DeleteJob removes the job with its applicants and returns the removed
	// applicants so their resumes can be removed.
	DeleteJob(ctx context.Context, id string) ([]Applicant, error)

	CreateApplicant(ctx context.Context, applicant *Applicant) error
	ListApplicants(ctx context.Context, filter ApplicantFilter) ([]Applicant, error)
	GetApplicant(ctx context.Context, id string) (*Applicant, error)
	UpdateApplicantStatus(ctx context.Context, id string, status ApplicantStatus) (*Applicant, error)
	DeleteApplicant(ctx context.Context, id string) (*Applicant, error)
	// DeleteApplicantsBefore removes applicants created before cutoff and
	// returns them so their resumes can be removed.
	DeleteApplicantsBefore(ctx context.Context, cutoff time.Time) ([]Applicant, error)
}
