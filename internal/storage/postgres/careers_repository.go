package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/counselcms/server/internal/domain/careers"
	"github.com/jackc/pgx/v5"
)

type CareersRepository struct {
	conn
}

const jobColumns = `id, slug, title, department, location, employment_type, summary, description, open, deadline, created_at, updated_at`

func scanJob(row pgx.Row) (*careers.Job, error) {
	var (
		j          careers.Job
		employment string
	)
	err := row.Scan(&j.ID, &j.Slug, &j.Title, &j.Department, &j.Location, &employment,
		&j.Summary, &j.Description, &j.Open, &j.Deadline, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.EmploymentType = careers.EmploymentType(employment)
	return &j, nil
}

func (r *CareersRepository) ListJobs(ctx context.Context, filter careers.JobFilter) ([]careers.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	if filter.OpenOnly {
		query += ` WHERE open`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.queryer().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []careers.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

func (r *CareersRepository) GetJob(ctx context.Context, id string) (*careers.Job, error) {
	j, err := scanJob(r.queryer().QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, normalizeID(id)))
	if err != nil {
		if isNoRows(err) {
			return nil, careers.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (r *CareersRepository) GetJobBySlug(ctx context.Context, slug string) (*careers.Job, error) {
	j, err := scanJob(r.queryer().QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE slug = $1`, slug))
	if err != nil {
		if isNoRows(err) {
			return nil, careers.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job by slug: %w", err)
	}
	return j, nil
}

func (r *CareersRepository) CreateJob(ctx context.Context, job *careers.Job) error {
	err := r.queryer().QueryRow(ctx, `
INSERT INTO jobs (id, slug, title, department, location, employment_type, summary, description, open, deadline)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at
`, job.ID, job.Slug, job.Title, job.Department, job.Location, string(job.EmploymentType),
		job.Summary, job.Description, job.Open, job.Deadline,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "jobs_slug_key") {
			return careers.ErrSlugTaken
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *CareersRepository) UpdateJob(ctx context.Context, job *careers.Job) error {
	err := r.queryer().QueryRow(ctx, `
UPDATE jobs
   SET slug = $2, title = $3, department = $4, location = $5, employment_type = $6,
       summary = $7, description = $8, open = $9, deadline = $10, updated_at = now()
 WHERE id = $1
RETURNING created_at, updated_at
`, job.ID, job.Slug, job.Title, job.Department, job.Location, string(job.EmploymentType),
		job.Summary, job.Description, job.Open, job.Deadline,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return careers.ErrJobNotFound
		}
		if isUniqueViolation(err, "jobs_slug_key") {
			return careers.ErrSlugTaken
		}
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// deletedApplicantColumns matches scanApplicant for DELETE ... RETURNING,
// where the job title is not joined.
const deletedApplicantColumns = `id, job_id, '', name, email, phone, cover_letter, resume_file, resume_name, status, created_at, updated_at`

// DeleteJob removes the applicants explicitly before the job so their resume
// files are reported instead of vanishing through the cascade.
func (r *CareersRepository) DeleteJob(ctx context.Context, id string) ([]careers.Applicant, error) {
	var removed []careers.Applicant
	err := r.inTx(ctx, func(q queryer) error {
		rows, err := q.Query(ctx, `DELETE FROM applicants WHERE job_id = $1 RETURNING `+deletedApplicantColumns, normalizeID(id))
		if err != nil {
			return fmt.Errorf("delete job applicants: %w", err)
		}
		if removed, err = collectApplicants(rows); err != nil {
			return err
		}
		tag, err := q.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, normalizeID(id))
		if err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return careers.ErrJobNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

const applicantSelect = `
SELECT a.id, a.job_id, j.title, a.name, a.email, a.phone, a.cover_letter,
       a.resume_file, a.resume_name, a.status, a.created_at, a.updated_at
  FROM applicants a
  JOIN jobs j ON j.id = a.job_id`

func scanApplicant(row pgx.Row) (*careers.Applicant, error) {
	var (
		a      careers.Applicant
		status string
	)
	err := row.Scan(&a.ID, &a.JobID, &a.JobTitle, &a.Name, &a.Email, &a.Phone, &a.CoverLetter,
		&a.ResumeFile, &a.ResumeName, &status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = careers.ApplicantStatus(status)
	return &a, nil
}

func (r *CareersRepository) CreateApplicant(ctx context.Context, applicant *careers.Applicant) error {
	err := r.queryer().QueryRow(ctx, `
INSERT INTO applicants (id, job_id, name, email, phone, cover_letter, resume_file, resume_name, status)
SELECT $1, j.id, $3, $4, $5, $6, $7, $8, $9
  FROM jobs j
 WHERE j.id = $2
RETURNING (SELECT title FROM jobs WHERE id = $2), created_at, updated_at
`, applicant.ID, applicant.JobID, applicant.Name, applicant.Email, applicant.Phone,
		applicant.CoverLetter, applicant.ResumeFile, applicant.ResumeName, string(applicant.Status),
	).Scan(&applicant.JobTitle, &applicant.CreatedAt, &applicant.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return careers.ErrJobNotFound
		}
		return fmt.Errorf("insert applicant: %w", err)
	}
	return nil
}

func (r *CareersRepository) ListApplicants(ctx context.Context, filter careers.ApplicantFilter) ([]careers.Applicant, error) {
	query := applicantSelect + `
 WHERE ($1::text = '' OR a.job_id = $1)
   AND ($2::text = '' OR a.status = $2)
 ORDER BY a.created_at DESC, a.id DESC`
	rows, err := r.queryer().Query(ctx, query, normalizeID(filter.JobID), string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("list applicants: %w", err)
	}
	defer rows.Close()

	out := []careers.Applicant{}
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan applicant: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applicants: %w", err)
	}
	return out, nil
}

func (r *CareersRepository) GetApplicant(ctx context.Context, id string) (*careers.Applicant, error) {
	a, err := scanApplicant(r.queryer().QueryRow(ctx, applicantSelect+` WHERE a.id = $1`, normalizeID(id)))
	if err != nil {
		if isNoRows(err) {
			return nil, careers.ErrApplicantNotFound
		}
		return nil, fmt.Errorf("get applicant: %w", err)
	}
	return a, nil
}

func (r *CareersRepository) UpdateApplicantStatus(ctx context.Context, id string, status careers.ApplicantStatus) (*careers.Applicant, error) {
	tag, err := r.queryer().Exec(ctx,
		`UPDATE applicants SET status = $2, updated_at = now() WHERE id = $1`,
		normalizeID(id), string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("update applicant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, careers.ErrApplicantNotFound
	}
	return r.GetApplicant(ctx, id)
}

func (r *CareersRepository) DeleteApplicant(ctx context.Context, id string) (*careers.Applicant, error) {
	var out *careers.Applicant
	err := r.inTx(ctx, func(q queryer) error {
		a, err := scanApplicant(q.QueryRow(ctx, applicantSelect+` WHERE a.id = $1 FOR UPDATE OF a`, normalizeID(id)))
		if err != nil {
			if isNoRows(err) {
				return careers.ErrApplicantNotFound
			}
			return fmt.Errorf("get applicant: %w", err)
		}
		if _, err := q.Exec(ctx, `DELETE FROM applicants WHERE id = $1`, a.ID); err != nil {
			return fmt.Errorf("delete applicant: %w", err)
		}
		out = a
		return nil
	})
	return out, err
}

func (r *CareersRepository) DeleteApplicantsBefore(ctx context.Context, cutoff time.Time) ([]careers.Applicant, error) {
	rows, err := r.queryer().Query(ctx, `DELETE FROM applicants WHERE created_at < $1 RETURNING `+deletedApplicantColumns, cutoff)
	if err != nil {
		return nil, fmt.Errorf("purge applicants: %w", err)
	}
	return collectApplicants(rows)
}

func collectApplicants(rows pgx.Rows) ([]careers.Applicant, error) {
	defer rows.Close()
	var out []careers.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deleted applicant: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted applicants: %w", err)
	}
	return out, nil
}
