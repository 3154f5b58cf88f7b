package memory

import (
	"context"
	"time"

	"github.com/counselcms/server/internal/domain/careers"
)

type CareersRepository struct {
	locker
	clock      *clock
	jobs       map[string]*careers.Job
	applicants map[string]*careers.Applicant
}

func (r *CareersRepository) ListJobs(ctx context.Context, filter careers.JobFilter) ([]careers.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]careers.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if filter.OpenOnly && !j.Open {
			continue
		}
		out = append(out, *j)
	}
	sortByCreatedDesc(out, func(j careers.Job) time.Time { return j.CreatedAt }, func(j careers.Job) string { return j.ID })
	return out, nil
}

func (r *CareersRepository) GetJob(ctx context.Context, id string) (*careers.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[key(id)]
	if !ok {
		return nil, careers.ErrJobNotFound
	}
	out := *j
	return &out, nil
}

func (r *CareersRepository) GetJobBySlug(ctx context.Context, slug string) (*careers.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if j.Slug == slug {
			out := *j
			return &out, nil
		}
	}
	return nil, careers.ErrJobNotFound
}

func (r *CareersRepository) jobSlugTaken(slug, exceptID string) bool {
	for id, j := range r.jobs {
		if j.Slug == slug && id != key(exceptID) {
			return true
		}
	}
	return false
}

func (r *CareersRepository) CreateJob(ctx context.Context, job *careers.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobSlugTaken(job.Slug, "") {
		return careers.ErrSlugTaken
	}
	now := r.clock.Now()
	job.CreatedAt, job.UpdatedAt = now, now
	stored := *job
	r.jobs[key(job.ID)] = &stored
	return nil
}

func (r *CareersRepository) UpdateJob(ctx context.Context, job *careers.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.jobs[key(job.ID)]
	if !ok {
		return careers.ErrJobNotFound
	}
	if r.jobSlugTaken(job.Slug, job.ID) {
		return careers.ErrSlugTaken
	}
	job.CreatedAt = existing.CreatedAt
	job.UpdatedAt = r.clock.Now()
	stored := *job
	r.jobs[key(job.ID)] = &stored
	return nil
}

// DeleteJob also removes and returns the job's applicants.
func (r *CareersRepository) DeleteJob(ctx context.Context, id string) ([]careers.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[key(id)]; !ok {
		return nil, careers.ErrJobNotFound
	}
	delete(r.jobs, key(id))
	var removed []careers.Applicant
	for aid, a := range r.applicants {
		if a.JobID == key(id) {
			removed = append(removed, *a)
			delete(r.applicants, aid)
		}
	}
	return removed, nil
}

func (r *CareersRepository) CreateApplicant(ctx context.Context, applicant *careers.Applicant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[key(applicant.JobID)]
	if !ok {
		return careers.ErrJobNotFound
	}
	applicant.JobTitle = job.Title
	now := r.clock.Now()
	applicant.CreatedAt, applicant.UpdatedAt = now, now
	stored := *applicant
	r.applicants[key(applicant.ID)] = &stored
	return nil
}

func (r *CareersRepository) ListApplicants(ctx context.Context, filter careers.ApplicantFilter) ([]careers.Applicant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]careers.Applicant, 0, len(r.applicants))
	for _, a := range r.applicants {
		if filter.JobID != "" && a.JobID != key(filter.JobID) {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, *a)
	}
	sortByCreatedDesc(out, func(a careers.Applicant) time.Time { return a.CreatedAt }, func(a careers.Applicant) string { return a.ID })
	return out, nil
}

func (r *CareersRepository) GetApplicant(ctx context.Context, id string) (*careers.Applicant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.applicants[key(id)]
	if !ok {
		return nil, careers.ErrApplicantNotFound
	}
	out := *a
	return &out, nil
}

func (r *CareersRepository) UpdateApplicantStatus(ctx context.Context, id string, status careers.ApplicantStatus) (*careers.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.applicants[key(id)]
	if !ok {
		return nil, careers.ErrApplicantNotFound
	}
	a.Status = status
	a.UpdatedAt = r.clock.Now()
	out := *a
	return &out, nil
}

func (r *CareersRepository) DeleteApplicant(ctx context.Context, id string) (*careers.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.applicants[key(id)]
	if !ok {
		return nil, careers.ErrApplicantNotFound
	}
	delete(r.applicants, key(id))
	return a, nil
}

func (r *CareersRepository) DeleteApplicantsBefore(ctx context.Context, cutoff time.Time) ([]careers.Applicant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []careers.Applicant
	for id, a := range r.applicants {
		if a.CreatedAt.Before(cutoff) {
			removed = append(removed, *a)
			delete(r.applicants, id)
		}
	}
	return removed, nil
}
