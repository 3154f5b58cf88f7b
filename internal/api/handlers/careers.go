package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/ids"
	"github.com/counselcms/server/internal/storage/files"
)

// CareersHandler serves job and applicant management plus the public job list.
type CareersHandler struct {
	service     *careers.Service
	files       *files.Store
	auditLogger *audit.Logger
	env         string
}

func NewCareersHandler(service *careers.Service, store *files.Store, auditLogger *audit.Logger, env string) *CareersHandler {
	return &CareersHandler{service: service, files: store, auditLogger: auditLogger, env: env}
}

// ListJobs handles GET /api/v1/admin/jobs.
func (h *CareersHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context(), careers.JobFilter{OpenOnly: r.URL.Query().Get("open") == "true"})
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newList(jobs))
}

func (h *CareersHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	job, err := h.service.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *CareersHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var input careers.JobInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	job, err := h.service.CreateJob(r.Context(), input)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "job.create", "job", job.ID, audit.StatusSuccess, map[string]string{"slug": job.Slug})
	writeJSON(w, http.StatusCreated, job)
}

func (h *CareersHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	var input careers.JobInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	job, err := h.service.UpdateJob(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "job.update", "job", job.ID, audit.StatusSuccess, map[string]string{"slug": job.Slug})
	writeJSON(w, http.StatusOK, job)
}

func (h *CareersHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	if err := h.service.DeleteJob(r.Context(), id); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "job.delete", "job", id, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}

// ListApplicants handles GET /api/v1/admin/applicants?job_id=&status=.
func (h *CareersHandler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := careers.ApplicantFilter{Status: careers.ApplicantStatus(strings.TrimSpace(query.Get("status")))}
	if jobID := strings.TrimSpace(query.Get("job_id")); jobID != "" {
		if !ids.IsULID(jobID) {
			writeError(w, r, fmt.Errorf("job_id: %w", ids.ErrInvalidULID), h.env)
			return
		}
		filter.JobID = strings.ToUpper(jobID)
	}
	applicants, err := h.service.ListApplicants(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newList(applicants))
}

func (h *CareersHandler) GetApplicant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	applicant, err := h.service.GetApplicant(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, applicant)
}

type applicantStatusRequest struct {
	Status careers.ApplicantStatus `json:"status"`
}

// UpdateApplicantStatus handles PUT /api/v1/admin/applicants/{id}/status.
func (h *CareersHandler) UpdateApplicantStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	var req applicantStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	applicant, err := h.service.UpdateApplicantStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "applicant.status", "applicant", id, audit.StatusSuccess,
		map[string]string{"status": string(applicant.Status)})
	writeJSON(w, http.StatusOK, applicant)
}

// DeleteApplicant removes the applicant and its résumé.
func (h *CareersHandler) DeleteApplicant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	if err := h.service.DeleteApplicant(r.Context(), id); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "applicant.delete", "applicant", id, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}

// Resume handles GET /api/v1/admin/applicants/{id}/resume. Résumés are never
// reachable through /uploads.
func (h *CareersHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	applicant, err := h.service.GetApplicant(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	if applicant.ResumeFile == "" || h.files == nil {
		writeError(w, r, careers.ErrNoResume, h.env)
		return
	}
	file, contentType, err := h.files.Open(applicant.ResumeFile)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	name := applicant.ResumeName
	if name == "" {
		name = "resume" + filepath.Ext(applicant.ResumeFile)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	h.auditLogger.LogFromRequest(r, "applicant.resume", "applicant", id, audit.StatusSuccess, nil)
	http.ServeContent(w, r, "", stat.ModTime(), file)
}

// OpenJobs handles GET /api/v1/jobs.
func (h *CareersHandler) OpenJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.OpenJobs(r.Context())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newList(jobs))
}
