package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/counselcms/server/internal/domain/careers"
	"github.com/stretchr/testify/require"
)

func careersMux(h *CareersHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/jobs", h.OpenJobs)
	mux.HandleFunc("GET /api/v1/admin/jobs", h.ListJobs)
	mux.HandleFunc("POST /api/v1/admin/jobs", h.CreateJob)
	mux.HandleFunc("GET /api/v1/admin/jobs/{id}", h.GetJob)
	mux.HandleFunc("PUT /api/v1/admin/jobs/{id}", h.UpdateJob)
	mux.HandleFunc("DELETE /api/v1/admin/jobs/{id}", h.DeleteJob)
	mux.HandleFunc("GET /api/v1/admin/applicants", h.ListApplicants)
	mux.HandleFunc("GET /api/v1/admin/applicants/{id}", h.GetApplicant)
	mux.HandleFunc("PUT /api/v1/admin/applicants/{id}/status", h.UpdateApplicantStatus)
	mux.HandleFunc("GET /api/v1/admin/applicants/{id}/resume", h.Resume)
	mux.HandleFunc("DELETE /api/v1/admin/applicants/{id}", h.DeleteApplicant)
	return mux
}

func TestCareersHandler_Jobs(t *testing.T) {
	app := newTestApp(t)
	mux := careersMux(NewCareersHandler(app.careers, app.files, app.audit, "test"))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodPost, "/api/v1/admin/jobs", careers.JobInput{
		Title:    "Senior Associate",
		Location: "Chicago",
	}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	job := decodeJSONBody[careers.Job](t, w)
	require.Equal(t, "senior-associate", job.Slug)
	require.Equal(t, careers.FullTime, job.EmploymentType)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decodeJSONBody[listResponse[careers.Job]](t, w).Items, "closed jobs are not public")

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodPut, "/api/v1/admin/jobs/"+job.ID, careers.JobInput{
		Title:    "Senior Associate",
		Slug:     job.Slug,
		Location: "Chicago",
		Open:     true,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	require.Len(t, decodeJSONBody[listResponse[careers.Job]](t, w).Items, 1)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/jobs?open=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeJSONBody[listResponse[careers.Job]](t, w).Items, 1)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodPost, "/api/v1/admin/jobs", careers.JobInput{
		Title: "Senior Associate",
		Slug:  job.Slug,
	}))
	require.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, adminRequest(t, http.MethodDelete, "/api/v1/admin/jobs/"+job.ID, nil))
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestCareersHandler_Applicants(t *testing.T) {
	app := newTestApp(t)
	mux := careersMux(NewCareersHandler(app.careers, app.files, app.audit, "test"))
	job := app.openJob(t, "associate")
	ctx := context.Background()

	withResume, err := app.careers.Apply(ctx, job.Slug, careers.ApplicationInput{
		Name:  "Alex Counsel",
		Email: "alex@example.com",
	}, &careers.Resume{Filename: "Alex CV.pdf", Body: bytes.NewReader([]byte("%PDF-1.7\nresume body\n"))})
	require.NoError(t, err)
	without, err := app.careers.Apply(ctx, job.Slug, careers.ApplicationInput{
		Name:  "Robin Clerk",
		Email: "robin@example.com",
	}, nil)
	require.NoError(t, err)

	t.Run("list by job", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/applicants?job_id="+job.ID, nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, decodeJSONBody[listResponse[careers.Applicant]](t, w).Items, 2)
	})

	t.Run("list rejects malformed job id", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/applicants?job_id=abc", nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("status update", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodPut, "/api/v1/admin/applicants/"+without.ID+"/status",
			applicantStatusRequest{Status: careers.StatusReviewing}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.Equal(t, careers.StatusReviewing, decodeJSONBody[careers.Applicant](t, w).Status)

		w = httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/applicants?status=reviewing", nil))
		require.Len(t, decodeJSONBody[listResponse[careers.Applicant]](t, w).Items, 1)
	})

	t.Run("unknown status", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodPut, "/api/v1/admin/applicants/"+without.ID+"/status",
			applicantStatusRequest{Status: "promoted"}))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("resume download", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/applicants/"+withResume.ID+"/resume", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		require.Equal(t, `attachment; filename="Alex CV.pdf"`, w.Header().Get("Content-Disposition"))
		require.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))
		require.Contains(t, w.Body.String(), "resume body")
	})

	t.Run("no resume", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/applicants/"+without.ID+"/resume", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete removes the resume file", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodDelete, "/api/v1/admin/applicants/"+withResume.ID, nil))
		require.Equal(t, http.StatusNoContent, w.Code)

		_, _, err := app.files.Open(withResume.ResumeFile)
		require.Error(t, err)

		w = httptest.NewRecorder()
		mux.ServeHTTP(w, adminRequest(t, http.MethodGet, "/api/v1/admin/applicants/"+withResume.ID, nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
