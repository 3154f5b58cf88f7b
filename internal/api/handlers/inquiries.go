package handlers

import (
	"net/http"

	"github.com/counselcms/server/internal/api/pagination"
	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/validation"
)

type InquiriesHandler struct {
	service     *inquiries.Service
	auditLogger *audit.Logger
	env         string
}

func NewInquiriesHandler(service *inquiries.Service, auditLogger *audit.Logger, env string) *InquiriesHandler {
	return &InquiriesHandler{service: service, auditLogger: auditLogger, env: env}
}

// List handles GET /api/v1/admin/inquiries?unread=true&limit=N, newest first.
func (h *InquiriesHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := pagination.ParseLimit(query.Get("limit"), pagination.MaxLimit)
	if err != nil {
		writeError(w, r, validation.NewFieldError("limit", err.Error()), h.env)
		return
	}
	list, err := h.service.List(r.Context(), inquiries.Filter{
		UnreadOnly: query.Get("unread") == "true",
		Limit:      limit,
	})
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newList(list))
}

func (h *InquiriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	inquiry, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, inquiry)
}

// MarkRead handles PUT /api/v1/admin/inquiries/{id}/read.
func (h *InquiriesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	inquiry, err := h.service.MarkRead(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "inquiry.read", "inquiry", id, audit.StatusSuccess, nil)
	writeJSON(w, http.StatusOK, inquiry)
}

func (h *InquiriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "inquiry.delete", "inquiry", id, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}
