package handlers

import (
	"net/http"

	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/domain/pages"
	"github.com/counselcms/server/internal/site"
)

// PagesHandler serves page and section CRUD for the admin API and the public
// page JSON.
type PagesHandler struct {
	service     *pages.Service
	auditLogger *audit.Logger
	env         string
}

func NewPagesHandler(service *pages.Service, auditLogger *audit.Logger, env string) *PagesHandler {
	return &PagesHandler{service: service, auditLogger: auditLogger, env: env}
}

// List handles GET /api/v1/admin/pages.
func (h *PagesHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), pages.ListFilter{})
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newList(list))
}

// Get handles GET /api/v1/admin/pages/{id}.
func (h *PagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	page, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Create handles POST /api/v1/admin/pages.
func (h *PagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input pages.PageInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	page, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "page.create", "page", page.ID, audit.StatusSuccess, map[string]string{"slug": page.Slug})
	writeJSON(w, http.StatusCreated, page)
}

// Update handles PUT /api/v1/admin/pages/{id}.
func (h *PagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	var input pages.PageInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	page, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "page.update", "page", page.ID, audit.StatusSuccess, map[string]string{"slug": page.Slug})
	writeJSON(w, http.StatusOK, page)
}

// Delete handles DELETE /api/v1/admin/pages/{id}. Sections go with the page.
func (h *PagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "page.delete", "page", id, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}

// AddSection handles POST /api/v1/admin/pages/{id}/sections. The new section
// is appended after the existing ones.
func (h *PagesHandler) AddSection(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	var input pages.SectionInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	section, err := h.service.AddSection(r.Context(), pageID, input)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "section.create", "section", section.ID, audit.StatusSuccess,
		map[string]string{"page_id": pageID, "type": string(section.Type)})
	writeJSON(w, http.StatusCreated, section)
}

// UpdateSection handles PUT /api/v1/admin/pages/{id}/sections/{sectionID}.
func (h *PagesHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	sectionID, ok := pathID(w, r, "sectionID", h.env)
	if !ok {
		return
	}
	var input pages.SectionInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	section, err := h.service.UpdateSection(r.Context(), pageID, sectionID, input)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "section.update", "section", section.ID, audit.StatusSuccess,
		map[string]string{"page_id": pageID, "type": string(section.Type)})
	writeJSON(w, http.StatusOK, section)
}

// DeleteSection handles DELETE /api/v1/admin/pages/{id}/sections/{sectionID}.
func (h *PagesHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	sectionID, ok := pathID(w, r, "sectionID", h.env)
	if !ok {
		return
	}
	if err := h.service.DeleteSection(r.Context(), pageID, sectionID); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "section.delete", "section", sectionID, audit.StatusSuccess,
		map[string]string{"page_id": pageID})
	w.WriteHeader(http.StatusNoContent)
}

// ReorderSections handles POST /api/v1/admin/pages/{id}/sections/reorder and
// returns the page with its sections in the new order.
func (h *PagesHandler) ReorderSections(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	page, err := h.service.ReorderSections(r.Context(), pageID, req.IDs)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "section.reorder", "page", pageID, audit.StatusSuccess, nil)
	writeJSON(w, http.StatusOK, page)
}

// GetPublished handles GET /api/v1/pages/{slug}. Hidden sections are left out.
func (h *PagesHandler) GetPublished(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.GetPublished(r.Context(), pathParam(r, "slug"))
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	page.Sections = site.VisibleSections(page.Sections)
	writeJSON(w, http.StatusOK, page)
}
