package handlers

import (
	"errors"
	"net/http"

	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/storage/files"
	"github.com/counselcms/server/internal/validation"
)

// MaxImageBytes bounds a single admin image upload.
const MaxImageBytes = 8 << 20

// multipartMemory is the part of a multipart body kept in memory; the rest
// spools to temp files.
const multipartMemory = 1 << 20

type uploadResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type UploadsHandler struct {
	store       *files.Store
	auditLogger *audit.Logger
	env         string
}

func NewUploadsHandler(store *files.Store, auditLogger *audit.Logger, env string) *UploadsHandler {
	return &UploadsHandler{store: store, auditLogger: auditLogger, env: env}
}

// List handles GET /api/v1/admin/uploads.
func (h *UploadsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newList(list))
}

// Upload handles POST /api/v1/admin/uploads with the image in the "file"
// multipart field.
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, r, validation.NewFieldError("file", "is required"), h.env)
			return
		}
		writeBadRequest(w, r, err, h.env)
		return
	}
	defer file.Close()

	name, err := h.store.Save(r.Context(), header.Filename, file, MaxImageBytes, files.ImageExtensions)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "upload.create", "upload", name, audit.StatusSuccess,
		map[string]string{"original_name": header.Filename})
	writeJSON(w, http.StatusCreated, uploadResponse{Name: name, URL: files.URL(name)})
}

// Delete handles DELETE /api/v1/admin/uploads/{name}. Only public uploads can
// be removed here; résumés go with their applicant.
func (h *UploadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if !files.Public(name) {
		writeError(w, r, files.ErrInvalidName, h.env)
		return
	}
	if err := h.store.Delete(r.Context(), name); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "upload.delete", "upload", name, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}

// Serve handles GET /uploads/{name}. Stored names are content-addressed by
// ULID, so responses are cacheable for a year.
func (h *UploadsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if !files.Public(name) {
		http.NotFound(w, r)
		return
	}
	file, contentType, err := h.store.Open(name)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) || errors.Is(err, files.ErrInvalidName) {
			http.NotFound(w, r)
			return
		}
		writeError(w, r, err, h.env)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, name, stat.ModTime(), file)
}
