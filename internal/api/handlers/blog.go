package handlers

import (
	"net/http"
	"net/url"

	"github.com/counselcms/server/internal/api/pagination"
	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/domain/blog"
	"github.com/counselcms/server/internal/validation"
)

type BlogHandler struct {
	service     *blog.Service
	auditLogger *audit.Logger
	env         string
}

func NewBlogHandler(service *blog.Service, auditLogger *audit.Logger, env string) *BlogHandler {
	return &BlogHandler{service: service, auditLogger: auditLogger, env: env}
}

// blogFilter reads the after, tag and limit query parameters.
func blogFilter(query url.Values, publishedOnly bool) (blog.Filter, error) {
	after, err := pagination.Decode(query.Get("after"))
	if err != nil {
		return blog.Filter{}, validation.NewFieldError("after", "is not a valid cursor")
	}
	limit, err := pagination.ParseLimit(query.Get("limit"), pagination.DefaultLimit)
	if err != nil {
		return blog.Filter{}, validation.NewFieldError("limit", err.Error())
	}
	return blog.Filter{
		PublishedOnly: publishedOnly,
		Tag:           query.Get("tag"),
		After:         after,
		Limit:         limit,
	}, nil
}

// List handles GET /api/v1/admin/posts, drafts included.
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// ListPublished handles GET /api/v1/posts.
func (h *BlogHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *BlogHandler) list(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	filter, err := blogFilter(r.URL.Query(), publishedOnly)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	resp := newList(result.Posts)
	resp.NextCursor = result.NextCursor
	writeJSON(w, http.StatusOK, resp)
}

func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	post, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input blog.PostInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	post, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "post.create", "post", post.ID, audit.StatusSuccess, map[string]string{"slug": post.Slug})
	writeJSON(w, http.StatusCreated, post)
}

func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	var input blog.PostInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	post, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "post.update", "post", post.ID, audit.StatusSuccess, map[string]string{"slug": post.Slug})
	writeJSON(w, http.StatusOK, post)
}

func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "post.delete", "post", id, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}
