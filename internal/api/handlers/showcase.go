package handlers

import (
	"net/http"

	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/domain/showcase"
)

// CollectionHandler serves CRUD and reorder for one orderable showcase
// collection. The route segment and audit resource type are the collection
// name.
type CollectionHandler[T any, P interface {
	*T
	showcase.Item
}] struct {
	service     *showcase.Service[T, P]
	auditLogger *audit.Logger
	env         string
}

func NewCollectionHandler[T any, P interface {
	*T
	showcase.Item
}](service *showcase.Service[T, P], auditLogger *audit.Logger, env string) *CollectionHandler[T, P] {
	return &CollectionHandler[T, P]{service: service, auditLogger: auditLogger, env: env}
}

func (h *CollectionHandler[T, P]) resource() string {
	return string(h.service.Collection())
}

func (h *CollectionHandler[T, P]) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

func (h *CollectionHandler[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Create appends a new item at the end of the collection.
func (h *CollectionHandler[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	var input T
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	item, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	id := P(&item).Base().ID
	h.auditLogger.LogFromRequest(r, h.resource()+".create", h.resource(), id, audit.StatusSuccess, nil)
	writeJSON(w, http.StatusCreated, item)
}

// Update replaces the item's content; its position is kept.
func (h *CollectionHandler[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	var input T
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	item, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, h.resource()+".update", h.resource(), id, audit.StatusSuccess, nil)
	writeJSON(w, http.StatusOK, item)
}

func (h *CollectionHandler[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.env)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, h.resource()+".delete", h.resource(), id, audit.StatusSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}

// Reorder takes the complete ordered ID list and returns the reordered
// collection.
func (h *CollectionHandler[T, P]) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	items, err := h.service.Reorder(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, h.resource()+".reorder", h.resource(), "", audit.StatusSuccess, nil)
	writeJSON(w, http.StatusOK, newList(items))
}

// Register mounts the collection routes under prefix, which ends in the
// collection name.
func (h *CollectionHandler[T, P]) Register(mux *http.ServeMux, prefix string, wrap func(http.Handler) http.Handler) {
	mux.Handle("GET "+prefix, wrap(http.HandlerFunc(h.List)))
	mux.Handle("POST "+prefix, wrap(http.HandlerFunc(h.Create)))
	mux.Handle("POST "+prefix+"/reorder", wrap(http.HandlerFunc(h.Reorder)))
	mux.Handle("GET "+prefix+"/{id}", wrap(http.HandlerFunc(h.Get)))
	mux.Handle("PUT "+prefix+"/{id}", wrap(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE "+prefix+"/{id}", wrap(http.HandlerFunc(h.Delete)))
}
