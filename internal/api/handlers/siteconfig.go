package handlers

import (
	"net/http"

	"github.com/counselcms/server/internal/audit"
	"github.com/counselcms/server/internal/domain/siteconfig"
)

type SiteConfigHandler struct {
	service     *siteconfig.Service
	auditLogger *audit.Logger
	env         string
}

func NewSiteConfigHandler(service *siteconfig.Service, auditLogger *audit.Logger, env string) *SiteConfigHandler {
	return &SiteConfigHandler{service: service, auditLogger: auditLogger, env: env}
}

// Get handles GET /api/v1/config and GET /api/v1/admin/config.
func (h *SiteConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Get(r.Context())
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// Update handles PUT /api/v1/admin/config. The whole document is replaced.
func (h *SiteConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var cfg siteconfig.SiteConfig
	if err := decodeJSON(r, &cfg); err != nil {
		writeBadRequest(w, r, err, h.env)
		return
	}
	saved, err := h.service.Update(r.Context(), cfg)
	if err != nil {
		writeError(w, r, err, h.env)
		return
	}
	h.auditLogger.LogFromRequest(r, "config.update", "site_config", "", audit.StatusSuccess, nil)
	writeJSON(w, http.StatusOK, saved)
}
