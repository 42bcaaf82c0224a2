package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/valuator/internal/common"
)

// SystemHandler serves health and version endpoints
type SystemHandler struct {
	started time.Time
}

// NewSystemHandler creates a SystemHandler
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{started: time.Now()}
}

// HealthHandler handles GET /api/health
func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"version": common.GetVersion(),
	})
}

// VersionHandler handles GET /api/version
func (h *SystemHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, common.VersionInfo())
}
