package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
)

// CleanupHandler exposes on-demand zombie-record sweeps
type CleanupHandler struct {
	cleanupService CleanupService
	logger         arbor.ILogger
}

// NewCleanupHandler creates a new CleanupHandler
func NewCleanupHandler(cleanupService CleanupService, logger arbor.ILogger) *CleanupHandler {
	return &CleanupHandler{
		cleanupService: cleanupService,
		logger:         logger,
	}
}

// SweepHandler handles POST /api/cleanup/sweep with an optional org_id query
// parameter to scope the sweep to one organization
func (h *CleanupHandler) SweepHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	orgID := r.URL.Query().Get("org_id")

	var err error
	var result interface{}
	if orgID != "" {
		result, err = h.cleanupService.SweepOrg(r.Context(), orgID)
	} else {
		result, err = h.cleanupService.SweepAll(r.Context())
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, result)
}
