package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/interfaces"
)

// StatusHandler reports application status for dashboard and monitoring
type StatusHandler struct {
	scheduler interfaces.SchedulerService
	config    *common.Config
	logger    arbor.ILogger
	startedAt time.Time
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(scheduler interfaces.SchedulerService, config *common.Config, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		scheduler: scheduler,
		config:    config,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":           common.GetVersion(),
		"environment":       h.config.Environment,
		"uptime":            time.Since(h.startedAt).Round(time.Second).String(),
		"scheduler_running": h.scheduler.IsRunning(),
		"jobs":              h.scheduler.GetAllJobStatuses(),
	})
}
