package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/services/sync"
)

// SyncHandler exposes the manual sync trigger endpoint
type SyncHandler struct {
	syncService  SyncService
	triggerToken string
	validate     *validator.Validate
	logger       arbor.ILogger
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService SyncService, triggerToken string, logger arbor.ILogger) *SyncHandler {
	return &SyncHandler{
		syncService:  syncService,
		triggerToken: triggerToken,
		validate:     validator.New(),
		logger:       logger,
	}
}

// TriggerRequest selects exactly one sync target. Scheduled callers set
// manual=false; dashboard-initiated refreshes set manual=true.
type TriggerRequest struct {
	OrgID     string `json:"org_id" validate:"required_without_all=AccountID ProjectID,excluded_with=AccountID ProjectID,max=128"`
	AccountID string `json:"account_id" validate:"required_without_all=OrgID ProjectID,excluded_with=OrgID ProjectID,max=128"`
	ProjectID string `json:"project_id" validate:"required_without_all=OrgID AccountID,excluded_with=OrgID AccountID,max=128"`
	SessionID string `json:"session_id" validate:"omitempty,max=128"`
	Manual    bool   `json:"manual"`
}

// TriggerResponse reports the outcome of a trigger invocation
type TriggerResponse struct {
	Success   bool                `json:"success"`
	Processed int                 `json:"processed"`
	SessionID string              `json:"session_id,omitempty"`
	Results   []sync.EntityResult `json:"results"`
}

// TriggerHandler handles POST /api/sync/trigger
func (h *SyncHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if !h.authorize(r) {
		WriteError(w, http.StatusUnauthorized, "Invalid or missing trigger token")
		return
	}

	var req TriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Exactly one of org_id, account_id or project_id is required")
		return
	}

	h.logger.Info().
		Str("org_id", req.OrgID).
		Str("account_id", req.AccountID).
		Str("project_id", req.ProjectID).
		Bool("manual", req.Manual).
		Msg("Sync trigger received")

	switch {
	case req.AccountID != "":
		h.triggerAccount(w, r, &req)
	case req.ProjectID != "":
		h.triggerProject(w, r, &req)
	default:
		h.triggerOrg(w, r, &req)
	}
}

// authorize checks the bearer shared secret. An unset token disables auth,
// which is only acceptable in local development.
func (h *SyncHandler) authorize(r *http.Request) bool {
	if h.triggerToken == "" {
		return true
	}
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	return found && token == h.triggerToken
}

func (h *SyncHandler) triggerAccount(w http.ResponseWriter, r *http.Request, req *TriggerRequest) {
	resp := &TriggerResponse{Processed: 1, SessionID: req.SessionID}
	if err := h.syncService.SyncAccount(r.Context(), req.AccountID); err != nil {
		resp.Results = append(resp.Results, sync.EntityResult{ID: req.AccountID, Error: err.Error()})
		WriteJSON(w, http.StatusOK, resp)
		return
	}
	resp.Success = true
	resp.Results = append(resp.Results, sync.EntityResult{ID: req.AccountID, Status: "completed"})
	WriteJSON(w, http.StatusOK, resp)
}

func (h *SyncHandler) triggerProject(w http.ResponseWriter, r *http.Request, req *TriggerRequest) {
	result, err := h.syncService.SyncProject(r.Context(), req.ProjectID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, &TriggerResponse{
		Success:   result.Failed == 0,
		Processed: result.Processed,
		SessionID: req.SessionID,
		Results:   result.Results,
	})
}

func (h *SyncHandler) triggerOrg(w http.ResponseWriter, r *http.Request, req *TriggerRequest) {
	session, err := h.syncService.RefreshOrg(r.Context(), req.OrgID, req.Manual)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Dispatch acknowledged; per-account progress lands on the session record
	WriteJSON(w, http.StatusOK, &TriggerResponse{
		Success:   true,
		Processed: session.Totals.Accounts,
		SessionID: session.ID,
	})
}
