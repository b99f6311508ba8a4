package handlers

import (
	"context"

	"github.com/viewdeck/viewdeck/internal/models"
	"github.com/viewdeck/viewdeck/internal/services/cleanup"
	"github.com/viewdeck/viewdeck/internal/services/sync"
)

// SyncService is the orchestrator surface the trigger endpoint drives
type SyncService interface {
	SyncAccounts(ctx context.Context) (*sync.BatchResult, error)
	SyncVideos(ctx context.Context) (*sync.BatchResult, error)
	SyncAccount(ctx context.Context, accountID string) error
	SyncProject(ctx context.Context, projectID string) (*sync.BatchResult, error)
	RefreshOrg(ctx context.Context, orgID string, manual bool) (*models.RefreshSession, error)
}

// CleanupService sweeps zombie records on demand
type CleanupService interface {
	SweepAll(ctx context.Context) (*cleanup.Result, error)
	SweepOrg(ctx context.Context, orgID string) (*cleanup.Result, error)
}
