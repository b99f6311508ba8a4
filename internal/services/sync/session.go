package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/models"
)

// RefreshOrg starts an organization-wide refresh: every project's accounts
// are re-queued and synced, with project dispatches running concurrently.
// The call returns once the session is created and the dispatches are in
// flight; completion is recorded on the session when an all-settled barrier
// releases in the background. Terminal-error accounts stay untouched; they
// need an explicit reset.
func (s *Service) RefreshOrg(ctx context.Context, orgID string, manual bool) (*models.RefreshSession, error) {
	accounts, err := s.storage.Accounts().ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list org accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("organization %s has no tracked accounts", orgID)
	}

	projects := make(map[string][]*models.TrackedAccount)
	for _, account := range accounts {
		projects[account.ProjectID] = append(projects[account.ProjectID], account)
	}

	session := &models.RefreshSession{
		ID:     common.NewSessionID(),
		OrgID:  orgID,
		Status: models.SessionDispatching,
		Totals: models.SessionTotals{
			Projects: len(projects),
			Accounts: len(accounts),
		},
		Manual:    manual,
		CreatedAt: s.now(),
	}

	// The previous completed run is the delta baseline for this one
	baseline, err := s.storage.Sessions().GetLatestCompleted(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline session: %w", err)
	}
	if baseline != nil {
		totals := baseline.Totals
		session.Previous = &totals
	}

	if err := s.storage.Sessions().Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	session.Status = models.SessionRunning
	if err := s.storage.Sessions().Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.logger.Info().
		Str("session_id", session.ID).
		Str("org_id", orgID).
		Int("projects", len(projects)).
		Int("accounts", len(accounts)).
		Bool("manual", manual).
		Msg("Organization refresh started")

	// Snapshot before dispatch; the goroutines below mutate the live session
	started := *session

	// Dispatches outlive the triggering request, so they run on a detached
	// context rather than the caller's
	bg := context.Background()
	var wg gosync.WaitGroup
	var mu gosync.Mutex

	for projectID, projectAccounts := range projects {
		wg.Add(1)
		go func(projectID string, projectAccounts []*models.TrackedAccount) {
			defer wg.Done()

			result := s.refreshProject(bg, projectID, projectAccounts)

			mu.Lock()
			defer mu.Unlock()
			session.MarkProjectDone(result.Succeeded, result.Failed)
			if err := s.storage.Sessions().Save(bg, session); err != nil {
				s.logger.Error().Str("session_id", session.ID).Err(err).Msg("Failed to record project completion")
			}
		}(projectID, projectAccounts)
	}

	go func() {
		wg.Wait()
		mu.Lock()
		defer mu.Unlock()
		s.finalizeSession(bg, session)
	}()

	return &started, nil
}

// SyncProject re-queues and syncs one project's accounts on demand
func (s *Service) SyncProject(ctx context.Context, projectID string) (*BatchResult, error) {
	accounts, err := s.storage.Accounts().ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("project %s has no tracked accounts", projectID)
	}
	return s.refreshProject(ctx, projectID, accounts), nil
}

// refreshProject re-queues and syncs one project's accounts sequentially
func (s *Service) refreshProject(ctx context.Context, projectID string, accounts []*models.TrackedAccount) *BatchResult {
	result := &BatchResult{}
	for _, account := range accounts {
		if account.IsTerminal() {
			continue
		}
		result.Processed++
		if account.SyncStatus != models.AccountSyncPending {
			account.ResetSync()
			if err := s.storage.Accounts().Save(ctx, account); err != nil {
				s.logger.Error().Str("account_id", account.ID).Err(err).Msg("Failed to re-queue account")
				result.Failed++
				result.Results = append(result.Results, EntityResult{ID: account.ID, Status: string(account.SyncStatus), Error: err.Error()})
				continue
			}
		}
		if err := s.syncAccount(ctx, account); err != nil {
			result.Failed++
			result.Results = append(result.Results, EntityResult{ID: account.ID, Status: string(account.SyncStatus), Error: err.Error()})
			continue
		}
		result.Succeeded++
		result.Results = append(result.Results, EntityResult{ID: account.ID, Status: string(account.SyncStatus)})
	}

	s.logger.Debug().
		Str("project_id", projectID).
		Int("completed", result.Succeeded).
		Int("failed", result.Failed).
		Msg("Project refresh finished")
	return result
}

// finalizeSession rolls up org-wide metric totals onto the completed session
func (s *Service) finalizeSession(ctx context.Context, session *models.RefreshSession) {
	accounts, err := s.storage.Accounts().ListByOrg(ctx, session.OrgID)
	if err != nil {
		s.logger.Error().Str("session_id", session.ID).Err(err).Msg("Failed to roll up session totals")
	} else {
		for _, account := range accounts {
			session.Totals.Followers += account.FollowerCount
			session.Totals.Views += account.Stats.TotalViews
			session.Totals.Likes += account.Stats.TotalLikes
			session.Totals.Comments += account.Stats.TotalComments
			session.Totals.Shares += account.Stats.TotalShares
		}
	}

	session.Status = models.SessionCompleted
	now := s.now()
	session.CompletedAt = &now
	if err := s.storage.Sessions().Save(ctx, session); err != nil {
		s.logger.Error().Str("session_id", session.ID).Err(err).Msg("Failed to finalize session")
		return
	}

	delta := session.Delta()
	s.logger.Info().
		Str("session_id", session.ID).
		Int("completed_accounts", session.Totals.CompletedAccounts).
		Int("failed_accounts", session.Totals.FailedAccounts).
		Int64("views", session.Totals.Views).
		Int64("views_delta", delta.Views).
		Msg("Organization refresh completed")
}
