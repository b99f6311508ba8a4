package models

import (
	"time"
)

// SessionStatus tracks the lifecycle of an org-wide refresh run
type SessionStatus string

const (
	SessionDispatching SessionStatus = "dispatching"
	SessionRunning     SessionStatus = "running"
	SessionCompleted   SessionStatus = "completed"
)

// SessionTotals aggregates metric sums across all projects in a session
type SessionTotals struct {
	Projects          int   `json:"projects"`
	Accounts          int   `json:"accounts"`
	CompletedProjects int   `json:"completed_projects"`
	CompletedAccounts int   `json:"completed_accounts"`
	FailedAccounts    int   `json:"failed_accounts"`
	Followers         int64 `json:"followers"`
	Views             int64 `json:"views"`
	Likes             int64 `json:"likes"`
	Comments          int64 `json:"comments"`
	Shares            int64 `json:"shares"`
}

// RefreshSession represents one organization-wide refresh run. It carries the
// previous session's totals so dashboards can report deltas and velocity.
// Once marked completed a session is immutable and becomes the baseline for
// the next run.
type RefreshSession struct {
	ID         string        `json:"id"`
	OrgID      string        `json:"org_id"`
	Status     SessionStatus `json:"status"`
	Totals     SessionTotals `json:"totals"`
	// Previous is a snapshot of the prior completed session's totals
	Previous    *SessionTotals `json:"previous,omitempty"`
	OwnerEmail  string         `json:"owner_email,omitempty"`
	Notified    bool           `json:"notified"`
	Manual      bool           `json:"manual"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// MarkProjectDone records one project's dispatch result on the session
func (s *RefreshSession) MarkProjectDone(accounts, failed int) {
	s.Totals.CompletedProjects++
	s.Totals.CompletedAccounts += accounts
	s.Totals.FailedAccounts += failed
	if s.Totals.CompletedProjects >= s.Totals.Projects {
		s.Status = SessionCompleted
	}
}

// Delta returns the change in a metric versus the previous session, or zero
// when no baseline exists.
func (s *RefreshSession) Delta() SessionTotals {
	if s.Previous == nil {
		return SessionTotals{}
	}
	return SessionTotals{
		Followers: s.Totals.Followers - s.Previous.Followers,
		Views:     s.Totals.Views - s.Previous.Views,
		Likes:     s.Totals.Likes - s.Previous.Likes,
		Comments:  s.Totals.Comments - s.Previous.Comments,
		Shares:    s.Totals.Shares - s.Previous.Shares,
	}
}
