// Package quota enforces per-tenant video limits at admission time.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/models"
)

// ErrQuotaExhausted indicates the tenant has no video slots left
var ErrQuotaExhausted = errors.New("video quota exhausted")

// Enforcer admits new video records against the tenant's plan limit.
// Enforcement happens before persistence, never retroactively.
type Enforcer struct {
	quotas interfaces.QuotaStorage
	logger arbor.ILogger
}

// NewEnforcer creates a quota enforcer
func NewEnforcer(quotas interfaces.QuotaStorage, logger arbor.ILogger) *Enforcer {
	return &Enforcer{
		quotas: quotas,
		logger: logger,
	}
}

// Admit truncates candidates to the tenant's available slots, earliest
// first, and records the consumption. Exempt accounts skip the limit check
// but their admissions still count against usage. Returns ErrQuotaExhausted
// when no slot is available for a non-empty batch.
func (e *Enforcer) Admit(ctx context.Context, orgID string, exempt bool, candidates []*models.CanonicalVideo) ([]*models.CanonicalVideo, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if exempt {
		if err := e.quotas.IncrementUsage(ctx, orgID, len(candidates)); err != nil {
			return nil, fmt.Errorf("failed to record quota usage: %w", err)
		}
		return candidates, nil
	}

	current, err := e.quotas.Get(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quota: %w", err)
	}

	available := current.Available()
	if available == 0 {
		e.logger.Warn().
			Str("org_id", orgID).
			Int("limit", current.Limit).
			Int("rejected", len(candidates)).
			Msg("Quota exhausted, rejecting batch")
		return nil, fmt.Errorf("video limit of %d reached, %d new videos rejected: %w", current.Limit, len(candidates), ErrQuotaExhausted)
	}

	accepted := candidates
	if len(accepted) > available {
		accepted = accepted[:available]
		e.logger.Info().
			Str("org_id", orgID).
			Int("available", available).
			Int("accepted", len(accepted)).
			Int("rejected", len(candidates)-len(accepted)).
			Msg("Batch truncated to available quota")
	}

	if err := e.quotas.IncrementUsage(ctx, orgID, len(accepted)); err != nil {
		return nil, fmt.Errorf("failed to record quota usage: %w", err)
	}

	return accepted, nil
}

// AdmitExisting counts slots only for videos not yet stored, so re-syncing
// an account never double-charges the tenant for records it already has.
// The returned set holds the external ids that consumed a slot; the caller
// releases those slots if persistence later fails.
func (e *Enforcer) AdmitExisting(ctx context.Context, orgID string, exempt bool, candidates []*models.CanonicalVideo, isNew func(*models.CanonicalVideo) bool) ([]*models.CanonicalVideo, map[string]bool, error) {
	fresh := make([]*models.CanonicalVideo, 0, len(candidates))
	known := make([]*models.CanonicalVideo, 0, len(candidates))
	for _, c := range candidates {
		if isNew(c) {
			fresh = append(fresh, c)
		} else {
			known = append(known, c)
		}
	}

	admitted, err := e.Admit(ctx, orgID, exempt, fresh)
	if err != nil && !errors.Is(err, ErrQuotaExhausted) {
		return nil, nil, err
	}

	charged := make(map[string]bool, len(admitted))
	for _, c := range admitted {
		charged[c.ExternalID] = true
	}

	// Known records always refresh; exhaustion only blocks new admissions
	result := append(known, admitted...)
	if len(result) == 0 && err != nil {
		return nil, nil, err
	}
	return result, charged, nil
}

// Release returns n consumed slots to the tenant. Called when an admitted
// record could not be persisted, so the counter tracks stored records only.
func (e *Enforcer) Release(ctx context.Context, orgID string, n int) error {
	if n <= 0 {
		return nil
	}
	return e.quotas.ReleaseUsage(ctx, orgID, n)
}
