package quota

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/models"
)

// memQuotaStorage is an in-memory QuotaStorage for enforcer tests
type memQuotaStorage struct {
	quotas map[string]*models.UsageQuota
}

func newMemQuotaStorage() *memQuotaStorage {
	return &memQuotaStorage{quotas: make(map[string]*models.UsageQuota)}
}

func (m *memQuotaStorage) Get(ctx context.Context, orgID string) (*models.UsageQuota, error) {
	if q, ok := m.quotas[orgID]; ok {
		copied := *q
		return &copied, nil
	}
	return &models.UsageQuota{OrgID: orgID, Limit: 100}, nil
}

func (m *memQuotaStorage) Save(ctx context.Context, quota *models.UsageQuota) error {
	copied := *quota
	m.quotas[quota.OrgID] = &copied
	return nil
}

func (m *memQuotaStorage) IncrementUsage(ctx context.Context, orgID string, n int) error {
	q, ok := m.quotas[orgID]
	if !ok {
		q = &models.UsageQuota{OrgID: orgID, Limit: 100}
		m.quotas[orgID] = q
	}
	q.TrackedVideos += n
	return nil
}

func (m *memQuotaStorage) ReleaseUsage(ctx context.Context, orgID string, n int) error {
	q, ok := m.quotas[orgID]
	if !ok {
		return nil
	}
	q.TrackedVideos -= n
	if q.TrackedVideos < 0 {
		q.TrackedVideos = 0
	}
	return nil
}

func candidates(n int) []*models.CanonicalVideo {
	out := make([]*models.CanonicalVideo, n)
	for i := range out {
		out[i] = &models.CanonicalVideo{ExternalID: fmt.Sprintf("v%d", i)}
	}
	return out
}

func TestAdmitTruncatesToAvailable(t *testing.T) {
	storage := newMemQuotaStorage()
	require.NoError(t, storage.Save(context.Background(), &models.UsageQuota{OrgID: "org-1", Limit: 100, TrackedVideos: 95}))

	enforcer := NewEnforcer(storage, arbor.NewLogger())
	accepted, err := enforcer.Admit(context.Background(), "org-1", false, candidates(10))
	require.NoError(t, err)

	require.Len(t, accepted, 5, "batch truncated to available slots")
	assert.Equal(t, "v0", accepted[0].ExternalID, "earliest candidates win")
	assert.Equal(t, "v4", accepted[4].ExternalID)

	quota, err := storage.Get(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, 100, quota.TrackedVideos, "counter lands exactly on the limit")
}

func TestAdmitWithinLimit(t *testing.T) {
	storage := newMemQuotaStorage()
	require.NoError(t, storage.Save(context.Background(), &models.UsageQuota{OrgID: "org-1", Limit: 100, TrackedVideos: 10}))

	enforcer := NewEnforcer(storage, arbor.NewLogger())
	accepted, err := enforcer.Admit(context.Background(), "org-1", false, candidates(10))
	require.NoError(t, err)
	assert.Len(t, accepted, 10)

	quota, _ := storage.Get(context.Background(), "org-1")
	assert.Equal(t, 20, quota.TrackedVideos)
}

func TestAdmitExhaustedQuota(t *testing.T) {
	storage := newMemQuotaStorage()
	require.NoError(t, storage.Save(context.Background(), &models.UsageQuota{OrgID: "org-1", Limit: 100, TrackedVideos: 100}))

	enforcer := NewEnforcer(storage, arbor.NewLogger())
	accepted, err := enforcer.Admit(context.Background(), "org-1", false, candidates(3))
	require.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Empty(t, accepted)
	assert.Contains(t, err.Error(), "video limit of 100 reached", "error names the limit")
	assert.Contains(t, err.Error(), "3 new videos rejected", "error carries the rejected count")

	quota, _ := storage.Get(context.Background(), "org-1")
	assert.Equal(t, 100, quota.TrackedVideos, "rejections never move the counter")
}

func TestAdmitExemptSkipsLimitNotAccounting(t *testing.T) {
	storage := newMemQuotaStorage()
	require.NoError(t, storage.Save(context.Background(), &models.UsageQuota{OrgID: "org-1", Limit: 100, TrackedVideos: 100}))

	enforcer := NewEnforcer(storage, arbor.NewLogger())
	accepted, err := enforcer.Admit(context.Background(), "org-1", true, candidates(7))
	require.NoError(t, err)
	assert.Len(t, accepted, 7, "exempt accounts skip the limit check")

	quota, _ := storage.Get(context.Background(), "org-1")
	assert.Equal(t, 107, quota.TrackedVideos, "exempt admissions still count against usage")
}

func TestAdmitEmptyBatch(t *testing.T) {
	enforcer := NewEnforcer(newMemQuotaStorage(), arbor.NewLogger())
	accepted, err := enforcer.Admit(context.Background(), "org-1", false, nil)
	require.NoError(t, err)
	assert.Empty(t, accepted)
}

func TestAdmitExistingOnlyChargesNew(t *testing.T) {
	storage := newMemQuotaStorage()
	require.NoError(t, storage.Save(context.Background(), &models.UsageQuota{OrgID: "org-1", Limit: 100, TrackedVideos: 98}))

	enforcer := NewEnforcer(storage, arbor.NewLogger())
	batch := candidates(6)
	// v0..v2 already stored, v3..v5 are new
	known := map[string]bool{"v0": true, "v1": true, "v2": true}

	accepted, charged, err := enforcer.AdmitExisting(context.Background(), "org-1", false, batch, func(c *models.CanonicalVideo) bool {
		return !known[c.ExternalID]
	})
	require.NoError(t, err)

	// 3 known refresh for free, 2 of 3 new fit the remaining slots
	assert.Len(t, accepted, 5)
	assert.Equal(t, map[string]bool{"v3": true, "v4": true}, charged, "only new admissions consume slots")
	quota, _ := storage.Get(context.Background(), "org-1")
	assert.Equal(t, 100, quota.TrackedVideos)
}

func TestAdmitExistingExhaustedStillRefreshesKnown(t *testing.T) {
	storage := newMemQuotaStorage()
	require.NoError(t, storage.Save(context.Background(), &models.UsageQuota{OrgID: "org-1", Limit: 100, TrackedVideos: 100}))

	enforcer := NewEnforcer(storage, arbor.NewLogger())
	batch := candidates(4)
	known := map[string]bool{"v0": true, "v1": true}

	accepted, charged, err := enforcer.AdmitExisting(context.Background(), "org-1", false, batch, func(c *models.CanonicalVideo) bool {
		return !known[c.ExternalID]
	})
	require.NoError(t, err)
	assert.Len(t, accepted, 2, "known records refresh even at the limit")
	assert.Empty(t, charged, "blocked admissions charge nothing")
}

func TestReleaseReturnsSlots(t *testing.T) {
	storage := newMemQuotaStorage()
	require.NoError(t, storage.Save(context.Background(), &models.UsageQuota{OrgID: "org-1", Limit: 100, TrackedVideos: 10}))

	enforcer := NewEnforcer(storage, arbor.NewLogger())
	require.NoError(t, enforcer.Release(context.Background(), "org-1", 3))

	quota, _ := storage.Get(context.Background(), "org-1")
	assert.Equal(t, 7, quota.TrackedVideos)

	// Releasing more than is held floors at zero, never goes negative
	require.NoError(t, enforcer.Release(context.Background(), "org-1", 50))
	quota, _ = storage.Get(context.Background(), "org-1")
	assert.Equal(t, 0, quota.TrackedVideos)
}
