package badger

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
	"github.com/viewdeck/viewdeck/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "badger-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store, logger: arbor.NewLogger()}
}

func TestAccountPendingBatchOrdering(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	storage := NewAccountStorage(db, logger)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-1 * time.Hour)

	accounts := []*models.TrackedAccount{
		{ID: "acct-recent", OrgID: "org-1", Platform: models.PlatformTikTok, Username: "recent", SyncStatus: models.AccountSyncPending, LastSyncedAt: &recent},
		{ID: "acct-never", OrgID: "org-1", Platform: models.PlatformTikTok, Username: "never", SyncStatus: models.AccountSyncPending},
		{ID: "acct-old", OrgID: "org-1", Platform: models.PlatformTikTok, Username: "old", SyncStatus: models.AccountSyncPending, LastSyncedAt: &old},
		{ID: "acct-exhausted", OrgID: "org-1", Platform: models.PlatformTikTok, Username: "exhausted", SyncStatus: models.AccountSyncPending, SyncRetryCount: 3},
		{ID: "acct-done", OrgID: "org-1", Platform: models.PlatformTikTok, Username: "done", SyncStatus: models.AccountSyncCompleted},
	}
	for _, a := range accounts {
		require.NoError(t, storage.Save(ctx, a))
	}

	batch, err := storage.GetPendingBatch(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, batch, 3, "exhausted and completed accounts must be excluded")

	assert.Equal(t, "acct-never", batch[0].ID, "never-synced accounts come first")
	assert.Equal(t, "acct-old", batch[1].ID)
	assert.Equal(t, "acct-recent", batch[2].ID)

	// Limit truncates after ordering
	batch, err = storage.GetPendingBatch(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "acct-never", batch[0].ID)
}

func TestAccountFindByHandleNormalizes(t *testing.T) {
	db := newTestDB(t)
	storage := NewAccountStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, &models.TrackedAccount{
		ID: "acct-1", OrgID: "org-1", Platform: models.PlatformInstagram, Username: "@MixedCase",
	}))

	found, err := storage.FindByHandle(ctx, "org-1", models.PlatformInstagram, "mixedcase")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "acct-1", found.ID)
	assert.Equal(t, "mixedcase", found.Username)

	missing, err := storage.FindByHandle(ctx, "org-2", models.PlatformInstagram, "mixedcase")
	require.NoError(t, err)
	assert.Nil(t, missing, "lookups are scoped to the org")
}

func TestAccountListOrgIDs(t *testing.T) {
	db := newTestDB(t)
	storage := NewAccountStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for i, org := range []string{"org-b", "org-a", "org-b"} {
		require.NoError(t, storage.Save(ctx, &models.TrackedAccount{
			ID: "acct-" + string(rune('0'+i)), OrgID: org, Platform: models.PlatformTikTok, Username: "user",
		}))
	}

	orgIDs, err := storage.ListOrgIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"org-a", "org-b"}, orgIDs)
}

func TestVideoUpsertIdempotent(t *testing.T) {
	db := newTestDB(t)
	storage := NewVideoStorage(db, arbor.NewLogger())
	ctx := context.Background()

	first := &models.VideoRecord{
		ID:         "vid-1",
		OrgID:      "org-1",
		Platform:   models.PlatformTikTok,
		ExternalID: "7301234567",
		Views:      100,
		SyncStatus: models.VideoSyncCompleted,
		AddedAt:    time.Now().Add(-time.Hour),
	}
	require.NoError(t, storage.Upsert(ctx, first))

	// Same external id from a later sync, different generated id
	second := &models.VideoRecord{
		ID:         "vid-2",
		OrgID:      "org-1",
		Platform:   models.PlatformTikTok,
		ExternalID: "7301234567",
		Views:      250,
		SyncStatus: models.VideoSyncCompleted,
		AddedAt:    time.Now(),
	}
	require.NoError(t, storage.Upsert(ctx, second))
	assert.Equal(t, "vid-1", second.ID, "existing record id is reused")

	all, err := storage.ListByOrg(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, all, 1, "syncing the same external id twice yields one record")
	assert.Equal(t, int64(250), all[0].Views)
	assert.Equal(t, first.AddedAt.Unix(), all[0].AddedAt.Unix(), "original added time is preserved")
}

func TestVideoUpsertWithoutExternalID(t *testing.T) {
	db := newTestDB(t)
	storage := NewVideoStorage(db, arbor.NewLogger())
	ctx := context.Background()

	// Standalone submission whose platform id has not resolved yet
	video := &models.VideoRecord{
		ID:         "vid-1",
		OrgID:      "org-1",
		Platform:   models.PlatformTikTok,
		SourceURL:  "https://www.tiktok.com/@someuser/video/999",
		SyncStatus: models.VideoSyncPending,
		AddedAt:    time.Now(),
	}
	require.NoError(t, storage.Upsert(ctx, video))

	// State transitions persist before the external id resolves
	require.True(t, video.BeginProcessing())
	require.NoError(t, storage.Upsert(ctx, video))

	stored, err := storage.Get(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, models.VideoSyncProcessing, stored.SyncStatus)

	// So does the failure trace
	stored.RecordFailure("post deleted")
	require.NoError(t, storage.Upsert(ctx, stored))
	stored, err = storage.Get(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, models.VideoSyncPending, stored.SyncStatus)
	assert.Equal(t, 1, stored.SyncRetryCount)
	assert.Equal(t, "post deleted", stored.SyncError)

	// Once the id resolves, dedupe keys by platform+external id again
	stored.ExternalID = "999"
	require.NoError(t, storage.Upsert(ctx, stored))
	assert.Equal(t, "vid-1", stored.ID)

	all, err := storage.ListByOrg(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestVideoPendingBatchSkipsExhausted(t *testing.T) {
	db := newTestDB(t)
	storage := NewVideoStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, &models.VideoRecord{
		ID: "vid-ok", OrgID: "org-1", Platform: models.PlatformTikTok, ExternalID: "a",
		SyncStatus: models.VideoSyncPending, SyncRetryCount: 2, AddedAt: time.Now(),
	}))
	require.NoError(t, storage.Upsert(ctx, &models.VideoRecord{
		ID: "vid-spent", OrgID: "org-1", Platform: models.PlatformTikTok, ExternalID: "b",
		SyncStatus: models.VideoSyncPending, SyncRetryCount: models.VideoMaxRetries, AddedAt: time.Now(),
	}))

	batch, err := storage.GetPendingBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "vid-ok", batch[0].ID)
}

func TestQuotaIncrementConcurrent(t *testing.T) {
	db := newTestDB(t)
	storage := NewQuotaStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, &models.UsageQuota{OrgID: "org-1", Limit: 500}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = storage.IncrementUsage(ctx, "org-1", 3)
		}()
	}
	wg.Wait()

	quota, err := storage.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 30, quota.TrackedVideos, "no increments may be lost")
	assert.Equal(t, 470, quota.Available())

	// Concurrent releases are serialized the same way
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = storage.ReleaseUsage(ctx, "org-1", 1)
		}()
	}
	wg.Wait()

	quota, err = storage.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 20, quota.TrackedVideos, "no releases may be lost")
}

func TestQuotaReleaseFloorsAtZero(t *testing.T) {
	db := newTestDB(t)
	storage := NewQuotaStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, &models.UsageQuota{OrgID: "org-1", Limit: 100, TrackedVideos: 5}))
	require.NoError(t, storage.ReleaseUsage(ctx, "org-1", 2))

	quota, err := storage.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 3, quota.TrackedVideos)

	// Over-release never drives the counter negative
	require.NoError(t, storage.ReleaseUsage(ctx, "org-1", 10))
	quota, err = storage.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 0, quota.TrackedVideos)
}

func TestQuotaDefaultWhenAbsent(t *testing.T) {
	db := newTestDB(t)
	storage := NewQuotaStorage(db, arbor.NewLogger())

	quota, err := storage.Get(context.Background(), "org-new")
	require.NoError(t, err)
	assert.Equal(t, DefaultVideoLimit, quota.Limit)
	assert.Equal(t, 0, quota.TrackedVideos)
}

func TestSessionLatestCompleted(t *testing.T) {
	db := newTestDB(t)
	storage := NewSessionStorage(db, arbor.NewLogger())
	ctx := context.Background()

	baseline, err := storage.GetLatestCompleted(ctx, "org-1")
	require.NoError(t, err)
	assert.Nil(t, baseline, "no baseline before the first completed run")

	require.NoError(t, storage.Save(ctx, &models.RefreshSession{
		ID: "sess-1", OrgID: "org-1", Status: models.SessionCompleted,
		Totals: models.SessionTotals{Views: 100}, CreatedAt: time.Now().Add(-2 * time.Hour),
	}))
	require.NoError(t, storage.Save(ctx, &models.RefreshSession{
		ID: "sess-2", OrgID: "org-1", Status: models.SessionCompleted,
		Totals: models.SessionTotals{Views: 180}, CreatedAt: time.Now().Add(-1 * time.Hour),
	}))
	require.NoError(t, storage.Save(ctx, &models.RefreshSession{
		ID: "sess-3", OrgID: "org-1", Status: models.SessionRunning, CreatedAt: time.Now(),
	}))

	baseline, err = storage.GetLatestCompleted(ctx, "org-1")
	require.NoError(t, err)
	require.NotNil(t, baseline)
	assert.Equal(t, "sess-2", baseline.ID, "running sessions are not baselines")
	assert.Equal(t, int64(180), baseline.Totals.Views)
}

func TestPrefsGetReturnsNilWhenAbsent(t *testing.T) {
	db := newTestDB(t)
	storage := NewPrefsStorage(db, arbor.NewLogger())
	ctx := context.Background()

	prefs, err := storage.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, prefs)

	require.NoError(t, storage.Save(ctx, &models.NotificationPrefs{
		UserID: "user-1", ErrorAlerts: true, QuietHoursStart: "22:00", QuietHoursEnd: "07:00",
	}))

	prefs, err = storage.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, prefs)
	assert.Equal(t, "22:00", prefs.QuietHoursStart)
}

func TestSnapshotCascadeDelete(t *testing.T) {
	db := newTestDB(t)
	storage := NewSnapshotStorage(db, arbor.NewLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, storage.Append(ctx, &models.StatSnapshot{
			VideoID: "vid-1", Views: int64(i * 100), TakenAt: time.Now().Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, storage.Append(ctx, &models.StatSnapshot{
		VideoID: "vid-2", Views: 50, TakenAt: time.Now(),
	}))

	series, err := storage.ListByVideo(ctx, "vid-1")
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, int64(0), series[0].Views, "series is ordered by capture time")

	deleted, err := storage.DeleteByVideo(ctx, "vid-1")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	series, err = storage.ListByVideo(ctx, "vid-1")
	require.NoError(t, err)
	assert.Empty(t, series)

	other, err := storage.ListByVideo(ctx, "vid-2")
	require.NoError(t, err)
	assert.Len(t, other, 1, "other videos' series are untouched")
}
