package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestScheduler(t *testing.T) *Service {
	t.Helper()
	svc := NewService(arbor.NewLogger()).(*Service)
	t.Cleanup(func() { svc.Stop() })
	return svc
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestRegisterJobRejectsDuplicates(t *testing.T) {
	svc := newTestScheduler(t)

	require.NoError(t, svc.RegisterJob("account-sync", "*/10 * * * *", "Sync pending accounts", func() error { return nil }))
	err := svc.RegisterJob("account-sync", "*/5 * * * *", "dup", func() error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegisterJobRejectsInvalidSchedule(t *testing.T) {
	svc := newTestScheduler(t)

	err := svc.RegisterJob("broken", "not a cron expr", "", func() error { return nil })
	require.Error(t, err)
}

func TestTriggerJobRunsHandler(t *testing.T) {
	svc := newTestScheduler(t)

	var runs atomic.Int32
	require.NoError(t, svc.RegisterJob("video-sync", "*/5 * * * *", "Sync pending videos", func() error {
		runs.Add(1)
		return nil
	}))

	require.NoError(t, svc.TriggerJob("video-sync"))
	waitFor(t, 2*time.Second, func() bool { return runs.Load() == 1 })

	status, err := svc.GetJobStatus("video-sync")
	require.NoError(t, err)
	assert.NotNil(t, status.LastRun)
	assert.Empty(t, status.LastError)
	assert.False(t, status.IsRunning)
}

func TestTriggerJobUnknownName(t *testing.T) {
	svc := newTestScheduler(t)

	err := svc.TriggerJob("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestJobFailureRecordedInStatus(t *testing.T) {
	svc := newTestScheduler(t)

	done := make(chan struct{})
	require.NoError(t, svc.RegisterJob("cleanup", "0 */6 * * *", "Sweep zombie records", func() error {
		defer close(done)
		return errors.New("storage unavailable")
	}))

	require.NoError(t, svc.TriggerJob("cleanup"))
	<-done

	waitFor(t, 2*time.Second, func() bool {
		status, err := svc.GetJobStatus("cleanup")
		return err == nil && status.LastError != ""
	})
	status, err := svc.GetJobStatus("cleanup")
	require.NoError(t, err)
	assert.Equal(t, "storage unavailable", status.LastError)
}

func TestPanicInHandlerRecovered(t *testing.T) {
	svc := newTestScheduler(t)

	require.NoError(t, svc.RegisterJob("panicky", "*/5 * * * *", "", func() error {
		panic("boom")
	}))

	require.NoError(t, svc.TriggerJob("panicky"))
	waitFor(t, 2*time.Second, func() bool {
		status, err := svc.GetJobStatus("panicky")
		return err == nil && status.LastError != "" && !status.IsRunning
	})

	status, err := svc.GetJobStatus("panicky")
	require.NoError(t, err)
	assert.Contains(t, status.LastError, "panic")

	// Scheduler survives and can run the next job
	var ran atomic.Bool
	require.NoError(t, svc.RegisterJob("after", "*/5 * * * *", "", func() error {
		ran.Store(true)
		return nil
	}))
	require.NoError(t, svc.TriggerJob("after"))
	waitFor(t, 2*time.Second, func() bool { return ran.Load() })
}

func TestStartStopLifecycle(t *testing.T) {
	svc := newTestScheduler(t)

	assert.False(t, svc.IsRunning())
	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())
	require.Error(t, svc.Start(), "double start is rejected")
	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsRunning())
	require.NoError(t, svc.Stop(), "stop is idempotent")
}

func TestGetAllJobStatuses(t *testing.T) {
	svc := newTestScheduler(t)

	require.NoError(t, svc.RegisterJob("account-sync", "*/10 * * * *", "a", func() error { return nil }))
	require.NoError(t, svc.RegisterJob("video-sync", "*/5 * * * *", "b", func() error { return nil }))

	statuses := svc.GetAllJobStatuses()
	require.Len(t, statuses, 2)
	assert.Contains(t, statuses, "account-sync")
	assert.Contains(t, statuses, "video-sync")
	assert.Equal(t, "*/10 * * * *", statuses["account-sync"].Schedule)
}
