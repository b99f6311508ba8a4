package interfaces

import (
	"time"
)

// JobStatus describes a registered scheduler job
type JobStatus struct {
	Name        string     `json:"name"`
	Enabled     bool       `json:"enabled"`
	Schedule    string     `json:"schedule"`
	Description string     `json:"description"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	IsRunning   bool       `json:"is_running"`
	LastError   string     `json:"last_error,omitempty"`
}

// SchedulerService manages cron-scheduled background jobs
type SchedulerService interface {
	Start() error
	Stop() error
	IsRunning() bool
	RegisterJob(name, schedule, description string, handler func() error) error
	TriggerJob(name string) error
	GetJobStatus(name string) (*JobStatus, error)
	GetAllJobStatuses() map[string]*JobStatus
}
