// Package app wires configuration, storage, services and handlers together.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/viewdeck/viewdeck/internal/common"
	"github.com/viewdeck/viewdeck/internal/handlers"
	"github.com/viewdeck/viewdeck/internal/interfaces"
	"github.com/viewdeck/viewdeck/internal/media"
	"github.com/viewdeck/viewdeck/internal/platforms"
	"github.com/viewdeck/viewdeck/internal/quota"
	"github.com/viewdeck/viewdeck/internal/scraper"
	"github.com/viewdeck/viewdeck/internal/services/cleanup"
	"github.com/viewdeck/viewdeck/internal/services/mailer"
	"github.com/viewdeck/viewdeck/internal/services/notify"
	"github.com/viewdeck/viewdeck/internal/services/scheduler"
	"github.com/viewdeck/viewdeck/internal/services/sync"
	badgerstore "github.com/viewdeck/viewdeck/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Pipeline services
	Registry       *platforms.Registry
	ActorClient    interfaces.ActorClient
	MediaCache     interfaces.MediaCache
	QuotaEnforcer  *quota.Enforcer
	Mailer         interfaces.Mailer
	Notifier       interfaces.Notifier
	SyncService    *sync.Service
	CleanupService *cleanup.Service

	// Scheduled jobs
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	SyncHandler      *handlers.SyncHandler
	SchedulerHandler *handlers.SchedulerHandler
	CleanupHandler   *handlers.CleanupHandler
	StatusHandler    *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.registerJobs(); err != nil {
		return nil, fmt.Errorf("failed to register scheduled jobs: %w", err)
	}

	logger.Info().
		Bool("sync_enabled", cfg.Sync.Enabled).
		Bool("cleanup_enabled", cfg.Cleanup.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices builds the sync pipeline bottom-up
func (a *App) initServices() error {
	a.Registry = platforms.NewRegistry(a.Config, a.Logger)
	a.ActorClient = scraper.NewClient(&a.Config.Scraper, a.Logger)

	if a.Config.Media.Bucket != "" && a.Config.Media.PublicPrefix != "" {
		mediaCache, err := media.NewCache(&a.Config.Media, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create media cache: %w", err)
		}
		a.MediaCache = mediaCache
	} else {
		a.Logger.Warn().Msg("Media bucket not configured, thumbnail re-hosting disabled")
		a.MediaCache = media.NewDisabledCache(a.Logger)
	}

	a.QuotaEnforcer = quota.NewEnforcer(a.StorageManager.Quotas(), a.Logger)
	a.Mailer = mailer.NewService(&a.Config.Mail, a.Logger)
	a.Notifier = notify.NewService(
		a.StorageManager.Audit(),
		a.StorageManager.Prefs(),
		a.Mailer,
		&a.Config.Notify,
		a.Logger,
	)

	a.SyncService = sync.NewService(
		a.StorageManager,
		a.Registry,
		a.ActorClient,
		a.MediaCache,
		a.QuotaEnforcer,
		a.Notifier,
		&a.Config.Sync,
		a.Logger,
	)
	a.CleanupService = cleanup.NewService(a.StorageManager, &a.Config.Cleanup, a.Logger)
	a.SchedulerService = scheduler.NewService(a.Logger)

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.SyncHandler = handlers.NewSyncHandler(a.SyncService, a.Config.Server.TriggerToken, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, a.Logger)
	a.CleanupHandler = handlers.NewCleanupHandler(a.CleanupService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.SchedulerService, a.Config, a.Logger)
}

// registerJobs wires the recurring pipeline runs onto the scheduler
func (a *App) registerJobs() error {
	if a.Config.Sync.Enabled {
		err := a.SchedulerService.RegisterJob(
			"account-sync",
			a.Config.Sync.AccountSchedule,
			"Process one batch of pending account syncs",
			func() error {
				_, err := a.SyncService.SyncAccounts(context.Background())
				return err
			},
		)
		if err != nil {
			return err
		}

		err = a.SchedulerService.RegisterJob(
			"video-sync",
			a.Config.Sync.VideoSchedule,
			"Process one batch of pending video refreshes",
			func() error {
				_, err := a.SyncService.SyncVideos(context.Background())
				return err
			},
		)
		if err != nil {
			return err
		}
	}

	if a.Config.Cleanup.Enabled {
		err := a.SchedulerService.RegisterJob(
			"cleanup",
			a.Config.Cleanup.Schedule,
			"Sweep zombie accounts and videos past the grace period",
			func() error {
				_, err := a.CleanupService.SweepAll(context.Background())
				return err
			},
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// Start launches background processing
func (a *App) Start() error {
	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	return nil
}

// Close shuts components down in reverse dependency order
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
