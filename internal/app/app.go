// -----------------------------------------------------------------------
// App - application composition root
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/prospect/internal/common"
	"github.com/ternarybob/prospect/internal/handlers"
	"github.com/ternarybob/prospect/internal/interfaces"
	"github.com/ternarybob/prospect/internal/services/ai"
	"github.com/ternarybob/prospect/internal/services/batch"
	"github.com/ternarybob/prospect/internal/services/crm"
	"github.com/ternarybob/prospect/internal/services/events"
	"github.com/ternarybob/prospect/internal/services/provider"
	"github.com/ternarybob/prospect/internal/services/scheduler"
	badgerstore "github.com/ternarybob/prospect/internal/storage/badger"
	"github.com/ternarybob/prospect/internal/storage/memory"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	JobStore       interfaces.JobStore
	EventService   interfaces.EventService
	Provider       interfaces.BatchProvider

	BatchService     *batch.Service
	CRMService       *crm.Service
	AIService        *ai.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	AIHandler      *handlers.AIHandler
	JobHandler     *handlers.JobHandler
	ContactHandler *handlers.ContactHandler
	DealHandler    *handlers.DealHandler
	WSHandler      *handlers.WebSocketHandler
	APIHandler     *handlers.APIHandler
}

// New creates and wires the full application
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.initStorage(); err != nil {
		return nil, err
	}
	if err := a.initServices(); err != nil {
		return nil, err
	}
	a.initHandlers()

	logger.Info().Msg("Application initialized")
	return a, nil
}

// initStorage opens badger-backed entity storage, loads seed data, and
// creates the in-memory job store
func (a *App) initStorage() error {
	manager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.StorageManager = manager

	if err := manager.LoadSeedData(context.Background(), a.Config.Seed.Dir); err != nil {
		a.Logger.Warn().Err(err).Msg("Seed data load failed, continuing without seed data")
	}

	// Jobs are intentionally in-memory: the monitor goroutines that drive a
	// job to a terminal state cannot survive a restart anyway
	a.JobStore = memory.NewJobStore()
	return nil
}

// initServices wires the event bus, provider, and domain services
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)

	batchProvider, err := provider.NewBatchProvider(a.Config, a.StorageManager.KeyValueStorage(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize batch provider: %w", err)
	}
	a.Provider = batchProvider
	a.Logger.Info().Str("provider", batchProvider.Name()).Msg("Batch provider ready")

	router := batch.NewRouter(a.Logger)
	a.BatchService = batch.NewService(a.Config, a.JobStore, batchProvider, router, a.EventService, a.Logger)

	a.CRMService = crm.NewService(a.StorageManager, a.Logger)
	a.CRMService.RegisterHandlers(router)

	a.AIService = ai.NewService(a.BatchService, a.StorageManager, a.Logger)
	a.AIService.RegisterBuilders(a.BatchService)

	a.SchedulerService = scheduler.NewService(&a.Config.Scheduler, a.BatchService, a.StorageManager.DealStorage(), a.Logger)
	if err := a.SchedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	return nil
}

// initHandlers creates the HTTP handlers
func (a *App) initHandlers() {
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
	a.AIHandler = handlers.NewAIHandler(a.AIService, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.BatchService, a.Logger)
	a.ContactHandler = handlers.NewContactHandler(a.StorageManager, a.Logger)
	a.DealHandler = handlers.NewDealHandler(a.StorageManager, a.Logger)
	a.APIHandler = handlers.NewAPIHandler(a.BatchService, a.BatchService.Monitor(), a.SchedulerService, a.WSHandler, a.Logger)
}

// Close shuts down services in reverse dependency order
func (a *App) Close() error {
	a.Logger.Info().Msg("Shutting down application")

	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}
	if a.BatchService != nil {
		a.BatchService.Stop()
	}
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Event service close failed")
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
