package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sefapa/sgpd/internal/application/accountability"
	"github.com/sefapa/sgpd/internal/application/alert"
	"github.com/sefapa/sgpd/internal/application/dispatcher"
	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/application/service"
	"github.com/sefapa/sgpd/internal/application/workflow"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/sqlite"
	"github.com/sefapa/sgpd/internal/infrastructure/worker"
	httpapi "github.com/sefapa/sgpd/internal/interfaces/http"
	"github.com/sefapa/sgpd/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	external *ExternalBundle

	// Application
	dispatcher dispatcher.Dispatcher
	engine     workflow.Engine
	services   *ServiceBundle
	dailyJob   *alert.DailyJob

	// Workers
	workers *worker.WorkerManager

	// Interfaces
	server *httpapi.Server

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requests       port.TravelRequestRepository
	Profiles       port.ProfileRepository
	WorkflowLog    port.WorkflowEntryRepository
	Accountability port.AccountabilityRepository
	Notifications  port.NotificationRepository
	AlertDispatch  port.AlertDispatchRepository
	Settings       port.SettingRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Requests       service.TravelRequestService
	WorkflowLog    service.WorkflowLogService
	Portaria       service.PortariaService
	Notifications  service.NotificationService
	Reports        service.ReportService
	Conference     service.ConferenceService
	Profiles       service.ProfileService
	Accountability *accountability.Service
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and begins background processing.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. External clients (Lark, OpenAI, PDF)
// 3. Event dispatcher and workflow engine
// 4. Application services and event subscribers
// 5. Daily job and workers
// 6. HTTP server (built, not listening; see Server)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := EnsureBootstrapAdmin(c.ctx, c.repositories.Profiles, c.config.Workflow.BootstrapAdmin, c.logger); err != nil {
		return err
	}

	external, err := ProvideExternal(c.config, c.repositories.Profiles, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.external = external
	c.logger.Info("External clients initialized")

	if err := c.initDispatcherAndWorkflow(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher and workflow: %w", err)
	}
	c.logger.Info("Dispatcher and workflow engine initialized")

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started")

	c.initServer()

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Drains in-flight async handlers before the database goes away
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.database != nil {
		if err := c.database.Ping(); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.workers != nil {
		healthy := c.workers.IsRunning() || !c.config.Scheduler.Enabled
		status.Components["workers"] = ComponentHealth{
			Healthy: healthy,
			Message: fmt.Sprintf("worker count: %d", c.workers.GetWorkerCount()),
		}
		if !healthy {
			status.Overall = false
		}
		for _, ws := range c.workers.Statuses() {
			if ws.LastError != "" {
				status.Components["worker."+ws.Name] = ComponentHealth{Healthy: true, Message: "last run failed: " + ws.LastError}
			}
		}
	} else {
		status.Components["workers"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.dispatcher != nil {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["dispatcher"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.external != nil {
		status.Components["lark"] = ComponentHealth{Healthy: true, Message: enabledMessage(c.external.Messenger != nil)}
		status.Components["openai"] = ComponentHealth{Healthy: true, Message: enabledMessage(c.external.Assistant != nil)}
	}

	return status
}

func enabledMessage(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.database = dbBundle.DB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.database.DB, c.logger)
	if err != nil {
		c.database.Close()
		return err
	}

	c.repositories = repos
	return nil
}

func (c *Container) initDispatcherAndWorkflow() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, workflowLog, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
		Workflow:   &c.config.Workflow,
		Deadline:   &c.config.Deadline,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine
	c.services = &ServiceBundle{WorkflowLog: workflowLog}

	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:       c.repositories,
		Engine:      c.engine,
		WorkflowLog: c.services.WorkflowLog,
		External:    c.external,
		Deadline:    &c.config.Deadline,
		Storage:     &c.config.Storage,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services

	RegisterSubscribers(c.dispatcher, c.services, c.logger)
	return nil
}

func (c *Container) initWorkers() error {
	job, err := ProvideDailyJob(&AlertDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Engine:     c.engine,
		Dispatcher: c.dispatcher,
		Deadline:   &c.config.Deadline,
		Scheduler:  &c.config.Scheduler,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.dailyJob = job

	workers, err := ProvideWorkers(job, &c.config.Scheduler, c.logger)
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	return nil
}

func (c *Container) initServer() {
	c.server = httpapi.NewServer(httpapi.ServerConfig{
		Host:           c.config.Server.Host,
		Port:           c.config.Server.Port,
		ReadTimeout:    c.config.Server.ReadTimeout,
		WriteTimeout:   c.config.Server.WriteTimeout,
		MaxUploadBytes: c.config.Server.MaxUploadBytes,
	}, httpapi.Services{
		Requests:       c.services.Requests,
		Engine:         c.engine,
		WorkflowLog:    c.services.WorkflowLog,
		Portaria:       c.services.Portaria,
		Notifications:  c.services.Notifications,
		Reports:        c.services.Reports,
		Conference:     c.services.Conference,
		Profiles:       c.services.Profiles,
		Accountability: c.services.Accountability,
		DailyJob:       c.dailyJob,
	}, newLogAdapter(c.logger))
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.Engine {
	return c.engine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// DailyJob returns the sweep-and-alert job.
func (c *Container) DailyJob() *alert.DailyJob {
	return c.dailyJob
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Server returns the HTTP server; the caller decides when to listen.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// logAdapter adapts zap.Logger to the key-value Logger interfaces of the application layer.
type logAdapter struct {
	logger *zap.Logger
}

func newLogAdapter(logger *zap.Logger) *logAdapter {
	return &logAdapter{logger: logger}
}

func (a *logAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *logAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
