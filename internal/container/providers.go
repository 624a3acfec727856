package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sefapa/sgpd/internal/application/accountability"
	"github.com/sefapa/sgpd/internal/application/alert"
	"github.com/sefapa/sgpd/internal/application/dispatcher"
	"github.com/sefapa/sgpd/internal/application/port"
	"github.com/sefapa/sgpd/internal/application/service"
	"github.com/sefapa/sgpd/internal/application/workflow"
	"github.com/sefapa/sgpd/internal/domain/entity"
	"github.com/sefapa/sgpd/internal/domain/event"
	"github.com/sefapa/sgpd/internal/infrastructure/document"
	infraLark "github.com/sefapa/sgpd/internal/infrastructure/external/lark"
	"github.com/sefapa/sgpd/internal/infrastructure/external/openai"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/repository"
	"github.com/sefapa/sgpd/internal/infrastructure/persistence/sqlite"
	"github.com/sefapa/sgpd/internal/infrastructure/storage"
	"github.com/sefapa/sgpd/internal/infrastructure/worker"
	"github.com/sefapa/sgpd/migrations"
	"github.com/sefapa/sgpd/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ExternalBundle holds the optional outbound integrations. Nil fields are disabled.
type ExternalBundle struct {
	Messenger port.Messenger
	Assistant port.ConferenceAssistant
	Extractor port.ReportTextExtractor
}

// ProvideDatabase opens the SQLite database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Requests:       repository.NewTravelRequestRepository(sqlDB, logger),
		Profiles:       repository.NewProfileRepository(sqlDB, logger),
		WorkflowLog:    repository.NewWorkflowEntryRepository(sqlDB, logger),
		Accountability: repository.NewAccountabilityRepository(sqlDB, logger),
		Notifications:  repository.NewNotificationRepository(sqlDB, logger),
		AlertDispatch:  repository.NewAlertDispatchRepository(sqlDB, logger),
		Settings:       repository.NewSettingRepository(sqlDB, logger),
	}, nil
}

// ProvideExternal creates the Lark messenger and the conference assistant when enabled.
func ProvideExternal(cfg *Config, profiles port.ProfileRepository, logger *zap.Logger) (*ExternalBundle, error) {
	bundle := &ExternalBundle{
		Extractor: document.NewPDFExtractor(cfg.OpenAI.MaxPages, logger),
	}

	if cfg.Lark.Enabled {
		sdkClient := infraLark.NewSDKClient(infraLark.Config{
			AppID:         cfg.Lark.AppID,
			AppSecret:     cfg.Lark.AppSecret,
			ReceiveIDType: cfg.Lark.ReceiveIDType,
		}, logger)
		bundle.Messenger = infraLark.NewMessenger(sdkClient, profiles, logger)
	} else {
		logger.Info("Lark messenger disabled, alerts stay in the in-app inbox")
	}

	if cfg.OpenAI.Enabled {
		prompts := openai.DefaultPrompts()
		if cfg.OpenAI.PromptsPath != "" {
			loaded, err := openai.LoadPrompts(cfg.OpenAI.PromptsPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load prompts: %w", err)
			}
			prompts = loaded
		}
		bundle.Assistant = openai.NewConferenceAssistant(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		}, prompts, logger)
	} else {
		logger.Info("Conference assistant disabled")
	}

	return bundle, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(newLogAdapter(logger)),
	), nil
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Workflow   *WorkflowConfig
	Deadline   *DeadlineConfig
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine over the workflow log service.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, service.WorkflowLogService, error) {
	if deps == nil {
		return nil, nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, nil, fmt.Errorf("transaction manager is required")
	}

	logAdapter := newLogAdapter(deps.Logger)
	workflowLog := service.NewWorkflowLogService(deps.Repos.WorkflowLog, logAdapter)

	opts := []workflow.EngineOption{
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithPolicy(deps.Deadline.Policy()),
		workflow.WithLogger(logAdapter),
	}
	if deps.Workflow.ChainMode == "department" {
		opts = append(opts, workflow.WithResolver(workflow.NewDepartmentResolver(deps.Repos.Profiles)))
	}

	engine := workflow.NewEngine(
		deps.Repos.Requests,
		deps.Repos.Profiles,
		deps.Repos.Accountability,
		workflowLog,
		deps.TxManager,
		opts...,
	)

	return engine, workflowLog, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos       *RepositoryBundle
	Engine      workflow.Engine
	WorkflowLog service.WorkflowLogService
	External    *ExternalBundle
	Deadline    *DeadlineConfig
	Storage     *StorageConfig
	Logger      *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := newLogAdapter(deps.Logger)
	policy := deps.Deadline.Policy()
	store := storage.NewLocalDocumentStore(deps.Storage.DocumentsDir, deps.Logger)

	return &ServiceBundle{
		Requests:    service.NewTravelRequestService(deps.Repos.Requests, deps.Repos.Profiles, policy, time.Now, serviceLogger),
		WorkflowLog: deps.WorkflowLog,
		Portaria:    service.NewPortariaService(deps.Repos.Requests, deps.Repos.Profiles, deps.Repos.Settings, time.Now, serviceLogger),
		Notifications: service.NewNotificationService(
			deps.Repos.Notifications,
			deps.External.Messenger,
			serviceLogger,
		),
		Reports: service.NewReportService(
			deps.Repos.Requests,
			deps.Repos.Profiles,
			document.NewXLSXExporter(),
			policy,
			time.Now,
			serviceLogger,
		),
		Conference: service.NewConferenceService(
			deps.Repos.Requests,
			deps.Repos.Profiles,
			deps.External.Extractor,
			deps.External.Assistant,
			serviceLogger,
		),
		Profiles:       service.NewProfileService(deps.Repos.Profiles, time.Now, serviceLogger),
		Accountability: accountability.NewService(deps.Engine, deps.Repos.Requests, store, serviceLogger),
	}, nil
}

// AlertDeps holds dependencies required for the daily job.
type AlertDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Engine     workflow.Engine
	Dispatcher dispatcher.Dispatcher
	Deadline   *DeadlineConfig
	Scheduler  *SchedulerConfig
	Logger     *zap.Logger
}

// ProvideDailyJob wires the lifecycle sweeper and the near-due alert dispatcher.
func ProvideDailyJob(deps *AlertDeps) (*alert.DailyJob, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("alert dependencies are required")
	}

	logAdapter := newLogAdapter(deps.Logger)
	policy := deps.Deadline.Policy()

	alerts := alert.NewDispatcher(
		deps.Repos.Requests,
		deps.Repos.Profiles,
		deps.Repos.Notifications,
		deps.Repos.AlertDispatch,
		deps.TxManager,
		alert.WithEvents(deps.Dispatcher),
		alert.WithPolicy(policy),
		alert.WithLegalReference(deps.Deadline.LegalReference),
		alert.WithLogger(logAdapter),
	)
	sweeper := alert.NewSweeper(deps.Repos.Requests, deps.Engine, policy, time.Now, logAdapter)

	return alert.NewDailyJob(sweeper, alerts, deps.Scheduler.Timeout, logAdapter), nil
}

// RegisterSubscribers hooks the application services onto domain events.
func RegisterSubscribers(d dispatcher.Dispatcher, services *ServiceBundle, logger *zap.Logger) {
	d.SubscribeNamed(event.TypeDeadlineAlert, "notification_delivery", services.Notifications.DeliverAlert)

	audit := func(ctx context.Context, evt *event.Event) error {
		logger.Info("Request status changed",
			zap.String("request_id", evt.RequestID),
			zap.String("from", evt.GetPayloadString("from_status")),
			zap.String("to", evt.GetPayloadString("to_status")),
			zap.String("actor_id", evt.GetPayloadString("actor_id")))
		return nil
	}
	d.SubscribeNamed(event.TypeStatusChanged, "status_audit_log", audit)
}

// ProvideWorkers creates the worker manager with the daily job worker registered but not started.
func ProvideWorkers(job *alert.DailyJob, cfg *SchedulerConfig, logger *zap.Logger) (*worker.WorkerManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewWorkerManager(logger)
	if !cfg.Enabled {
		logger.Info("In-process scheduler disabled, run cmd/alert-job externally")
		return manager, nil
	}

	manager.Register(worker.NewDailyJobWorker(worker.DailyJobWorkerConfig{
		Interval:   cfg.Interval,
		RunOnStart: cfg.RunOnStart,
	}, job, logger))

	return manager, nil
}

// EnsureBootstrapAdmin creates the configured ADMIN profile when it does not exist yet.
func EnsureBootstrapAdmin(ctx context.Context, profiles port.ProfileRepository, id string, logger *zap.Logger) error {
	if id == "" {
		return nil
	}
	existing, err := profiles.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load bootstrap admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	admin := &entity.Profile{
		ID:   id,
		Name: "Administrador",
		Role: entity.RoleAdmin,
	}
	if err := profiles.Upsert(ctx, admin); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	logger.Info("Bootstrap admin created", zap.String("profile_id", id))
	return nil
}
