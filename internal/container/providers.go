package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/dispatcher"
	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/application/workflow"
	"github.com/garyjia/shared-staff/internal/config"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/infrastructure/export"
	"github.com/garyjia/shared-staff/internal/infrastructure/notification"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/repository"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/shared-staff/internal/infrastructure/storage"
	"github.com/garyjia/shared-staff/internal/infrastructure/worker"
	httpapi "github.com/garyjia/shared-staff/internal/interfaces/http"
	"github.com/garyjia/shared-staff/migrations"
	"github.com/garyjia/shared-staff/pkg/database"
	"github.com/garyjia/shared-staff/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Profile  port.ProfileRepository
	Site     port.SiteRepository
	Document port.DocumentRepository
	Proposal port.ScheduleProposalRepository
	Entry    port.TimeEntryRepository
	Expense  port.ExpenseRepository
	Report   port.WeeklyReportRepository
	Alert    port.AlertRepository
	Closure  port.ClosureRepository
	Audit    port.AuditRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Schedule service.ScheduleService
	Approval service.ApprovalService
	Weekly   service.WeeklyReportService
	Closure  service.ClosureService
	Audit    service.AuditService
	Profile  service.ProfileService
	Site     service.SiteService
	Document service.DocumentService
}

// ProvideDatabase opens the SQLite database and applies the embedded migrations.
// Returns DatabaseBundle containing sql.DB and TransactionManager.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
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
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.NewMigrator(db, logger).RunMigrations(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
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
		Profile:  repository.NewProfileRepository(sqlDB, logger),
		Site:     repository.NewSiteRepository(sqlDB, logger),
		Document: repository.NewDocumentRepository(sqlDB, logger),
		Proposal: repository.NewScheduleProposalRepository(sqlDB, logger),
		Entry:    repository.NewTimeEntryRepository(sqlDB, logger),
		Expense:  repository.NewExpenseRepository(sqlDB, logger),
		Report:   repository.NewWeeklyReportRepository(sqlDB, logger),
		Alert:    repository.NewAlertRepository(sqlDB, logger),
		Closure:  repository.NewClosureRepository(sqlDB, logger),
		Audit:    repository.NewAuditRepository(sqlDB, logger),
	}, nil
}

// ProvideNotifier creates the notifier of the configured channel
func ProvideNotifier(ctx context.Context, cfg *config.NotificationConfig, logger *zap.Logger) (port.Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notification config is required")
	}
	return notification.New(ctx, notification.Config{
		Channel:       cfg.Channel,
		Sender:        cfg.Sender,
		Region:        cfg.Region,
		LarkAppID:     cfg.LarkAppID,
		LarkAppSecret: cfg.LarkAppSecret,
	}, logger)
}

// ProvideStorage creates the file storage for generated reports and register documents
func ProvideStorage(cfg *config.StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil || cfg.ReportDir == "" {
		return nil, fmt.Errorf("storage report directory is required")
	}
	return storage.NewLocalFileStorage(cfg.ReportDir, logger), nil
}

// ProvideDispatcher creates the event dispatcher
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger)),
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Storage    port.FileStorage
	Policy     *authz.Policy
	Dispatcher dispatcher.Dispatcher
	Location   *time.Location
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Policy == nil {
		deps.Policy = authz.NewPolicy(nil)
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	r := deps.Repos
	log := utils.NewKVLogger(deps.Logger)
	clock := service.UTCClock

	return &ServiceBundle{
		Schedule: service.NewScheduleService(r.Proposal, r.Profile, r.Site, r.Audit, export.NewCalendarExporter(deps.Location),
			deps.TxManager, deps.Policy, deps.Dispatcher, clock, log),
		Approval: service.NewApprovalService(r.Entry, r.Expense, r.Proposal, r.Site, r.Audit,
			deps.TxManager, deps.Policy, deps.Dispatcher, clock, log),
		Weekly: service.NewWeeklyReportService(r.Report, r.Alert, r.Audit,
			deps.TxManager, deps.Policy, deps.Dispatcher, clock, log),
		Closure: service.NewClosureService(r.Closure, r.Report, r.Profile, service.NewMonthLoader(r.Entry, r.Expense, r.Report),
			export.NewWorkbookGenerator(deps.Logger), deps.Storage, r.Audit, deps.TxManager, deps.Policy, deps.Dispatcher, clock, log),
		Audit:    service.NewAuditService(r.Audit, log),
		Profile:  service.NewProfileService(r.Profile, r.Site, r.Audit, deps.TxManager, clock, log),
		Site:     service.NewSiteService(r.Site, r.Audit, deps.TxManager, deps.Policy, clock, log),
		Document: service.NewDocumentService(r.Document, r.Profile, deps.Storage, r.Audit, deps.TxManager, deps.Policy, clock, log),
	}, nil
}

// ProvideWorkflowEngine creates the read-side workflow engine
func ProvideWorkflowEngine(repos *RepositoryBundle, policy *authz.Policy, logger *zap.Logger) (workflow.Engine, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	return workflow.NewEngine(repos.Proposal, repos.Entry, repos.Expense, repos.Report, repos.Closure,
		workflow.WithPolicy(policy),
		workflow.WithLogger(utils.NewKVLogger(logger)),
	), nil
}

// ProvideNotificationHandler creates the handler turning workflow events into notifications
func ProvideNotificationHandler(repos *RepositoryBundle, notifier port.Notifier, logger *zap.Logger) *service.NotificationHandler {
	return service.NewNotificationHandler(repos.Profile, notifier, utils.NewKVLogger(logger))
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Repos      *RepositoryBundle
	Dispatcher dispatcher.Publisher
	WorkerCfg  *config.WorkerConfig
	Location   *time.Location
	Logger     *zap.Logger
}

// ProvideWorkers creates the worker manager and registers the enabled workers.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewWorkerManager(deps.Logger)

	if deps.WorkerCfg.ReminderEnabled {
		reminder := worker.NewReminderWorker(
			worker.ReminderWorkerConfig{
				Interval: deps.WorkerCfg.ReminderInterval,
				Location: deps.Location,
			},
			deps.Repos.Report,
			deps.Dispatcher,
			time.Now,
			deps.Logger,
		)
		manager.Register(reminder)
	}

	return manager, nil
}

// ProvideHTTPServer creates the HTTP adapter
func ProvideHTTPServer(cfg *config.Config, services *ServiceBundle, engine workflow.Engine, db *sql.DB, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(
		httpapi.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			Mode:            cfg.Server.Mode,
		},
		httpapi.Services{
			Schedule: services.Schedule,
			Approval: services.Approval,
			Weekly:   services.Weekly,
			Closure:  services.Closure,
			Audit:    services.Audit,
			Profile:  services.Profile,
			Site:     services.Site,
			Document: services.Document,
			Engine:   engine,
		},
		httpapi.NewTokenAuthority(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		db,
		utils.NewKVLogger(logger),
	)
}
