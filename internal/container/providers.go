// Package container wires the import pipeline together and owns its lifecycle.
package container

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/garyjia/cafe-importer/internal/application/dispatcher"
	"github.com/garyjia/cafe-importer/internal/application/notifier"
	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/application/service"
	"github.com/garyjia/cafe-importer/internal/application/workflow"
	"github.com/garyjia/cafe-importer/internal/config"
	"github.com/garyjia/cafe-importer/internal/infrastructure/external/registry"
	"github.com/garyjia/cafe-importer/internal/infrastructure/persistence/repository"
	"github.com/garyjia/cafe-importer/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/cafe-importer/internal/infrastructure/storage"
	"github.com/garyjia/cafe-importer/migrations"
	"github.com/garyjia/cafe-importer/pkg/database"
	"github.com/garyjia/cafe-importer/pkg/utils"
)

// DatabaseBundle holds the connection and the transaction manager over it
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories
type RepositoryBundle struct {
	ImportRecords port.ImportRecordRepository
	Stores        port.StoreRepository
	Sessions      *repository.ShoppingSessionRepository
}

// ServiceBundle groups all application services
type ServiceBundle struct {
	Invoice    service.InvoiceService
	Guard      service.DuplicateGuard
	Matcher    service.StoreMatcher
	Aggregator service.ShoppingAggregator
	Import     service.ImportService
}

// ProvideDatabase opens the database and applies the embedded migrations
func ProvideDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(migrations.Files); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates the SQLite repositories
func ProvideRepositories(db *DatabaseBundle, logger *zap.Logger) *RepositoryBundle {
	return &RepositoryBundle{
		ImportRecords: repository.NewImportRecordRepository(db.DB.DB, logger),
		Stores:        repository.NewStoreRepository(db.DB.DB, logger),
		Sessions:      repository.NewShoppingSessionRepository(db.DB.DB, logger),
	}
}

// ProvideRegistryClient creates the registry fetcher. httpClient may be nil.
func ProvideRegistryClient(cfg config.RegistryConfig, httpClient *http.Client, logger *zap.Logger) *registry.Client {
	return registry.NewClient(registry.Config{
		URLTemplate: cfg.URLTemplate,
		QRBaseURL:   cfg.QRBaseURL,
		UserAgent:   cfg.UserAgent,
		Timeout:     cfg.Timeout,
		MaxPageSize: cfg.MaxPageSize,
	}, httpClient, logger)
}

// ProvideArchive returns the raw XML archive, or nil when archiving is disabled
func ProvideArchive(cfg config.ArchiveConfig, logger *zap.Logger) port.FileStorage {
	if !cfg.Enabled {
		return nil
	}
	return storage.NewLocalFileStorage(cfg.Dir, logger)
}

// ServiceDeps holds what ProvideServices needs
type ServiceDeps struct {
	Fetcher port.RegistryFetcher
	Repos   *RepositoryBundle
	TxMgr   port.TransactionManager
	Archive port.FileStorage
	Logger  *zap.Logger
}

// ProvideServices creates the application services
func ProvideServices(deps *ServiceDeps) *ServiceBundle {
	log := utils.NewKVLogger(deps.Logger)

	guard := service.NewDuplicateGuard(deps.Repos.ImportRecords, log)
	aggregator := service.NewShoppingAggregator(deps.Repos.Sessions, log)

	return &ServiceBundle{
		Invoice:    service.NewInvoiceService(deps.Fetcher, nil, log),
		Guard:      guard,
		Matcher:    service.NewStoreMatcher(deps.Repos.Stores, log),
		Aggregator: aggregator,
		Import:     service.NewImportService(aggregator, guard, deps.TxMgr, deps.Archive, log),
	}
}

// ProvideEffects creates the dispatcher and registers the notifier on it
func ProvideEffects(cfg config.FlowConfig, logger *zap.Logger) (dispatcher.Dispatcher, *notifier.Notifier) {
	log := utils.NewKVLogger(logger)

	d := dispatcher.NewDispatcher(dispatcher.WithLogger(log))
	n := notifier.New(cfg.IdleTTL, log)
	n.Register(d)
	return d, n
}

// ProvideEngine creates the import flow engine
func ProvideEngine(cfg config.FlowConfig, services *ServiceBundle, d dispatcher.Dispatcher, logger *zap.Logger) workflow.ImportEngine {
	return workflow.NewImportEngine(
		services.Invoice,
		services.Guard,
		services.Matcher,
		services.Import,
		utils.NewKVLogger(logger),
		workflow.WithDispatcher(d),
		workflow.WithIdleTTL(cfg.IdleTTL),
		workflow.WithCompletedResetDelay(cfg.CompletedResetDelay),
		workflow.WithStoreMatchTimeout(cfg.StoreMatchTimeout),
	)
}
