package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/cafe-importer/internal/application/dispatcher"
	"github.com/garyjia/cafe-importer/internal/application/notifier"
	"github.com/garyjia/cafe-importer/internal/application/port"
	"github.com/garyjia/cafe-importer/internal/application/workflow"
	"github.com/garyjia/cafe-importer/internal/config"
	"github.com/garyjia/cafe-importer/internal/export"
	"github.com/garyjia/cafe-importer/internal/infrastructure/external/registry"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and closed in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	database     *DatabaseBundle
	repositories *RepositoryBundle
	registry     *registry.Client
	archive      port.FileStorage
	services     *ServiceBundle
	dispatcher   dispatcher.Dispatcher
	notifier     *notifier.Notifier
	engine       workflow.ImportEngine
	exporter     *export.Service

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a container. Call Start to initialize components.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{config: cfg, logger: logger}, nil
}

// Start initializes, in order: database and repositories, the registry
// client and archive, application services, then dispatcher and engine.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	db, err := ProvideDatabase(c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.database = db
	c.repositories = ProvideRepositories(db, c.logger)
	c.logger.Info("Database initialized")

	c.registry = ProvideRegistryClient(c.config.Registry, nil, c.logger)
	c.archive = ProvideArchive(c.config.Archive, c.logger)

	c.services = ProvideServices(&ServiceDeps{
		Fetcher: c.registry,
		Repos:   c.repositories,
		TxMgr:   db.TransactionMgr,
		Archive: c.archive,
		Logger:  c.logger,
	})
	c.logger.Info("Application services initialized")

	c.dispatcher, c.notifier = ProvideEffects(c.config.Flow, c.logger)
	c.engine = ProvideEngine(c.config.Flow, c.services, c.dispatcher, c.logger)
	c.exporter = export.NewService(c.logger)
	c.logger.Info("Import engine initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close shuts components down in reverse order
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Swap(true) {
		return fmt.Errorf("container already closed")
	}
	c.ready.Store(false)

	c.logger.Info("Closing container")

	var errs []error

	if c.engine != nil {
		c.engine.Close()
	}
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}
	if c.database != nil {
		if err := c.database.DB.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	c.logger.Info("Container closed")
	return nil
}

// Ready reports whether Start completed and Close has not been called
func (c *Container) Ready() bool {
	return c.ready.Load() && !c.closed.Load()
}

// Health pings the database and reports component availability
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.database != nil {
		if err := c.database.DB.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
	}

	if c.engine != nil {
		status.Components["engine"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["engine"] = ComponentHealth{Healthy: false, Message: "not initialized"}
	}

	if c.archive != nil {
		status.Components["archive"] = ComponentHealth{Healthy: true, Message: c.archive.GetFullPath("")}
	}

	for _, comp := range status.Components {
		if !comp.Healthy {
			status.Overall = false
			break
		}
	}
	return status
}

// Services returns the application services
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Repositories returns the repositories
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Engine returns the import flow engine
func (c *Container) Engine() workflow.ImportEngine {
	return c.engine
}

// Notifier returns the per-flow notification inbox
func (c *Container) Notifier() *notifier.Notifier {
	return c.notifier
}

// Archive returns the raw XML archive, nil when archiving is disabled
func (c *Container) Archive() port.FileStorage {
	return c.archive
}

// Exporter returns the spreadsheet exporter
func (c *Container) Exporter() *export.Service {
	return c.exporter
}

// Dispatcher returns the event dispatcher
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Config returns the container's configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the container's logger
func (c *Container) Logger() *zap.Logger {
	return c.logger
}
