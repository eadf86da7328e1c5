package container

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/application/service"
	"github.com/garyjia/notion-invoice/internal/infrastructure/cache"
	"github.com/garyjia/notion-invoice/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/notion-invoice/internal/infrastructure/worker"
	httpapi "github.com/garyjia/notion-invoice/internal/interfaces/http"
	"github.com/garyjia/notion-invoice/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in order and torn down in reverse order.
type Container struct {
	config *Config
	logger *zap.Logger

	// httpClient overrides the Notion transport (tests)
	httpClient *http.Client

	// Infrastructure - Data
	database     *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	notion *NotionBundle
	cache  *cache.InvoiceCache

	// Application
	services *ServiceBundle

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
	Share port.ShareRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Invoice service.InvoiceService
	Auth    service.AuthService
	Share   service.ShareService
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

// Option customizes a Container.
type Option func(*Container)

// WithHTTPClient sets the HTTP client used for Notion calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Container) {
		c.httpClient = client
	}
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Container{
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start initializes all components and begins background processing.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. External clients (Notion, Redis)
// 3. Application services
// 4. Workers
// 5. HTTP server (not listening until Server().Start is called)
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

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database and repositories initialized")

	// Step 2: Initialize external clients
	if err := c.initExternalClients(); err != nil {
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized", zap.Bool("cache_enabled", c.cache.Enabled()))

	// Step 3: Initialize application services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 4: Initialize and start workers
	if err := c.initWorkers(); err != nil {
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized and started")

	// Step 5: Build the HTTP server
	if err := c.initServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

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

	// Step 1: Stop the HTTP server (reverse of step 5)
	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			c.logger.Error("Failed to stop HTTP server", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop http server: %w", err))
		}
	}

	// Step 2: Stop workers (reverse of step 4)
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	// Step 3: Close the cache (reverse of step 2)
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			c.logger.Error("Failed to close cache", zap.Error(err))
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}

	// Step 4: Close database (reverse of step 1)
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
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check database
	if c.database != nil {
		if err := c.database.Health(ctx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check cache. A disabled cache does not degrade the service.
	if c.cache != nil && c.cache.Enabled() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.cache.Health(pingCtx)
		cancel()
		if err != nil {
			status.Components["cache"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
		} else {
			status.Components["cache"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["cache"] = ComponentHealth{Healthy: true, Message: "disabled"}
	}

	// Check workers
	if c.workers != nil {
		status.Components["workers"] = ComponentHealth{
			Healthy: c.workers.IsRunning(),
			Message: fmt.Sprintf("worker count: %d", c.workers.GetWorkerCount()),
		}
		if !c.workers.IsRunning() {
			status.Overall = false
		}
	} else {
		status.Components["workers"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	return status
}

// healthReporter adapts Health to the HTTP layer
func (c *Container) healthReporter(ctx context.Context) (bool, map[string]string) {
	status := c.Health(ctx)
	checks := make(map[string]string, len(status.Components))
	for name, comp := range status.Components {
		switch {
		case !comp.Healthy:
			checks[name] = comp.Message
		case comp.Message == "disabled":
			checks[name] = comp.Message
		default:
			checks[name] = "ok"
		}
	}
	return status.Overall, checks
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.database = dbBundle.DB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.database, c.logger)
	if err != nil {
		c.database.Close()
		return err
	}

	c.repositories = repos
	return nil
}

// initExternalClients initializes the Notion gateways and the Redis cache.
func (c *Container) initExternalClients() error {
	bundle, err := ProvideNotion(&c.config.Notion, c.httpClient, c.logger)
	if err != nil {
		return err
	}
	c.notion = bundle

	c.cache = ProvideCache(&c.config.Cache, c.logger)
	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Notion:    c.notion,
		Repos:     c.repositories,
		TxManager: c.db,
		Cache:     c.cache,
		Auth:      &c.config.Auth,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// initWorkers initializes and starts all background workers using providers.
func (c *Container) initWorkers() error {
	workers, err := ProvideWorkers(&c.config.Worker, c.services.Share, c.logger)
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(c.ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	return nil
}

// initServer builds the HTTP server on top of the services.
func (c *Container) initServer() error {
	server, err := ProvideHTTPServer(&c.config.Server, c.services, c.healthReporter, c.logger)
	if err != nil {
		return err
	}
	c.server = server
	return nil
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

// Notion returns the Notion client and gateways.
func (c *Container) Notion() *NotionBundle {
	return c.notion
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Server returns the HTTP server.
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

// zapLoggerAdapter adapts zap.Logger to the service and HTTP Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
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
