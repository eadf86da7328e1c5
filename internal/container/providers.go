package container

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/notion-invoice/internal/application/port"
	"github.com/garyjia/notion-invoice/internal/application/service"
	"github.com/garyjia/notion-invoice/internal/infrastructure/cache"
	"github.com/garyjia/notion-invoice/internal/infrastructure/export"
	"github.com/garyjia/notion-invoice/internal/infrastructure/external/notion"
	"github.com/garyjia/notion-invoice/internal/infrastructure/persistence/repository"
	"github.com/garyjia/notion-invoice/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/notion-invoice/internal/infrastructure/retry"
	"github.com/garyjia/notion-invoice/internal/infrastructure/worker"
	httpapi "github.com/garyjia/notion-invoice/internal/interfaces/http"
	"github.com/garyjia/notion-invoice/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// NotionBundle holds the Notion client and the gateways built on it.
type NotionBundle struct {
	Client   *notion.Client
	Invoices port.InvoiceGateway
	Users    port.UserGateway
}

// ProvideDatabase opens the share-link database and applies pending
// migrations. An empty MigrationsDir applies the embedded set.
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
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Share: repository.NewShareRepository(db.DB, logger),
	}, nil
}

// ProvideNotion creates the Notion client and the invoice and user gateways.
// httpClient may be nil.
func ProvideNotion(cfg *NotionConfig, httpClient *http.Client, logger *zap.Logger) (*NotionBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notion config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	client := notion.NewClient(notion.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Version:           cfg.Version,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, httpClient, logger)

	policy := retry.Notion()
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	classifier := notion.NewClassifier()

	return &NotionBundle{
		Client:   client,
		Invoices: notion.NewInvoiceGateway(client, cfg.InvoicesDatabase, cfg.ItemsDatabase, policy, classifier, logger),
		Users:    notion.NewUserGateway(client, cfg.UsersDatabase, policy, classifier, logger),
	}, nil
}

// ProvideCache connects to Redis when an address is configured. A failed
// connection is logged and the cache is disabled.
func ProvideCache(cfg *CacheConfig, logger *zap.Logger) *cache.InvoiceCache {
	var client *redis.Client
	if cfg != nil && cfg.Addr != "" {
		c, err := cache.Connect(cache.Config{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			logger.Warn("Redis unavailable, invoice cache disabled", zap.Error(err))
		} else {
			logger.Info("Redis connected", zap.String("addr", cfg.Addr))
			client = c
		}
	}

	ttl := cache.DefaultTTL
	if cfg != nil && cfg.TTL > 0 {
		ttl = cfg.TTL
	}
	return cache.NewInvoiceCache(client, ttl, logger)
}

// ServiceDeps groups the dependencies of the application services.
type ServiceDeps struct {
	Notion    *NotionBundle
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Cache     port.InvoiceCache
	Auth      *AuthConfig
	Logger    *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Notion == nil || deps.Repos == nil || deps.TxManager == nil || deps.Auth == nil {
		return nil, fmt.Errorf("notion, repositories, transaction manager and auth config are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}

	invoices := service.NewInvoiceService(
		deps.Notion.Invoices,
		deps.Cache,
		export.NewXLSXExporter(deps.Logger),
		deps.Repos.Share,
		logger,
	)

	return &ServiceBundle{
		Invoice: invoices,
		Auth: service.NewAuthService(deps.Notion.Users, service.AuthConfig{
			Secret:   deps.Auth.Secret,
			Issuer:   deps.Auth.Issuer,
			TokenTTL: deps.Auth.TokenTTL,
		}, logger),
		Share: service.NewShareService(deps.Repos.Share, invoices, deps.TxManager, logger),
	}, nil
}

// ProvideWorkers creates the worker manager with all background workers
// registered. Workers are not started.
func ProvideWorkers(cfg *WorkerConfig, shares service.ShareService, logger *zap.Logger) (*worker.WorkerManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if shares == nil {
		return nil, fmt.Errorf("share service is required")
	}

	manager := worker.NewWorkerManager(logger)
	manager.Register(worker.NewShareSweeper(worker.ShareSweeperConfig{
		Interval: cfg.ShareSweepInterval,
		Timeout:  cfg.ShareSweepTimeout,
	}, shares, logger))

	return manager, nil
}

// ProvideHTTPServer creates the HTTP API server.
func ProvideHTTPServer(cfg *ServerConfig, services *ServiceBundle, health httpapi.HealthReporter, logger *zap.Logger) (*httpapi.Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}

	return httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		Version:         cfg.Version,
		Environment:     cfg.Environment,
		AllowedOrigins:  cfg.AllowedOrigins,
		PublicBaseURL:   cfg.PublicBaseURL,
		PublicRateLimit: cfg.PublicRateLimit,
		PublicBurst:     cfg.PublicBurst,
	}, httpapi.Services{
		Invoices: services.Invoice,
		Auth:     services.Auth,
		Shares:   services.Share,
	}, health, &zapLoggerAdapter{logger: logger}), nil
}
