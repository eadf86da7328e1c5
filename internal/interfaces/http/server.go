// Package http provides the JSON API in front of the application services.
// It translates HTTP requests into service calls and classified errors into
// status codes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/garyjia/notion-invoice/internal/application/service"
	"github.com/garyjia/notion-invoice/internal/domain/entity"
	"github.com/garyjia/notion-invoice/internal/infrastructure/metrics"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HealthReporter returns whether the process is healthy along with a
// message per checked component ("" when the component is fine).
type HealthReporter func(ctx context.Context) (bool, map[string]string)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Version        string
	Environment    string
	AllowedOrigins []string
	// PublicBaseURL prefixes the URL returned for new share links.
	PublicBaseURL string
	// PublicRateLimit is the per-client request rate on unauthenticated
	// share routes, in requests per second. Zero disables limiting.
	PublicRateLimit float64
	PublicBurst     int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		Version:         "1.0.0",
		Environment:     "development",
		AllowedOrigins:  []string{"http://localhost:3000"},
		PublicBaseURL:   "http://localhost:3000",
		PublicRateLimit: 5,
		PublicBurst:     10,
	}
}

// Services groups the application services served over HTTP
type Services struct {
	Invoices service.InvoiceService
	Auth     service.AuthService
	Shares   service.ShareService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handler    http.Handler
	services   Services
	health     HealthReporter
	limiter    *RateLimiter
	logger     Logger
}

// NewServer creates a new HTTP server with the given services.
// health may be nil, in which case /health always reports healthy.
func NewServer(config ServerConfig, services Services, health HealthReporter, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		health:   health,
		logger:   logger,
	}
	if config.PublicRateLimit > 0 {
		server.limiter = NewRateLimiter(config.PublicRateLimit, config.PublicBurst, logger)
	}

	server.setupMiddleware()
	server.setupRoutes()

	server.handler = cors.New(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(router)

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(metricsMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		kv := []interface{}{
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("HTTP request", kv...)
			return
		}
		s.logger.Info("HTTP request", kv...)
	}
}

// metricsMiddleware records every request under its route template
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := NewAuthHandlers(s.services.Auth, s.logger)
	invoices := NewInvoiceHandlers(s.services.Invoices, s.logger)
	shares := NewShareHandlers(s.services.Shares, strings.TrimRight(s.config.PublicBaseURL, "/"), s.logger)

	requireAuth := AuthMiddleware(s.services.Auth)

	api := s.router.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/login", auth.AdminLogin)
		authGroup.POST("/login-client", auth.ClientLogin)
		authGroup.POST("/logout", auth.Logout)
		authGroup.GET("/me", requireAuth, auth.Me)

		invoiceGroup := api.Group("/notion/invoices", requireAuth, RequireRole(entity.RoleAdmin))
		invoiceGroup.GET("", invoices.List)
		invoiceGroup.POST("", invoices.Create)
		invoiceGroup.GET("/:id", invoices.Get)
		invoiceGroup.PUT("/:id", invoices.Update)
		invoiceGroup.DELETE("/:id", invoices.Delete)
		invoiceGroup.GET("/:id/export", invoices.Export)

		shareGroup := api.Group("/shares")

		// Share links expose full invoices publicly, so managing them is
		// held to the same role as the invoice routes.
		manage := shareGroup.Group("", requireAuth, RequireRole(entity.RoleAdmin))
		manage.POST("", shares.Create)
		manage.GET("/my", shares.ListMine)
		manage.DELETE("/:id", shares.Revoke)

		public := shareGroup.Group("")
		if s.limiter != nil {
			public.Use(s.limiter.Middleware())
		}
		public.POST("/validate", shares.Validate)
		public.GET("/:id/invoices", shares.SharedInvoices)
		public.GET("/:id/invoices/:invoiceId", shares.SharedInvoice)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr, "environment", s.config.Environment)

	if s.limiter != nil {
		s.limiter.StartCleanup(ctx, 10*time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Handler returns the router wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
