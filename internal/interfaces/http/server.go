// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/application/workflow"
	"github.com/garyjia/shared-staff/pkg/utils"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Mode            string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Mode:            gin.ReleaseMode,
	}
}

// Services groups the application services exposed over HTTP
type Services struct {
	Schedule service.ScheduleService
	Approval service.ApprovalService
	Weekly   service.WeeklyReportService
	Closure  service.ClosureService
	Audit    service.AuditService
	Profile  service.ProfileService
	Site     service.SiteService
	Document service.DocumentService
	Engine   workflow.Engine
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	tokens     *TokenAuthority
	db         Pinger
	logger     Logger
}

var registerValidatorsOnce sync.Once

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, tokens *TokenAuthority, db Pinger, logger Logger) *Server {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	gin.SetMode(config.Mode)

	registerValidatorsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := utils.RegisterValidators(v); err != nil {
				logger.Error("Failed to register validators", "error", err)
			}
		}
	})

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		tokens:   tokens,
		db:       db,
		logger:   logger,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// Logging middleware
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		// Log request details
		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
			"actor", actorFrom(c).ID,
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := newHandlers(s.services, s.db, s.logger)

	// Health check
	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api/v1", s.authentication())
	{
		api.GET("/me", h.Me)

		// Schedule proposals
		api.POST("/proposals", h.CreateProposal)
		api.GET("/proposals", h.ListProposals)
		api.GET("/proposals/:id", h.GetProposal)
		api.POST("/proposals/:id/decision", h.DecideProposal)
		api.GET("/staff/:staffId/calendar.ics", h.ExportCalendar)

		// Time entries
		api.POST("/time-entries", h.DeclareTime)
		api.GET("/time-entries", h.ListTimeEntries)
		api.GET("/time-entries/:id", h.GetTimeEntry)
		api.POST("/time-entries/:id/decision", h.DecideTimeEntry)
		api.DELETE("/time-entries/:id", h.DeleteTimeEntry)

		// Expenses
		api.POST("/expenses", h.DeclareExpense)
		api.GET("/expenses", h.ListExpenses)
		api.GET("/expenses/:id", h.GetExpense)
		api.POST("/expenses/:id/decision", h.DecideExpense)
		api.DELETE("/expenses/:id", h.DeleteExpense)

		// Weekly reports
		api.POST("/weekly-reports", h.SubmitReport)
		api.GET("/weekly-reports", h.ListReports)
		api.GET("/weekly-reports/:id", h.GetReport)
		api.PUT("/weekly-reports/:id", h.UpdateReport)
		api.DELETE("/weekly-reports/:id", h.DeleteReport)
		api.POST("/weekly-reports/:id/decision", h.DecideReport)
		api.GET("/weekly-reports/:id/alerts", h.ReportAlerts)

		// Monthly closures
		api.POST("/closures", h.OpenClosure)
		api.GET("/closures", h.ListClosures)
		api.GET("/closures/:id", h.GetClosure)
		api.POST("/closures/:id/sign", h.SignClosure)
		api.GET("/closures/:id/report", h.DownloadClosureReport)

		// Document register
		api.POST("/documents", h.CreateDocument)
		api.GET("/documents", h.ListDocuments)
		api.GET("/documents/:id", h.GetDocument)
		api.GET("/documents/:id/file", h.DownloadDocument)
		api.DELETE("/documents/:id", h.DeleteDocument)

		// Views
		api.GET("/pending/:type", h.Pending)
		api.GET("/summary/:month", h.MonthSummary)

		// Administration
		api.GET("/audit", h.ListAudit)
		api.POST("/profiles", h.CreateProfile)
		api.GET("/profiles", h.ListProfiles)
		api.GET("/profiles/:id", h.GetProfile)
		api.POST("/sites", h.CreateSite)
		api.GET("/sites", h.ListSites)
		api.GET("/sites/:id", h.GetSite)
		api.PUT("/sites/:id", h.UpdateSite)
		api.DELETE("/sites/:id", h.DeleteSite)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
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

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
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

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
