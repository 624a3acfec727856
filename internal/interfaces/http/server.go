// Package http exposes the travel request lifecycle over a JSON API.
// Handlers only translate HTTP to application calls; every rule lives below this layer.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sefapa/sgpd/internal/application/accountability"
	"github.com/sefapa/sgpd/internal/application/alert"
	"github.com/sefapa/sgpd/internal/application/service"
	"github.com/sefapa/sgpd/internal/application/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DailyJobRunner triggers one run of the daily lifecycle job
type DailyJobRunner interface {
	Run(ctx context.Context) (*alert.DailyResult, error)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxUploadBytes: 20 << 20,
	}
}

// Services are the application entry points the API serves
type Services struct {
	Requests       service.TravelRequestService
	Engine         workflow.Engine
	WorkflowLog    service.WorkflowLogService
	Portaria       service.PortariaService
	Notifications  service.NotificationService
	Reports        service.ReportService
	Conference     service.ConferenceService
	Profiles       service.ProfileService
	Accountability *accountability.Service
	DailyJob       DailyJobRunner
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}

	router := gin.New()
	router.MaxMultipartMemory = config.MaxUploadBytes

	server := &Server{
		config:   config,
		router:   router,
		handlers: NewHandlers(services, config.MaxUploadBytes, logger),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"actor_id", c.GetString(actorKey),
		)
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api/v1", requireActor())
	{
		requests := api.Group("/requests")
		requests.POST("", h.CreateRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/:id", h.GetRequest)
		requests.PUT("/:id", h.UpdateRequest)

		requests.POST("/:id/submit", h.Submit)
		requests.POST("/:id/approve", h.Approve)
		requests.POST("/:id/reject", h.Reject)
		requests.POST("/:id/return", h.ReturnForCorrection)
		requests.POST("/:id/accountability", h.SubmitAccountability)
		requests.POST("/:id/conference", h.Conference)

		requests.GET("/:id/history", h.History)
		requests.GET("/:id/deadline", h.Deadline)
		requests.GET("/:id/permitted", h.PermittedTriggers)
		requests.GET("/:id/portaria", h.Portaria)

		api.GET("/notifications", h.ListNotifications)
		api.GET("/profiles/:id", h.GetProfile)
		api.PUT("/profiles/:id", h.SaveProfile)
		api.PUT("/settings/portaria-template", h.SetPortariaTemplate)
		api.GET("/reports/accountability.xlsx", h.AccountabilityReport)
		api.POST("/jobs/daily", h.RunDailyJob)
	}
}

// Start serves until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
