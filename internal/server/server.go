// Package server provides the HTTP adapter over the extraction pipeline.
// It is a thin layer translating multipart uploads into pipeline and batch
// coordinator calls.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adars/invoice-ai/internal/models"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DocumentService processes a single uploaded document end to end.
type DocumentService interface {
	ProcessDocument(ctx context.Context, doc models.Document, normalize bool) (*models.InvoiceRecord, error)
}

// BatchService processes many documents with bounded concurrency.
type BatchService interface {
	Run(ctx context.Context, docs []models.Document) *models.BatchResult
	RunStream(ctx context.Context, docs []models.Document) <-chan models.ProgressEvent
}

// InvoiceStore persists extracted records. May be nil when export is disabled.
type InvoiceStore interface {
	AppendAll(records []*models.InvoiceRecord) (saved, duplicates int, err error)
}

// Config holds HTTP server configuration
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Normalize    bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     Config
	httpServer *http.Server
	router     *gin.Engine
	documents  DocumentService
	batches    BatchService
	store      InvoiceStore
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config Config,
	documents DocumentService,
	batches BatchService,
	store InvoiceStore,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:    config,
		router:    gin.New(),
		documents: documents,
		batches:   batches,
		store:     store,
		logger:    logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
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

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.documents, s.batches, s.store, s.config.Normalize, s.logger)

	s.router.GET("/", handlers.Root)
	s.router.GET("/health", handlers.HealthCheck)

	s.router.POST("/extract", handlers.ExtractSingle)
	s.router.POST("/extract-multiple", handlers.ExtractMultiple)
	s.router.POST("/extract-stream", handlers.ExtractStream)
	s.router.POST("/invoices/totals", handlers.InvoiceTotals)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

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

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
