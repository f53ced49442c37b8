// Package api exposes the assessment pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mr-gorsky/tear-film-analyzer/internal/domain"
	"github.com/mr-gorsky/tear-film-analyzer/internal/history"
	"github.com/mr-gorsky/tear-film-analyzer/internal/middleware"
	"github.com/mr-gorsky/tear-film-analyzer/internal/repository"
	"github.com/mr-gorsky/tear-film-analyzer/internal/service"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	assessment    *service.AssessmentService
	historyStore  history.Store
	examRepo      *repository.ExamRepository
	rateLimiter   *middleware.RateLimiter
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. The history store may be nil,
// in which case assessment results are returned but not persisted.
func NewServer(
	configManager domain.ConfigManager,
	assessment *service.AssessmentService,
	historyStore history.Store,
	logger *logrus.Logger,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(corsMiddleware())
	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateBurst)
		router.Use(limiter.Middleware())
	}

	server := &Server{
		configManager: configManager,
		assessment:    assessment,
		historyStore:  historyStore,
		rateLimiter:   limiter,
		logger:        logger,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// WithExamRepository enables raw measurement persistence for server
// deployments backed by PostgreSQL. Without it only assessment outcomes
// are stored.
func (s *Server) WithExamRepository(repo *repository.ExamRepository) *Server {
	s.examRepo = repo
	return s
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/assess", s.handleAssess)
		v1.POST("/assess/validate", s.handleValidate)
		v1.GET("/assessments", s.handleListAssessments)
		v1.GET("/assessments/:exam_id", s.handleGetAssessment)
		v1.GET("/reference/patterns", s.handleReferencePatterns)
		v1.GET("/reference/treatments", s.handleReferenceTreatments)
		v1.GET("/reference/stats", s.handleReferenceStats)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   service.EngineVersion,
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
