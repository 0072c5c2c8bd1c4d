// Package http provides the HTTP server, middleware, and route registration.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditHTTP "github.com/allisson/auditchain/internal/audit/http"
	retentionHTTP "github.com/allisson/auditchain/internal/retention/http"
)

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates a new HTTP server with the base middleware chain: request
// IDs, panic recovery, and structured request logging. Route handlers and
// optional middleware (CORS, rate limiting, metrics) are attached afterwards.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(logger))

	s := &Server{
		router: router,
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second, // exports stream large ranges
			IdleTimeout:  60 * time.Second,
		},
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	return s
}

// Use attaches additional middleware. Must be called before route registration.
func (s *Server) Use(middleware ...gin.HandlerFunc) {
	for _, m := range middleware {
		if m != nil {
			s.router.Use(m)
		}
	}
}

// RegisterAuditRoutes mounts the audit chain API.
func (s *Server) RegisterAuditRoutes(handler *auditHTTP.ChainHandler) {
	v1 := s.router.Group("/v1")
	{
		v1.POST("/chains/:chain_id/events", handler.RecordHandler)
		v1.GET("/chains/:chain_id/events", handler.ListHandler)
		v1.GET("/chains/:chain_id/state", handler.StateHandler)
		v1.GET("/chains/:chain_id/verify", handler.VerifyHandler)
		v1.GET("/chains/:chain_id/export", handler.ExportHandler)
	}
}

// RegisterRetentionRoutes mounts the retention administration API.
func (s *Server) RegisterRetentionRoutes(handler *retentionHTTP.RetentionHandler) {
	v1 := s.router.Group("/v1")
	{
		v1.GET("/retention-policies", handler.ListPoliciesHandler)
		v1.GET("/retention-policies/:event_type", handler.GetPolicyHandler)
		v1.PUT("/retention-policies/:event_type", handler.SetPolicyHandler)

		v1.PUT("/legal-holds/:resource_id", handler.SetLegalHoldHandler)
		v1.DELETE("/legal-holds/:resource_id", handler.ReleaseLegalHoldHandler)

		v1.POST("/purge-runs", handler.RunPurgeHandler)
		v1.GET("/purge-runs", handler.ListRunsHandler)
		v1.GET("/purge-runs/:id", handler.GetRunHandler)
		v1.POST("/purge-runs/:id/approve", handler.ApproveRunHandler)
		v1.POST("/purge-runs/:id/suspend", handler.SuspendRunHandler)
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports readiness, including database connectivity.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}

	if s.db == nil {
		components["database"] = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			components["database"] = "error"
		}
	}

	if components["database"] != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
