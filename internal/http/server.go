// Package http provides the HTTP API for serviced.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/serviced/internal/credstore"
	"github.com/fyrsmithlabs/serviced/internal/embeddings"
	"github.com/fyrsmithlabs/serviced/internal/registry"
)

// Services is the slice of the service layer the HTTP API consumes.
// *services.Provider satisfies it; tests substitute mocks.
type Services interface {
	Snapshot(category registry.Category) (registry.CategorySnapshot, error)
	Snapshots() []registry.CategorySnapshot
	Embedding(ctx context.Context) (embeddings.Provider, error)
	CredentialStore(ctx context.Context) (*credstore.Service, error)
}

// Server provides HTTP endpoints for serviced.
type Server struct {
	echo     *echo.Echo
	services Services
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(svcs Services, logger *zap.Logger, cfg *Config) (*Server, error) {
	if svcs == nil {
		return nil, fmt.Errorf("services cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9090,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		services: svcs,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/health/services", s.handleServicesHealth)
	s.echo.GET("/health/services/:category", s.handleCategoryHealth)

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/embeddings", s.handleEmbed)
	v1.POST("/keys", s.handleIssueKey)
	v1.GET("/keys/:key", s.handleVerifyKey)
	v1.DELETE("/keys/:key", s.handleDisableKey)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status               string `json:"status"`
	TotalCachedInstances int    `json:"total_cached_instances"`
}

// ServicesHealthResponse is the response body for GET /health/services.
type ServicesHealthResponse struct {
	Services []registry.CategorySnapshot `json:"services"`
}

// EmbedRequest is the request body for POST /api/v1/embeddings.
type EmbedRequest struct {
	Texts []string `json:"texts"`
}

// EmbedResponse is the response body for POST /api/v1/embeddings.
type EmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// IssueKeyRequest is the request body for POST /api/v1/keys.
type IssueKeyRequest struct {
	Client string `json:"client"`
}

// KeyStatusResponse is the response body for GET /api/v1/keys/:key.
type KeyStatusResponse struct {
	Client string `json:"client"`
	Active bool   `json:"active"`
}

func (s *Server) handleHealth(c echo.Context) error {
	total := 0
	for _, snap := range s.services.Snapshots() {
		total += snap.TotalCachedInstances
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:               "ok",
		TotalCachedInstances: total,
	})
}

func (s *Server) handleServicesHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, ServicesHealthResponse{
		Services: s.services.Snapshots(),
	})
}

func (s *Server) handleCategoryHealth(c echo.Context) error {
	snap, err := s.services.Snapshot(registry.Category(c.Param("category")))
	if errors.Is(err, registry.ErrUnknownCategory) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown service category")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleEmbed(c echo.Context) error {
	var req EmbedRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid embeddings request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Texts) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "texts field is required")
	}

	provider, err := s.services.Embedding(c.Request().Context())
	if err != nil {
		s.logger.Error("resolving embedding provider", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "embedding provider unavailable")
	}

	vectors, err := provider.Embed(c.Request().Context(), req.Texts)
	if err != nil {
		s.logger.Error("embedding request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "embedding request failed")
	}

	return c.JSON(http.StatusOK, EmbedResponse{
		Model:      provider.Model(),
		Embeddings: vectors,
	})
}

func (s *Server) handleIssueKey(c echo.Context) error {
	var req IssueKeyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Client == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client field is required")
	}

	store, err := s.services.CredentialStore(c.Request().Context())
	if err != nil {
		s.logger.Error("resolving credential store", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "credential store unavailable")
	}

	key, err := store.Issue(c.Request().Context(), req.Client)
	if err != nil {
		s.logger.Error("issuing api key", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue api key")
	}

	return c.JSON(http.StatusCreated, key)
}

func (s *Server) handleVerifyKey(c echo.Context) error {
	store, err := s.services.CredentialStore(c.Request().Context())
	if err != nil {
		s.logger.Error("resolving credential store", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "credential store unavailable")
	}

	record, err := store.Verify(c.Request().Context(), c.Param("key"))
	if errors.Is(err, credstore.ErrKeyNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "api key not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to verify api key")
	}

	return c.JSON(http.StatusOK, KeyStatusResponse{
		Client: record.Client,
		Active: record.Active,
	})
}

func (s *Server) handleDisableKey(c echo.Context) error {
	store, err := s.services.CredentialStore(c.Request().Context())
	if err != nil {
		s.logger.Error("resolving credential store", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "credential store unavailable")
	}

	if err := store.Disable(c.Request().Context(), c.Param("key")); err != nil {
		if errors.Is(err, credstore.ErrKeyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "api key not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to disable api key")
	}

	return c.NoContent(http.StatusNoContent)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
