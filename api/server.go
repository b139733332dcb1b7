// Package api serves calibrated curves over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meenmo/curvekit/logger"
	"github.com/meenmo/curvekit/metrics"
	"github.com/meenmo/curvekit/service"
)

// Config holds the configuration for the API server
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server represents the API server
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	current    *service.Current
	recorder   *metrics.Recorder
	log        *logger.Logger
}

// NewServer creates a new API server. recorder may be nil.
func NewServer(config Config, current *service.Current, recorder *metrics.Recorder) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}

	s := &Server{
		config:   config,
		router:   gin.New(),
		current:  current,
		recorder: recorder,
		log:      logger.GetLogger("api.server"),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.Infof("Starting API server on %s", s.config.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggingMiddleware(s.log.Named("http")))
	if s.recorder != nil {
		s.router.Use(MetricsMiddleware(s.recorder))
	}

	h := &handlers{current: s.current, log: s.log.Named("handlers")}
	v1 := s.router.Group("/api/v1")
	v1.GET("/health", h.health)

	curves := v1.Group("/curves")
	curves.GET("", h.listCurves)
	curves.POST("/refresh", h.refresh)
	curves.GET("/:name/nodes", h.nodes)
	curves.GET("/:name/discount", h.discount)
	curves.GET("/:name/zero", h.zero)
	curves.GET("/:name/forward", h.forward)
	curves.GET("/:name/builds", h.builds)

	v1.PUT("/quotes/:id", h.updateQuote)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
