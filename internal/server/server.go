package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ecpbench/internal/config"
	"ecpbench/internal/index"
	"ecpbench/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router  *gin.Engine
	manager *index.Manager
	conf    *config.Config
}

// New creates a new server instance. gatherer backs GET /metrics; a nil
// gatherer leaves the route out.
func New(conf *config.Config, manager *index.Manager, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		conf:    conf,
		manager: manager,
		router:  gin.New(),
	}
	s.router.Use(gin.Recovery(), requestLogger())
	s.setupRoutes(gatherer)
	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/", s.handleHealthCheck())
	if gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.router.Group("/v1")
	v1.POST("/indexes", s.handleCreateIndex())
	v1.GET("/indexes", s.handleListIndexes())
	v1.GET("/indexes/:name", s.handleGetIndex())
	v1.DELETE("/indexes/:name", s.handleDeleteIndex())
	v1.POST("/indexes/:name/search", s.handleSearch())
	v1.POST("/indexes/:name/batchsearch", s.handleBatchSearch())
}

// Handler exposes the routes for embedding in another http.Server or a test.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}
