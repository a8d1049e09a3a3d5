// Package server exposes conversions over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Faultbox/reliefmesh/internal/logger"
	"github.com/Faultbox/reliefmesh/internal/relief"
	"github.com/Faultbox/reliefmesh/internal/store"
)

// Options configures a Server.
type Options struct {
	Mode      string         // gin mode: release, debug or test
	OutputDir string         // where the converter writes artifacts
	UploadDir string         // temporary home for uploaded images
	Defaults  relief.Request // parameters used when a request omits them
}

// Server routes HTTP requests to a converter.
type Server struct {
	opts   Options
	conv   *relief.Converter
	store  *store.Store
	engine *gin.Engine
}

// New creates a server. st may be nil, which disables the record routes.
func New(opts Options, conv *relief.Converter, st *store.Store) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	s := &Server{
		opts:   opts,
		conv:   conv,
		store:  st,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", s.health)
	r.POST("/convert", s.convert)
	r.GET("/artifacts/:name", s.artifact)

	records := r.Group("/conversions")
	{
		records.GET("", s.listConversions)
		records.GET("/:id", s.getConversion)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
