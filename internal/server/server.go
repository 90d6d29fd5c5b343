// Package server exposes the scheduled-trigger endpoint and run history over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"BeerSync/internal/domain"
	"BeerSync/internal/usecase"
)

// SyncRunner starts one sync run.
type SyncRunner interface {
	Run(ctx context.Context, opts usecase.RunOptions) (usecase.Summary, error)
}

// RunHistory returns the latest recorded run.
type RunHistory interface {
	LatestRun(ctx context.Context) (domain.RunRecord, error)
}

// Options configures the HTTP surface. History may be nil.
type Options struct {
	CronSecret   string
	RequestDelay time.Duration
	Runner       SyncRunner
	History      RunHistory
	Logger       *slog.Logger
}

// Server wraps the gin router.
type Server struct {
	opts   Options
	router *gin.Engine
	logger *slog.Logger
}

// New builds the router and registers the routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{opts: opts, router: router, logger: opts.Logger}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api")
	api.GET("/cron/data-sync", s.requireCronSecret(), s.triggerSync)
	api.GET("/sync/runs/latest", s.latestRun)
}

// requireCronSecret checks the bearer token. With no secret configured every
// request is refused.
func (s *Server) requireCronSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token := ""
		if len(h) > len("Bearer ") && strings.EqualFold(h[:len("Bearer ")], "bearer ") {
			token = strings.TrimSpace(h[len("Bearer "):])
		}

		secret := s.opts.CronSecret
		if secret == "" || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) triggerSync(c *gin.Context) {
	summary, err := s.opts.Runner.Run(c.Request.Context(), usecase.RunOptions{})
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
		return
	case err != nil:
		s.logger.Error("triggered sync failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"inputCount":       summary.InputCount,
		"outputCount":      summary.OutputCount,
		"attempted":        summary.Attempted,
		"matched":          summary.Matched,
		"unmatched":        summary.Unmatched,
		"overridesApplied": summary.OverridesApplied,
		"validationErrors": summary.ValidationErrors,
		"requestDelayMs":   s.opts.RequestDelay.Milliseconds(),
		"artifacts": gin.H{
			"beers":  summary.SnapshotLocation,
			"report": summary.ReportLocation,
		},
	})
}

func (s *Server) latestRun(c *gin.Context) {
	if s.opts.History == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run history disabled"})
		return
	}

	run, err := s.opts.History.LatestRun(c.Request.Context())
	switch {
	case errors.Is(err, domain.ErrNoRuns):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("load latest run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load latest run failed"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
