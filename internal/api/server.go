// Package api exposes the classification engine over HTTP. The surface is
// deliberately thin: JSON in, JSON out, engine errors mapped to status codes.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harborline/hscode/internal/engine"
	"github.com/harborline/hscode/internal/service"
)

// Server wires the classification engine, the catalog and the feedback store
// into a gin router.
type Server struct {
	engine   *engine.Engine
	catalog  service.CatalogStore
	feedback service.FeedbackStore
	logger   *slog.Logger
	router   *gin.Engine
}

// NewServer builds the router. gin runs in release mode; callers that want
// debug logging set GIN_MODE themselves.
func NewServer(eng *engine.Engine, catalog service.CatalogStore, feedback service.FeedbackStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:   eng,
		catalog:  catalog,
		feedback: feedback,
		logger:   logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/classify", s.handleClassify)
		v1.GET("/conversations/:id", s.handleGetConversation)
		v1.POST("/conversations/:id/answers", s.handleSubmitAnswers)
		v1.POST("/conversations/:id/skip", s.handleSkip)
		v1.DELETE("/conversations/:id", s.handleAbandon)
		v1.POST("/feedback", s.handleSaveFeedback)
		v1.GET("/feedback/stats", s.handleFeedbackStats)
		v1.GET("/catalog/:code", s.handleGetCatalogEntry)
	}

	s.router = router
	return s
}

// Handler returns the underlying http.Handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
