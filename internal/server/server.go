package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gitlab-jenkins-sync/internal/config"
	"github.com/gitlab-jenkins-sync/internal/processor"
	"github.com/gitlab-jenkins-sync/pkg/hook"
)

const (
	headerEvent = "X-Gitlab-Event"
	headerToken = "X-Gitlab-Token"

	eventSystemHook = "System Hook"
)

// TaskQueue accepts reconciliation tasks for background processing.
type TaskQueue interface {
	Enqueue(task processor.Task) error
}

// Server receives GitLab system hooks and queues the affected project for
// reconciliation.
type Server struct {
	cfg    *config.Config
	queue  TaskQueue
	engine *gin.Engine
	server *http.Server
	log    *slog.Logger
}

func New(cfg *config.Config, queue TaskQueue, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	engine := gin.New()
	s := &Server{
		cfg:    cfg,
		queue:  queue,
		engine: engine,
		log:    logger,
	}
	engine.Use(gin.Recovery(), s.logRequests())
	engine.GET("/healthz", s.handleHealth)
	engine.POST("/hooks/system", s.handleSystemHook)

	s.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout.Duration,
		WriteTimeout:      cfg.Server.WriteTimeout.Duration,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleSystemHook(c *gin.Context) {
	if !validToken(c.GetHeader(headerToken), s.cfg.Server.HookSecret) {
		s.log.Warn("invalid hook token", "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if event := c.GetHeader(headerEvent); event != eventSystemHook {
		s.log.Info("unsupported gitlab event", "event", event)
		c.Status(http.StatusNoContent)
		return
	}

	var event hook.SystemEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		s.log.Error("decode hook payload", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if !event.TriggersReconcile() {
		s.log.Debug("ignoring system event", "event_name", event.EventName)
		c.Status(http.StatusNoContent)
		return
	}

	logger := s.log.With("project_id", event.ProjectID, "event_name", event.EventName)
	err := s.queue.Enqueue(processor.Task{
		ProjectID:  event.ProjectID,
		EventName:  event.EventName,
		ReceivedAt: time.Now(),
	})
	if errors.Is(err, processor.ErrQueueFull) {
		logger.Warn("queue full, rejecting hook")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue full"})
		return
	}
	if err != nil {
		logger.Error("enqueue failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue failed"})
		return
	}

	logger.Info("project queued")
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "project_id": event.ProjectID})
}

func validToken(got, want string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
