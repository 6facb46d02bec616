// Package processor reconciles projects reported by system hooks in the
// background, one project at a time.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ProjectReconciler reconciles a single project.
type ProjectReconciler interface {
	Reconcile(ctx context.Context, projectID int) error
}

// Task is one queued reconciliation.
type Task struct {
	ProjectID  int
	EventName  string
	ReceivedAt time.Time
}

// ErrQueueFull indicates that no capacity is available to enqueue the task.
var ErrQueueFull = errors.New("processor queue is full")

// Processor executes tasks on a single worker so reconciliations never
// overlap. Tasks run on a context owned by the processor, not by the request
// that queued them.
type Processor struct {
	reconciler ProjectReconciler
	logger     *slog.Logger

	queue    chan Task
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a processor and starts its worker.
func New(rec ProjectReconciler, queueSize int, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Processor{
		reconciler: rec,
		logger:     logger,
		queue:      make(chan Task, queueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	p.wg.Add(1)
	go p.worker()
	return p
}

// Enqueue submits a task for asynchronous processing.
func (p *Processor) Enqueue(task Task) error {
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. When ctx
// expires first, the running reconciliation is cancelled.
func (p *Processor) Shutdown(ctx context.Context) {
	p.stopOnce.Do(func() {
		close(p.queue)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		p.logger.Warn("shutdown timed out", slog.String("error", ctx.Err().Error()))
		p.cancel()
		<-done
	}
	p.cancel()
}

func (p *Processor) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		logger := p.logger.With(
			slog.Int("project_id", task.ProjectID),
			slog.String("event_name", task.EventName),
		)
		if err := p.ctx.Err(); err != nil {
			logger.Warn("task dropped", slog.String("error", err.Error()))
			continue
		}
		start := time.Now()
		if err := p.reconciler.Reconcile(p.ctx, task.ProjectID); err != nil {
			logger.Error("reconcile failed", slog.String("error", err.Error()))
			continue
		}
		logger.Info("project reconciled",
			slog.Duration("queued_for", start.Sub(task.ReceivedAt)),
			slog.Duration("duration", time.Since(start)))
	}
}
