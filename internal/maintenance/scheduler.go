// Package maintenance runs the periodic background jobs of the service:
// sweeping expired sessions and rotating the shared check-in code.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrAlreadyStarted is returned when Start is called on a running scheduler.
var ErrAlreadyStarted = errors.New("maintenance: scheduler already started")

// Task is one periodic job. Run errors are logged and never stop the loop.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives a fixed set of tasks until its context is cancelled.
type Scheduler struct {
	tasks  []Task
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

func NewScheduler(logger *slog.Logger, tasks ...Task) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{tasks: tasks, logger: logger.With("component", "maintenance")}
}

// Start launches one goroutine per task. The scheduler runs once: a second
// Start, even after Stop, returns ErrAlreadyStarted.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	for _, task := range s.tasks {
		if task.Run == nil || task.Interval <= 0 {
			return fmt.Errorf("maintenance: task %q needs a run func and a positive interval", task.Name)
		}
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)
	for _, task := range s.tasks {
		s.group.Go(func() error {
			s.loop(ctx, task)
			return nil
		})
	}
	s.logger.InfoContext(ctx, "maintenance started", "tasks", len(s.tasks))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTask(ctx, task)
		}
	}
}

func (s *Scheduler) runTask(ctx context.Context, task Task) {
	start := time.Now()
	err := task.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.WarnContext(ctx, "maintenance task failed", "task", task.Name, "error", err)
		return
	}
	s.logger.DebugContext(ctx, "maintenance task finished", "task", task.Name, "elapsed", time.Since(start))
}

// RunOnce executes every task immediately in order and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, task := range s.tasks {
		if err := task.Run(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", task.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Stop cancels the running tasks and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, group := s.cancel, s.group
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	_ = group.Wait()
	s.logger.Info("maintenance stopped")
}

// Wait blocks until every task loop has returned.
func (s *Scheduler) Wait() error {
	s.mu.Lock()
	group := s.group
	s.mu.Unlock()

	if group == nil {
		return nil
	}
	return group.Wait()
}
