// Package scheduler runs the periodic reset of the company collection as
// an owned task that can be stopped on shutdown.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultResetInterval is how often the collection returns to its seed state.
const DefaultResetInterval = time.Hour

// Resetter restores the seed state.
type Resetter interface {
	ResetCompanies(ctx context.Context)
}

// ResetTask calls Resetter on a fixed interval until stopped.
type ResetTask struct {
	target   Resetter
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewResetTask builds a task; nothing runs until Start.
func NewResetTask(target Resetter, interval time.Duration, logger *zap.Logger) *ResetTask {
	return &ResetTask{
		target:   target,
		interval: interval,
		logger:   logger.Named("reset_task"),
		done:     make(chan struct{}),
	}
}

// Start schedules the first reset one interval from now. The task ends when
// ctx is cancelled or Stop is called. A task can only be started once.
func (t *ResetTask) Start(ctx context.Context) error {
	if t.interval <= 0 {
		return errors.New("reset interval must be positive")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return errors.New("reset task already started")
	}
	t.started = true

	ctx, t.cancel = context.WithCancel(ctx)
	go t.run(ctx)

	t.logger.Info("Scheduled periodic reset of companies", zap.Duration("interval", t.interval))
	return nil
}

func (t *ResetTask) run(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.target.ResetCompanies(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the task and waits for it to exit. It is safe to call more
// than once and on a task that never started.
func (t *ResetTask) Stop() {
	t.mu.Lock()
	started, cancel := t.started, t.cancel
	t.mu.Unlock()

	if !started {
		return
	}
	cancel()
	<-t.done
}
