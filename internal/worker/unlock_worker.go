package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/quiz-platform/internal/repository"
)

// UnlockWorker periodically clears account locks whose window has elapsed.
// It supplements the per-request lockout gate: the gate never assumes this
// sweep has run, so the worker only shortens how long stale locks linger.
type UnlockWorker struct {
	users    repository.UserRepository
	window   time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewUnlockWorker builds the worker.
func NewUnlockWorker(users repository.UserRepository, window, interval time.Duration, logger *zap.Logger) *UnlockWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &UnlockWorker{users: users, window: window, interval: interval, logger: logger}
}

// Run sweeps until the context is canceled.
func (w *UnlockWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *UnlockWorker) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.window)
	unlocked, err := w.users.UnlockExpired(ctx, cutoff)
	if err != nil {
		w.logger.Warn("unlock sweep failed", zap.Error(err))
		return
	}
	if unlocked > 0 {
		w.logger.Info("unlock sweep cleared expired locks", zap.Int64("count", unlocked))
	}
}
