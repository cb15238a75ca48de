// Package worker implements the asynchronous dispatch execution loop.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pingmyweb/pingd/internal/metrics"
	"github.com/pingmyweb/pingd/internal/ping"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 5 * time.Second
)

// Dispatcher executes one dispatch end to end.
type Dispatcher interface {
	Dispatch(ctx context.Context, req ping.DispatchRequest) (ping.DispatchOutcome, error)
}

// Config controls Worker behavior.
type Config struct {
	// MaxAttempts bounds delivery attempts per command, first try included.
	MaxAttempts int
	// RetryDelay is the pause before a failed command is requeued.
	RetryDelay time.Duration
}

// Worker consumes queued dispatch commands and executes them.
type Worker struct {
	queue      ping.Queue
	dispatcher Dispatcher
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker.
func New(queue ping.Queue, dispatcher Dispatcher, cfg Config, logger *zap.Logger) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		cmd, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued dispatch",
			zap.String("request_id", cmd.Request.RequestID),
			zap.Int("attempt", cmd.Attempt),
		)
		w.process(ctx, cmd)
	}
}

func (w *Worker) process(ctx context.Context, cmd ping.DispatchCommand) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	start := time.Now()
	outcome, err := w.dispatcher.Dispatch(ctx, cmd.Request)
	if err == nil {
		metrics.ObserveDispatch("async", "ok", time.Since(start))
		w.logger.Info("dispatch completed",
			zap.String("request_id", cmd.Request.RequestID),
			zap.String("url", outcome.URL),
			zap.Float64("success_rate", outcome.SuccessRatePercent),
			zap.Int("quota_remaining", outcome.QuotaRemaining),
		)
		return
	}

	if terminal(err) {
		metrics.ObserveDispatch("async", "rejected", time.Since(start))
		w.logger.Info("dispatch rejected",
			zap.String("request_id", cmd.Request.RequestID),
			zap.String("url", cmd.Request.URL),
			zap.Error(err),
		)
		return
	}

	w.retry(ctx, cmd, err, start)
}

func (w *Worker) retry(ctx context.Context, cmd ping.DispatchCommand, cause error, start time.Time) {
	if cmd.Attempt+1 >= w.cfg.MaxAttempts {
		metrics.ObserveDispatch("async", "failed", time.Since(start))
		w.logger.Error("dispatch dropped after max attempts",
			zap.String("request_id", cmd.Request.RequestID),
			zap.String("url", cmd.Request.URL),
			zap.Int("attempts", cmd.Attempt+1),
			zap.Error(cause),
		)
		return
	}

	w.logger.Warn("dispatch failed, requeueing",
		zap.String("request_id", cmd.Request.RequestID),
		zap.Int("attempt", cmd.Attempt),
		zap.Error(cause),
	)

	select {
	case <-ctx.Done():
		return
	case <-time.After(w.cfg.RetryDelay):
	}

	cmd.Attempt++
	if err := w.queue.Enqueue(ctx, cmd); err != nil {
		w.logger.Error("requeue failed",
			zap.String("request_id", cmd.Request.RequestID),
			zap.Error(err),
		)
	}
}

// terminal reports whether err is a rejection no retry can fix. Quota dedupe
// by request id keeps the retried path honest for the infrastructure ones.
func terminal(err error) bool {
	return errors.Is(err, ping.ErrInvalidURL) ||
		errors.Is(err, ping.ErrUserInactive) ||
		errors.Is(err, ping.ErrNoContentChange) ||
		ping.IsQuotaExceeded(err)
}
