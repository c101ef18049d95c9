package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// drainer is the worker pool as seen by shutdown.
type drainer interface {
	WaitTimeout(ctx context.Context) bool
	Wait()
}

// shutdownSteps are the components stopped by gracefulShutdown, in order.
type shutdownSteps struct {
	closeQueue  func()
	queued      func() int
	pool        drainer
	cancelJobs  context.CancelFunc
	waitRejects func()
	disconnect  func()
	stopHTTP    func(ctx context.Context) error
}

// gracefulShutdown stops intake, lets queued jobs finish within drainTimeout
// and cancels the rest, waits for late rejections, then drops the broker and
// the ops server. Every queued message has attempted its notification before
// the broker goes away.
func gracefulShutdown(s shutdownSteps, drainTimeout time.Duration, logger *zap.Logger) {
	s.closeQueue()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer drainCancel()
	if !s.pool.WaitTimeout(drainCtx) {
		logger.Warn("drain deadline reached, cancelling remaining jobs",
			zap.Duration("timeout", drainTimeout),
			zap.Int("queued", s.queued()),
		)
		s.cancelJobs()
		s.pool.Wait()
	}

	s.waitRejects()
	s.disconnect()

	// Ops surface goes last so /ready reflects the shutdown.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer httpCancel()
	if err := s.stopHTTP(httpCtx); err != nil {
		logger.Error("ops server shutdown error", zap.Error(err))
	}
}
