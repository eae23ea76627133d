package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type RefundProcessor interface {
	ProcessDue(ctx context.Context) (processed int, failed int, err error)
}

// RefundRetryWorker periodically drains the refund queue.
type RefundRetryWorker struct {
	processor RefundProcessor
	logger    *zap.Logger
	interval  time.Duration
}

func NewRefundRetryWorker(processor RefundProcessor, logger *zap.Logger, interval time.Duration) *RefundRetryWorker {
	return &RefundRetryWorker{
		processor: processor,
		logger:    logger,
		interval:  interval,
	}
}

// Start blocks until ctx is cancelled.
func (w *RefundRetryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("refund retry worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("refund retry worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *RefundRetryWorker) tick(ctx context.Context) {
	processed, failed, err := w.processor.ProcessDue(ctx)
	if err != nil {
		w.logger.Error("failed to process due refunds", zap.Error(err))
		return
	}

	if processed > 0 || failed > 0 {
		w.logger.Info("refund retry batch done", zap.Int("processed", processed), zap.Int("failed", failed))
	}
}
