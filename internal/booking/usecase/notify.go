package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"staybook/internal/domain"
)

const notifyTimeout = 3 * time.Second

// publish sends a booking event after the change is committed. Failures are
// logged and never reach the caller.
func publish(ctx context.Context, notifier Notifier, logger *zap.Logger, b domain.Booking) {
	if notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	event := domain.NewBookingEvent(b, time.Now())
	if err := notifier.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish booking event",
			zap.String("eventType", string(event.Type)),
			zap.Uint64("bookingId", b.ID),
			zap.Error(err))
	}
}
