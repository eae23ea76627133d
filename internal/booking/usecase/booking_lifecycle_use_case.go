package usecase

import (
	"context"

	"go.uber.org/zap"

	"staybook/internal/booking/service"
	"staybook/internal/domain"
	"staybook/internal/dto"
	apperrors "staybook/internal/errors"
)

type BookingRepository interface {
	FindByID(ctx context.Context, id uint64) (*domain.Booking, error)
}

type LifecycleService interface {
	Transition(ctx context.Context, bookingID uint64, next domain.BookingStatus, actor domain.Actor) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID uint64, actor domain.Actor, reason *string) (*service.Cancellation, error)
	ConfirmPayment(ctx context.Context, transactionID string) (*domain.Booking, error)
	FailPayment(ctx context.Context, transactionID string) (*domain.Booking, error)
}

type RefundService interface {
	Attempt(ctx context.Context, rr domain.RefundRetry) error
}

type BookingLifecycleUseCase struct {
	bookingRepo  BookingRepository
	lifecycleSvc LifecycleService
	refundSvc    RefundService
	notifier     Notifier
	logger       *zap.Logger
	retrier      deadlockRetrier
}

func NewBookingLifecycleUseCase(
	bookingRepo BookingRepository,
	lifecycleSvc LifecycleService,
	refundSvc RefundService,
	notifier Notifier,
	logger *zap.Logger,
	maxRetryAttempts int,
) *BookingLifecycleUseCase {
	return &BookingLifecycleUseCase{
		bookingRepo:  bookingRepo,
		lifecycleSvc: lifecycleSvc,
		refundSvc:    refundSvc,
		notifier:     notifier,
		logger:       logger,
		retrier:      newDeadlockRetrier(maxRetryAttempts, logger),
	}
}

func (uc *BookingLifecycleUseCase) GetBooking(ctx context.Context, bookingID uint64, actor domain.Actor) (*domain.Booking, error) {
	b, err := uc.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !actor.CanView(*b) {
		return nil, apperrors.NewForbiddenError("actor is not allowed to view this booking")
	}

	return b, nil
}

// TransitionBooking moves a booking to next. Cancelling through this entry
// point runs the full cancellation workflow.
func (uc *BookingLifecycleUseCase) TransitionBooking(ctx context.Context, bookingID uint64, next domain.BookingStatus, actor domain.Actor) (*domain.Booking, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field: "status", Message: "unknown booking status",
		})
	}

	if next == domain.BookingStatusCancelled {
		result, err := uc.CancelBooking(ctx, bookingID, actor, nil)
		if err != nil {
			return nil, err
		}
		return &result.Booking, nil
	}

	var b *domain.Booking
	err := uc.retrier.run(ctx, "transition_booking", func() error {
		var err error
		b, err = uc.lifecycleSvc.Transition(ctx, bookingID, next, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, uc.notifier, uc.logger, *b)

	return b, nil
}

// CancelBooking cancels and then tries the refund once. A gateway failure
// leaves the refund queued for the retry worker and the cancellation stands.
func (uc *BookingLifecycleUseCase) CancelBooking(ctx context.Context, bookingID uint64, actor domain.Actor, reason *string) (*dto.CancellationResult, error) {
	var c *service.Cancellation
	err := uc.retrier.run(ctx, "cancel_booking", func() error {
		var err error
		c, err = uc.lifecycleSvc.Cancel(ctx, bookingID, actor, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &dto.CancellationResult{
		Booking:      c.Booking,
		RefundAmount: c.RefundAmount,
		RefundStatus: dto.RefundNone,
	}

	if c.Refund != nil {
		result.RefundStatus = dto.RefundProcessed
		if err := uc.refundSvc.Attempt(ctx, *c.Refund); err != nil {
			uc.logger.Warn("refund queued for retry",
				zap.Uint64("bookingId", bookingID),
				zap.String("refundAmount", c.RefundAmount.StringFixed(2)),
				zap.Error(err))
			result.RefundStatus = dto.RefundQueued
		}
	}

	publish(ctx, uc.notifier, uc.logger, c.Booking)

	return result, nil
}

// ConfirmPayment handles the gateway's capture callback.
func (uc *BookingLifecycleUseCase) ConfirmPayment(ctx context.Context, transactionID string) (*domain.Booking, error) {
	var b *domain.Booking
	err := uc.retrier.run(ctx, "confirm_payment", func() error {
		var err error
		b, err = uc.lifecycleSvc.ConfirmPayment(ctx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, uc.notifier, uc.logger, *b)

	return b, nil
}

// FailPayment handles the gateway's decline callback.
func (uc *BookingLifecycleUseCase) FailPayment(ctx context.Context, transactionID string) (*domain.Booking, error) {
	var b *domain.Booking
	err := uc.retrier.run(ctx, "fail_payment", func() error {
		var err error
		b, err = uc.lifecycleSvc.FailPayment(ctx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if b.Status == domain.BookingStatusCancelled {
		publish(ctx, uc.notifier, uc.logger, *b)
	}

	return b, nil
}
