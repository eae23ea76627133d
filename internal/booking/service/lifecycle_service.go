package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"staybook/internal/domain"
	apperrors "staybook/internal/errors"
)

// Cancellation is the committed outcome of a cancel. Refund is nil when
// nothing has to be returned to the guest.
type Cancellation struct {
	Booking      domain.Booking
	RefundAmount decimal.Decimal
	Refund       *domain.RefundRetry
}

// LifecycleService moves bookings along the status graph. Each call locks only
// the booking row it changes.
type LifecycleService struct {
	db          TransactionManager
	bookingRepo BookingRepository
	paymentRepo PaymentRepository
	refundRepo  RefundRetryRepository
	logger      *zap.Logger
	txTimeout   time.Duration
	refundHold  time.Duration
	now         func() time.Time
}

func NewLifecycleService(
	db TransactionManager,
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	refundRepo RefundRetryRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
	refundHold time.Duration,
) *LifecycleService {
	return &LifecycleService{
		db:          db,
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		refundRepo:  refundRepo,
		logger:      logger,
		txTimeout:   txTimeout,
		refundHold:  refundHold,
		now:         time.Now,
	}
}

func (s *LifecycleService) begin(ctx context.Context) (*sql.Tx, context.Context, context.CancelFunc, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return tx, txCtx, cancel, nil
}

// checkTransition applies the authorization and graph rules in that order.
func checkTransition(b domain.Booking, next domain.BookingStatus, actor domain.Actor) error {
	if !actor.CanTransition(b, next) {
		return apperrors.NewForbiddenError("actor is not allowed to change this booking")
	}
	if b.Status == domain.BookingStatusCancelled && next == domain.BookingStatusCancelled {
		return apperrors.NewAlreadyCancelledError(b.ID)
	}
	if !b.Status.CanTransitionTo(next) {
		return apperrors.NewInvalidTransitionError(string(b.Status), string(next))
	}
	return nil
}

// Transition performs every non-cancel edge. Cancellation goes through Cancel
// because it also settles the refund.
func (s *LifecycleService) Transition(ctx context.Context, bookingID uint64, next domain.BookingStatus, actor domain.Actor) (*domain.Booking, error) {
	if next == domain.BookingStatusCancelled {
		c, err := s.Cancel(ctx, bookingID, actor, nil)
		if err != nil {
			return nil, err
		}
		return &c.Booking, nil
	}

	tx, txCtx, cancel, err := s.begin(ctx)
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Uint64("bookingId", bookingID), zap.Error(err))
		return nil, err
	}
	defer cancel()
	defer tx.Rollback()

	b, err := s.bookingRepo.FindByIDForUpdate(txCtx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(*b, next, actor); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.UpdateStatus(txCtx, tx, bookingID, next); err != nil {
		s.logger.Error("failed to update booking status", zap.Uint64("bookingId", bookingID), zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint64("bookingId", bookingID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("booking transitioned",
		zap.Uint64("bookingId", bookingID),
		zap.String("from", string(b.Status)),
		zap.String("to", string(next)),
		zap.String("actorRole", string(actor.Role)))

	b.Status = next
	b.UpdatedAt = s.now().UTC()
	return b, nil
}

// Cancel marks the booking cancelled, records the refund owed and, when a
// captured payment exists, queues the refund in the same transaction. The
// gateway is not called here.
func (s *LifecycleService) Cancel(ctx context.Context, bookingID uint64, actor domain.Actor, reason *string) (*Cancellation, error) {
	tx, txCtx, cancel, err := s.begin(ctx)
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Uint64("bookingId", bookingID), zap.Error(err))
		return nil, err
	}
	defer cancel()
	defer tx.Rollback()

	b, err := s.bookingRepo.FindByIDForUpdate(txCtx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(*b, domain.BookingStatusCancelled, actor); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	refund := domain.CalculateRefund(b.TotalPrice, b.CheckIn, now)

	if err := s.bookingRepo.MarkCancelled(txCtx, tx, bookingID, reason, now, refund); err != nil {
		s.logger.Error("failed to cancel booking", zap.Uint64("bookingId", bookingID), zap.Error(err))
		return nil, err
	}

	var retry *domain.RefundRetry
	if refund.IsPositive() {
		retry, err = s.queueRefund(txCtx, tx, bookingID, refund, now)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint64("bookingId", bookingID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.Uint64("bookingId", bookingID),
		zap.String("previousStatus", string(b.Status)),
		zap.String("refundAmount", refund.StringFixed(2)),
		zap.Bool("refundQueued", retry != nil))

	b.Status = domain.BookingStatusCancelled
	b.CancellationReason = reason
	b.CancelledAt = &now
	b.RefundAmount = decimal.NewNullDecimal(refund)
	b.UpdatedAt = now

	return &Cancellation{Booking: *b, RefundAmount: refund, Refund: retry}, nil
}

// queueRefund writes the outbox row for a captured payment. Bookings without a
// captured payment have nothing to return. The row becomes due only after
// refundHold, leaving the inline attempt to run alone.
func (s *LifecycleService) queueRefund(ctx context.Context, tx *sql.Tx, bookingID uint64, amount decimal.Decimal, now time.Time) (*domain.RefundRetry, error) {
	payment, err := s.paymentRepo.FindByBookingID(ctx, tx, bookingID)
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if payment.Status != domain.PaymentStatusCompleted {
		s.logger.Info("no captured payment to refund",
			zap.Uint64("bookingId", bookingID),
			zap.String("paymentStatus", string(payment.Status)))
		return nil, nil
	}

	retry := domain.RefundRetry{
		BookingID:      bookingID,
		TransactionID:  payment.TransactionID,
		Amount:         amount,
		IdempotencyKey: uuid.New().String(),
		Status:         domain.RefundStatusPending,
		NextAttemptAt:  now.Add(s.refundHold),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	id, err := s.refundRepo.Insert(ctx, tx, retry)
	if err != nil {
		s.logger.Error("failed to queue refund", zap.Uint64("bookingId", bookingID), zap.Error(err))
		return nil, err
	}
	retry.ID = id

	return &retry, nil
}

// ConfirmPayment records a captured payment and confirms its booking. A
// repeated callback for an already confirmed booking is a no-op.
func (s *LifecycleService) ConfirmPayment(ctx context.Context, transactionID string) (*domain.Booking, error) {
	tx, txCtx, cancel, err := s.begin(ctx)
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.String("transactionId", transactionID), zap.Error(err))
		return nil, err
	}
	defer cancel()
	defer tx.Rollback()

	payment, err := s.paymentRepo.FindByTransactionIDForUpdate(txCtx, tx, transactionID)
	if err != nil {
		return nil, err
	}

	b, err := s.bookingRepo.FindByIDForUpdate(txCtx, tx, payment.BookingID)
	if err != nil {
		return nil, err
	}

	if b.Status == domain.BookingStatusConfirmed && payment.Status == domain.PaymentStatusCompleted {
		return b, nil
	}

	if err := checkTransition(*b, domain.BookingStatusConfirmed, domain.SystemActor); err != nil {
		s.logger.Warn("payment captured for booking that cannot be confirmed",
			zap.Uint64("bookingId", b.ID),
			zap.String("status", string(b.Status)),
			zap.String("transactionId", transactionID))
		return nil, err
	}

	if err := s.paymentRepo.UpdateStatus(txCtx, tx, payment.ID, domain.PaymentStatusCompleted); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.UpdateStatus(txCtx, tx, b.ID, domain.BookingStatusConfirmed); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint64("bookingId", b.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("payment captured, booking confirmed", zap.Uint64("bookingId", b.ID))

	b.Status = domain.BookingStatusConfirmed
	b.UpdatedAt = s.now().UTC()
	return b, nil
}

var paymentFailedReason = "payment failed"

// FailPayment records a declined payment. A booking still waiting on it is
// cancelled without refund, which frees its units. A repeated callback is a
// no-op.
func (s *LifecycleService) FailPayment(ctx context.Context, transactionID string) (*domain.Booking, error) {
	tx, txCtx, cancel, err := s.begin(ctx)
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.String("transactionId", transactionID), zap.Error(err))
		return nil, err
	}
	defer cancel()
	defer tx.Rollback()

	payment, err := s.paymentRepo.FindByTransactionIDForUpdate(txCtx, tx, transactionID)
	if err != nil {
		return nil, err
	}

	b, err := s.bookingRepo.FindByIDForUpdate(txCtx, tx, payment.BookingID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case domain.PaymentStatusFailed:
		return b, nil
	case domain.PaymentStatusCompleted, domain.PaymentStatusRefunded:
		s.logger.Warn("failure reported for captured payment",
			zap.Uint64("bookingId", b.ID),
			zap.String("paymentStatus", string(payment.Status)),
			zap.String("transactionId", transactionID))
		return nil, apperrors.NewConflictError(apperrors.CodeInvalidTransition,
			fmt.Sprintf("payment is already %s", payment.Status))
	}

	if err := s.paymentRepo.UpdateStatus(txCtx, tx, payment.ID, domain.PaymentStatusFailed); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	release := b.Status == domain.BookingStatusPending
	if release {
		if err := checkTransition(*b, domain.BookingStatusCancelled, domain.SystemActor); err != nil {
			return nil, err
		}
		if err := s.bookingRepo.MarkCancelled(txCtx, tx, b.ID, &paymentFailedReason, now, decimal.Zero); err != nil {
			s.logger.Error("failed to cancel booking", zap.Uint64("bookingId", b.ID), zap.Error(err))
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint64("bookingId", b.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("payment failed",
		zap.Uint64("bookingId", b.ID),
		zap.String("transactionId", transactionID),
		zap.Bool("bookingReleased", release))

	if release {
		reason := paymentFailedReason
		b.Status = domain.BookingStatusCancelled
		b.CancellationReason = &reason
		b.CancelledAt = &now
		b.RefundAmount = decimal.NewNullDecimal(decimal.Zero)
		b.UpdatedAt = now
	}
	return b, nil
}
