package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"staybook/internal/domain"
	apperrors "staybook/internal/errors"
)

// RefundService pushes queued refunds to the gateway. A refund row stays
// pending until the gateway accepts it or MaxAttempts is reached.
type RefundService struct {
	db          TransactionManager
	refundRepo  RefundRetryRepository
	paymentRepo PaymentRepository
	gateway     PaymentGateway
	logger      *zap.Logger
	timeout     time.Duration
	maxAttempts int
	batchSize   int
	now         func() time.Time
}

func NewRefundService(
	db TransactionManager,
	refundRepo RefundRetryRepository,
	paymentRepo PaymentRepository,
	gateway PaymentGateway,
	logger *zap.Logger,
	timeout time.Duration,
	maxAttempts int,
	batchSize int,
) *RefundService {
	return &RefundService{
		db:          db,
		refundRepo:  refundRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		logger:      logger,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		now:         time.Now,
	}
}

// Attempt sends one refund. On a gateway failure the row is rescheduled and
// a GatewayError is returned; the cancellation that queued it stays committed.
func (s *RefundService) Attempt(ctx context.Context, rr domain.RefundRetry) error {
	refundCtx, cancel := context.WithTimeout(ctx, s.timeout)
	refundID, err := s.gateway.Refund(refundCtx, rr.TransactionID, rr.Amount, rr.IdempotencyKey)
	cancel()

	if err != nil {
		s.recordFailure(ctx, rr, err)
		return apperrors.NewGatewayError("refund", err)
	}

	if err := s.markRefunded(ctx, rr, refundID); err != nil {
		if errors.Is(err, domain.ErrRefundNotPending) {
			s.logger.Info("refund already settled",
				zap.Uint64("bookingId", rr.BookingID),
				zap.Uint64("refundRetryId", rr.ID))
			return nil
		}
		// The gateway has the refund; the idempotency key makes the next attempt a replay.
		s.logger.Error("refund sent but not recorded",
			zap.Uint64("bookingId", rr.BookingID),
			zap.Uint64("refundRetryId", rr.ID),
			zap.Error(err))
		return err
	}

	s.logger.Info("refund processed",
		zap.Uint64("bookingId", rr.BookingID),
		zap.String("amount", rr.Amount.StringFixed(2)),
		zap.String("refundId", refundID),
		zap.Int("attempt", rr.Attempts+1))

	return nil
}

func (s *RefundService) recordFailure(ctx context.Context, rr domain.RefundRetry, cause error) {
	attempts := rr.Attempts + 1
	status := domain.RefundStatusPending
	if attempts >= s.maxAttempts {
		status = domain.RefundStatusFailed
	}
	next := domain.NextRefundAttempt(s.now().UTC(), attempts)

	s.logger.Warn("refund attempt failed",
		zap.Uint64("bookingId", rr.BookingID),
		zap.Uint64("refundRetryId", rr.ID),
		zap.Int("attempt", attempts),
		zap.String("status", string(status)),
		zap.Time("nextAttemptAt", next),
		zap.Error(cause))

	err := s.refundRepo.RecordFailure(ctx, rr.ID, attempts, cause.Error(), next, status)
	if errors.Is(err, domain.ErrRefundNotPending) {
		s.logger.Info("refund settled by another attempt", zap.Uint64("refundRetryId", rr.ID))
		return
	}
	if err != nil {
		s.logger.Error("failed to record refund failure", zap.Uint64("refundRetryId", rr.ID), zap.Error(err))
	}
}

func (s *RefundService) markRefunded(ctx context.Context, rr domain.RefundRetry, refundID string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.refundRepo.MarkProcessed(ctx, tx, rr.ID); err != nil {
		return err
	}

	if err := s.paymentRepo.MarkRefunded(ctx, tx, rr.BookingID, rr.Amount, refundID, s.now().UTC()); err != nil {
		return err
	}

	return tx.Commit()
}

// ProcessDue attempts every refund whose retry time has come, up to batchSize.
func (s *RefundService) ProcessDue(ctx context.Context) (processed int, failed int, err error) {
	due, err := s.refundRepo.FindDue(ctx, s.now().UTC(), s.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, rr := range due {
		if ctx.Err() != nil {
			return processed, failed, ctx.Err()
		}
		if err := s.Attempt(ctx, rr); err != nil {
			failed++
			continue
		}
		processed++
	}

	return processed, failed, nil
}
