package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type RoomRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Room, error)
	FindByID(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Room, error)
}

type BookingRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, b domain.Booking) (uint64, error)
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Booking, error)
	FindOverlapping(ctx context.Context, tx *sql.Tx, roomID uint64, stay domain.DateRange) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uint64, status domain.BookingStatus) error
	MarkCancelled(ctx context.Context, tx *sql.Tx, id uint64, reason *string, cancelledAt time.Time, refund decimal.Decimal) error
}

type PaymentRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, p domain.Payment) (uint64, error)
	FindByBookingID(ctx context.Context, tx *sql.Tx, bookingID uint64) (*domain.Payment, error)
	FindByTransactionIDForUpdate(ctx context.Context, tx *sql.Tx, transactionID string) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uint64, status domain.PaymentStatus) error
	MarkRefunded(ctx context.Context, tx *sql.Tx, bookingID uint64, amount decimal.Decimal, refundID string, refundedAt time.Time) error
}

type RefundRetryRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, rr domain.RefundRetry) (uint64, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]domain.RefundRetry, error)
	MarkProcessed(ctx context.Context, tx *sql.Tx, id uint64) error
	RecordFailure(ctx context.Context, id uint64, attempts int, lastError string, nextAttemptAt time.Time, status domain.RefundStatus) error
}

// PaymentGateway is the external charge/refund provider.
type PaymentGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, metadata map[string]string, idempotencyKey string) (string, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal, idempotencyKey string) (string, error)
	Currency() string
}
