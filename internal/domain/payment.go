package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID            uint64
	BookingID     uint64
	Amount        decimal.Decimal
	Currency      string
	TransactionID string
	Status        PaymentStatus
	RefundAmount  decimal.NullDecimal
	RefundID      *string
	RefundedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusProcessed RefundStatus = "processed"
	RefundStatusFailed    RefundStatus = "failed"
)

// RefundRetry is an outbox row for a refund that still has to reach the gateway.
type RefundRetry struct {
	ID             uint64
	BookingID      uint64
	TransactionID  string
	Amount         decimal.Decimal
	IdempotencyKey string
	Status         RefundStatus
	Attempts       int
	LastError      *string
	NextAttemptAt  time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ErrRefundNotPending is returned when a refund row was already settled by
// another attempt.
var ErrRefundNotPending = errors.New("refund retry is no longer pending")

const (
	refundRetryBaseDelay = 30 * time.Second
	refundRetryMaxDelay  = 30 * time.Minute
)

// NextRefundAttempt doubles the wait after every failed attempt, capped at 30 minutes.
func NextRefundAttempt(now time.Time, attempts int) time.Time {
	delay := refundRetryBaseDelay
	for i := 1; i < attempts && delay < refundRetryMaxDelay; i++ {
		delay *= 2
	}
	if delay > refundRetryMaxDelay {
		delay = refundRetryMaxDelay
	}
	return now.Add(delay)
}
