package dto

import (
	"github.com/shopspring/decimal"

	"staybook/internal/domain"
)

type CreateReservationInput struct {
	RoomID          uint64
	UserID          uint64
	Stay            domain.DateRange
	Guests          int
	Units           int
	SpecialRequests *string
	// IdempotencyKey is sent with the charge so retried attempts reuse one payment.
	IdempotencyKey string
}

type AvailabilityResult struct {
	RoomID      uint64
	Available   bool
	UnitsFree   int
	UnitsBooked int
	Inventory   int
	Conflicts   []domain.Booking
}

type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundProcessed RefundStatus = "processed"
	RefundQueued    RefundStatus = "queued"
)

type CancellationResult struct {
	Booking      domain.Booking
	RefundAmount decimal.Decimal
	RefundStatus RefundStatus
}
