package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	FullRefundNotice    = 7 * 24 * time.Hour
	PartialRefundNotice = 72 * time.Hour
)

var (
	fullRefundPercent    = decimal.NewFromInt(100)
	partialRefundPercent = decimal.NewFromInt(50)
	hundred              = decimal.NewFromInt(100)
)

// RefundPercent returns the share of the booking price returned when the
// booking is cancelled at cancelledAt. checkIn is taken as midnight UTC.
func RefundPercent(checkIn, cancelledAt time.Time) decimal.Decimal {
	notice := TruncateToDate(checkIn).Sub(cancelledAt)
	switch {
	case notice > FullRefundNotice:
		return fullRefundPercent
	case notice > PartialRefundNotice:
		return partialRefundPercent
	default:
		return decimal.Zero
	}
}

// CalculateRefund applies RefundPercent to total, rounded half-up to cents.
func CalculateRefund(total decimal.Decimal, checkIn, cancelledAt time.Time) decimal.Decimal {
	return total.Mul(RefundPercent(checkIn, cancelledAt)).Div(hundred).Round(2)
}
