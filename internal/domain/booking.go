package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusCheckedIn  BookingStatus = "checked_in"
	BookingStatusCheckedOut BookingStatus = "checked_out"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// bookingTransitions lists every legal edge of the booking lifecycle.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCheckedIn, BookingStatusCancelled},
	BookingStatusCheckedIn: {BookingStatusCheckedOut},
}

func ParseBookingStatus(s string) (BookingStatus, bool) {
	status := BookingStatus(s)
	if !status.Valid() {
		return "", false
	}
	return status, true
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCheckedIn,
		BookingStatusCheckedOut, BookingStatusCancelled:
		return true
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCheckedOut || s == BookingStatusCancelled
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Booking struct {
	ID                 uint64
	RoomID             uint64
	UserID             uint64
	CheckIn            time.Time
	CheckOut           time.Time
	Guests             int
	Units              int
	TotalPrice         decimal.Decimal
	Status             BookingStatus
	SpecialRequests    *string
	CancellationReason *string
	CancelledAt        *time.Time
	RefundAmount       decimal.NullDecimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (b Booking) Stay() DateRange {
	return DateRange{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// HoldsInventory is true for every status except cancelled; pending bookings
// keep their units until they are cancelled.
func (b Booking) HoldsInventory() bool {
	return b.Status != BookingStatusCancelled
}
