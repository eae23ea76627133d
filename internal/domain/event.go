package domain

import "time"

type BookingEventType string

const (
	BookingEventCreated    BookingEventType = "booking.created"
	BookingEventConfirmed  BookingEventType = "booking.confirmed"
	BookingEventCheckedIn  BookingEventType = "booking.checked_in"
	BookingEventCheckedOut BookingEventType = "booking.checked_out"
	BookingEventCancelled  BookingEventType = "booking.cancelled"
)

var eventByStatus = map[BookingStatus]BookingEventType{
	BookingStatusPending:    BookingEventCreated,
	BookingStatusConfirmed:  BookingEventConfirmed,
	BookingStatusCheckedIn:  BookingEventCheckedIn,
	BookingStatusCheckedOut: BookingEventCheckedOut,
	BookingStatusCancelled:  BookingEventCancelled,
}

type BookingEvent struct {
	Type         BookingEventType `json:"type"`
	BookingID    uint64           `json:"bookingId"`
	RoomID       uint64           `json:"roomId"`
	UserID       uint64           `json:"userId"`
	Status       BookingStatus    `json:"status"`
	CheckIn      string           `json:"checkIn"`
	CheckOut     string           `json:"checkOut"`
	TotalPrice   string           `json:"totalPrice"`
	RefundAmount string           `json:"refundAmount,omitempty"`
	OccurredAt   time.Time        `json:"occurredAt"`
}

// NewBookingEvent describes b in its current status.
func NewBookingEvent(b Booking, at time.Time) BookingEvent {
	ev := BookingEvent{
		Type:       eventByStatus[b.Status],
		BookingID:  b.ID,
		RoomID:     b.RoomID,
		UserID:     b.UserID,
		Status:     b.Status,
		CheckIn:    b.CheckIn.Format(DateLayout),
		CheckOut:   b.CheckOut.Format(DateLayout),
		TotalPrice: b.TotalPrice.StringFixed(2),
		OccurredAt: at.UTC(),
	}
	if b.RefundAmount.Valid {
		ev.RefundAmount = b.RefundAmount.Decimal.StringFixed(2)
	}
	return ev
}
