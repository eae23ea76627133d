package dto

import (
	"time"

	"staybook/internal/domain"
	apperrors "staybook/internal/errors"
)

type BookingResponse struct {
	TraceID            string     `json:"traceId"`
	ID                 uint64     `json:"id"`
	RoomID             uint64     `json:"roomId"`
	UserID             uint64     `json:"userId"`
	CheckIn            string     `json:"checkIn"`
	CheckOut           string     `json:"checkOut"`
	Guests             int        `json:"guests"`
	Units              int        `json:"units"`
	TotalPrice         string     `json:"totalPrice"`
	Status             string     `json:"status"`
	SpecialRequests    *string    `json:"specialRequests,omitempty"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	RefundAmount       *string    `json:"refundAmount,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
}

func NewBookingResponse(traceID string, b domain.Booking) BookingResponse {
	resp := BookingResponse{
		TraceID:            traceID,
		ID:                 b.ID,
		RoomID:             b.RoomID,
		UserID:             b.UserID,
		CheckIn:            b.CheckIn.Format(domain.DateLayout),
		CheckOut:           b.CheckOut.Format(domain.DateLayout),
		Guests:             b.Guests,
		Units:              b.Units,
		TotalPrice:         b.TotalPrice.StringFixed(2),
		Status:             string(b.Status),
		SpecialRequests:    b.SpecialRequests,
		CancellationReason: b.CancellationReason,
		CancelledAt:        b.CancelledAt,
		Timestamp:          time.Now().UTC(),
	}
	if b.RefundAmount.Valid {
		refund := b.RefundAmount.Decimal.StringFixed(2)
		resp.RefundAmount = &refund
	}
	return resp
}

type CancellationResponse struct {
	Booking      BookingResponse `json:"booking"`
	RefundAmount string          `json:"refundAmount"`
	RefundStatus string          `json:"refundStatus"`
}

type ConflictingBookingDTO struct {
	BookingID uint64 `json:"bookingId"`
	CheckIn   string `json:"checkIn"`
	CheckOut  string `json:"checkOut"`
	Units     int    `json:"units"`
	Status    string `json:"status"`
}

type AvailabilityResponse struct {
	TraceID     string                  `json:"traceId"`
	RoomID      uint64                  `json:"roomId"`
	CheckIn     string                  `json:"checkIn"`
	CheckOut    string                  `json:"checkOut"`
	Units       int                     `json:"units"`
	Available   bool                    `json:"available"`
	UnitsFree   int                     `json:"unitsFree"`
	UnitsBooked int                     `json:"unitsBooked"`
	Inventory   int                     `json:"inventory"`
	Conflicts   []ConflictingBookingDTO `json:"conflicts"`
	Timestamp   time.Time               `json:"timestamp"`
}

type ErrorResponse struct {
	TraceID   string                       `json:"traceId"`
	Status    int                          `json:"status"`
	Code      string                       `json:"code"`
	Message   string                       `json:"message"`
	BookingID uint64                       `json:"bookingId,omitempty"`
	Details   []apperrors.ValidationDetail `json:"details,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}
