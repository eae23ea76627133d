package dto

type CreateBookingRequest struct {
	RoomID          uint64  `json:"roomId" validate:"required,gt=0"`
	CheckIn         string  `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut        string  `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Guests          int     `json:"guests" validate:"required,min=1,max=100"`
	Units           int     `json:"units" validate:"required,min=1,max=50"`
	SpecialRequests *string `json:"specialRequests,omitempty" validate:"omitempty,max=1000"`
}

type TransitionBookingRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed checked_in checked_out cancelled"`
}

type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

const (
	PaymentEventSucceeded = "payment.succeeded"
	PaymentEventFailed    = "payment.failed"
)

type PaymentCallbackRequest struct {
	TransactionID string `json:"transactionId" validate:"required,max=255"`
	Event         string `json:"event" validate:"required,oneof=payment.succeeded payment.failed"`
}

type AvailabilityQuery struct {
	CheckIn  string `validate:"required,datetime=2006-01-02"`
	CheckOut string `validate:"required,datetime=2006-01-02"`
	Units    int    `validate:"min=1,max=50"`
}
