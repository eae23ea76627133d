package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"staybook/internal/domain"
	"staybook/internal/dto"
	apperrors "staybook/internal/errors"
	"staybook/internal/middleware"
	"staybook/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationUseCase interface {
	CreateReservation(ctx context.Context, in dto.CreateReservationInput) (*domain.Booking, error)
	CheckAvailability(ctx context.Context, roomID uint64, stay domain.DateRange, units int) (*dto.AvailabilityResult, error)
}

type LifecycleUseCase interface {
	GetBooking(ctx context.Context, bookingID uint64, actor domain.Actor) (*domain.Booking, error)
	TransitionBooking(ctx context.Context, bookingID uint64, next domain.BookingStatus, actor domain.Actor) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID uint64, actor domain.Actor, reason *string) (*dto.CancellationResult, error)
	ConfirmPayment(ctx context.Context, transactionID string) (*domain.Booking, error)
	FailPayment(ctx context.Context, transactionID string) (*domain.Booking, error)
}

type BookingController struct {
	reservations ReservationUseCase
	lifecycle    LifecycleUseCase
	logger       *zap.Logger
}

func NewBookingController(reservations ReservationUseCase, lifecycle LifecycleUseCase, logger *zap.Logger) *BookingController {
	return &BookingController{
		reservations: reservations,
		lifecycle:    lifecycle,
		logger:       logger,
	}
}

// CreateBooking handles POST /bookings.
func (c *BookingController) CreateBooking(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := c.requireActor(w, r, traceID)
	if !ok {
		return
	}

	var req dto.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := validation.Struct(req); err != nil {
		c.handleUseCaseError(w, traceID, 0, err, logger)
		return
	}

	// datetime tags already guarantee the format
	checkIn, _ := domain.ParseDate(req.CheckIn)
	checkOut, _ := domain.ParseDate(req.CheckOut)

	booking, err := c.reservations.CreateReservation(r.Context(), dto.CreateReservationInput{
		RoomID:          req.RoomID,
		UserID:          actor.ID,
		Stay:            domain.NewDateRange(checkIn, checkOut),
		Guests:          req.Guests,
		Units:           req.Units,
		SpecialRequests: req.SpecialRequests,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		c.handleUseCaseError(w, traceID, 0, err, logger.With(zap.Uint64("roomId", req.RoomID)))
		return
	}

	c.writeJSON(w, http.StatusCreated, dto.NewBookingResponse(traceID, *booking))
}

// GetBooking handles GET /bookings/{bookingId}.
func (c *BookingController) GetBooking(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := c.requireActor(w, r, traceID)
	if !ok {
		return
	}
	bookingID, ok := c.pathID(w, r, traceID, "bookingId")
	if !ok {
		return
	}

	booking, err := c.lifecycle.GetBooking(r.Context(), bookingID, actor)
	if err != nil {
		c.handleUseCaseError(w, traceID, bookingID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.NewBookingResponse(traceID, *booking))
}

// TransitionBooking handles PATCH /bookings/{bookingId}/status.
func (c *BookingController) TransitionBooking(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := c.requireActor(w, r, traceID)
	if !ok {
		return
	}
	bookingID, ok := c.pathID(w, r, traceID, "bookingId")
	if !ok {
		return
	}

	var req dto.TransitionBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}
	if err := validation.Struct(req); err != nil {
		c.handleUseCaseError(w, traceID, bookingID, err, logger)
		return
	}

	booking, err := c.lifecycle.TransitionBooking(r.Context(), bookingID, domain.BookingStatus(req.Status), actor)
	if err != nil {
		c.handleUseCaseError(w, traceID, bookingID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.NewBookingResponse(traceID, *booking))
}

// CancelBooking handles POST /bookings/{bookingId}/cancel. The body is optional.
func (c *BookingController) CancelBooking(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := c.requireActor(w, r, traceID)
	if !ok {
		return
	}
	bookingID, ok := c.pathID(w, r, traceID, "bookingId")
	if !ok {
		return
	}

	var req dto.CancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}
	if err := validation.Struct(req); err != nil {
		c.handleUseCaseError(w, traceID, bookingID, err, logger)
		return
	}

	result, err := c.lifecycle.CancelBooking(r.Context(), bookingID, actor, req.Reason)
	if err != nil {
		c.handleUseCaseError(w, traceID, bookingID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.CancellationResponse{
		Booking:      dto.NewBookingResponse(traceID, result.Booking),
		RefundAmount: result.RefundAmount.StringFixed(2),
		RefundStatus: string(result.RefundStatus),
	})
}

// CheckAvailability handles GET /rooms/{roomId}/availability?checkIn=&checkOut=&units=.
func (c *BookingController) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	roomID, ok := c.pathID(w, r, traceID, "roomId")
	if !ok {
		return
	}

	q := dto.AvailabilityQuery{
		CheckIn:  r.URL.Query().Get("checkIn"),
		CheckOut: r.URL.Query().Get("checkOut"),
		Units:    1,
	}
	if raw := r.URL.Query().Get("units"); raw != "" {
		units, err := strconv.Atoi(raw)
		if err != nil {
			c.writeValidationError(w, traceID, "validation failed", apperrors.ValidationDetail{
				Field:   "units",
				Message: "units must be an integer",
			})
			return
		}
		q.Units = units
	}
	if err := validation.Struct(q); err != nil {
		c.handleUseCaseError(w, traceID, 0, err, logger)
		return
	}

	checkIn, _ := domain.ParseDate(q.CheckIn)
	checkOut, _ := domain.ParseDate(q.CheckOut)
	stay := domain.NewDateRange(checkIn, checkOut)

	result, err := c.reservations.CheckAvailability(r.Context(), roomID, stay, q.Units)
	if err != nil {
		c.handleUseCaseError(w, traceID, 0, err, logger.With(zap.Uint64("roomId", roomID)))
		return
	}

	conflicts := make([]dto.ConflictingBookingDTO, len(result.Conflicts))
	for i, b := range result.Conflicts {
		conflicts[i] = dto.ConflictingBookingDTO{
			BookingID: b.ID,
			CheckIn:   b.CheckIn.Format(domain.DateLayout),
			CheckOut:  b.CheckOut.Format(domain.DateLayout),
			Units:     b.Units,
			Status:    string(b.Status),
		}
	}

	c.writeJSON(w, http.StatusOK, dto.AvailabilityResponse{
		TraceID:     traceID,
		RoomID:      result.RoomID,
		CheckIn:     q.CheckIn,
		CheckOut:    q.CheckOut,
		Units:       q.Units,
		Available:   result.Available,
		UnitsFree:   result.UnitsFree,
		UnitsBooked: result.UnitsBooked,
		Inventory:   result.Inventory,
		Conflicts:   conflicts,
		Timestamp:   time.Now().UTC(),
	})
}

// PaymentCallback handles POST /payments/callback from the gateway.
func (c *BookingController) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.PaymentCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}
	if err := validation.Struct(req); err != nil {
		c.handleUseCaseError(w, traceID, 0, err, logger)
		return
	}

	settle := c.lifecycle.ConfirmPayment
	if req.Event == dto.PaymentEventFailed {
		settle = c.lifecycle.FailPayment
	}

	booking, err := settle(r.Context(), req.TransactionID)
	if err != nil {
		c.handleUseCaseError(w, traceID, 0, err, logger.With(zap.String("transactionId", req.TransactionID)))
		return
	}

	c.writeJSON(w, http.StatusOK, dto.NewBookingResponse(traceID, *booking))
}

func (c *BookingController) requireActor(w http.ResponseWriter, r *http.Request, traceID string) (domain.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, 0, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
		return domain.Actor{}, false
	}
	return actor, true
}

func (c *BookingController) pathID(w http.ResponseWriter, r *http.Request, traceID, param string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
	if err != nil || id == 0 {
		c.writeValidationError(w, traceID, "invalid "+param, apperrors.ValidationDetail{
			Field:   param,
			Message: param + " must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func (c *BookingController) handleUseCaseError(w http.ResponseWriter, traceID string, bookingID uint64, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeErrorResponse(w, traceID, bookingID, http.StatusBadRequest, ve.Code, ve.Message, ve.Details)
		return
	}

	if nfe, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, bookingID, http.StatusNotFound, nfe.Code, nfe.Message, nil)
		return
	}

	if ce, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, bookingID, http.StatusConflict, ce.Code, ce.Message, nil)
		return
	}

	if fe, ok := apperrors.IsForbiddenError(err); ok {
		c.writeErrorResponse(w, traceID, bookingID, http.StatusForbidden, fe.Code, fe.Message, nil)
		return
	}

	if _, ok := apperrors.IsDeadlockError(err); ok {
		logger.Warn("gave up after repeated deadlocks", zap.Uint64("bookingId", bookingID), zap.Error(err))
		c.writeErrorResponse(w, traceID, bookingID, http.StatusConflict, apperrors.CodeDeadlock, err.Error(), nil)
		return
	}

	if _, ok := apperrors.IsGatewayError(err); ok {
		logger.Error("payment gateway failure", zap.Uint64("bookingId", bookingID), zap.Error(err))
		c.writeErrorResponse(w, traceID, bookingID, http.StatusBadGateway, apperrors.CodeGatewayError, "payment provider unavailable, nothing was booked", nil)
		return
	}

	logger.Error("unexpected error", zap.Uint64("bookingId", bookingID), zap.Error(err))
	c.writeErrorResponse(w, traceID, bookingID, http.StatusInternalServerError, apperrors.CodeInternal, "an unexpected error occurred", nil)
}

func (c *BookingController) writeErrorResponse(w http.ResponseWriter, traceID string, bookingID uint64, statusCode int, code string, message string, details []apperrors.ValidationDetail) {
	response := dto.ErrorResponse{
		TraceID:   traceID,
		Status:    statusCode,
		Code:      code,
		Message:   message,
		BookingID: bookingID,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}

	c.writeJSON(w, statusCode, response)
}

func (c *BookingController) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	c.writeErrorResponse(w, traceID, 0, http.StatusBadRequest, apperrors.CodeValidation, message, details)
}

func (c *BookingController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
