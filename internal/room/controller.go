package room

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperrors "staybook/internal/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Controller struct {
	useCase SearchUseCase
	logger  *zap.Logger
}

func NewController(useCase SearchUseCase, logger *zap.Logger) *Controller {
	return &Controller{
		useCase: useCase,
		logger:  logger,
	}
}

// HandleSearchRooms handles GET /rooms/available.
func (c *Controller) HandleSearchRooms(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	q := r.URL.Query()

	req := SearchRoomsRequest{
		CheckIn:  q.Get("checkIn"),
		CheckOut: q.Get("checkOut"),
	}

	var details []apperrors.ValidationDetail
	parseInt := func(name string, dst *int) {
		raw := q.Get(name)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			details = append(details, apperrors.ValidationDetail{Field: name, Message: name + " must be an integer"})
			return
		}
		*dst = n
	}
	parseInt("guests", &req.Guests)
	parseInt("units", &req.Units)
	parseInt("limit", &req.Limit)

	if raw := q.Get("hotelId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			details = append(details, apperrors.ValidationDetail{Field: "hotelId", Message: "hotelId must be a positive integer"})
		}
		req.HotelID = id
	}

	if len(details) > 0 {
		c.writeError(w, traceID, http.StatusBadRequest, apperrors.CodeValidation, "validation failed", details)
		return
	}

	resp, err := c.useCase.SearchRooms(r.Context(), req)
	if err != nil {
		if ve, ok := apperrors.IsValidationError(err); ok {
			c.writeError(w, traceID, http.StatusBadRequest, ve.Code, ve.Message, ve.Details)
			return
		}
		c.logger.Error("search rooms failed", zap.String("traceId", traceID), zap.Error(err))
		c.writeError(w, traceID, http.StatusInternalServerError, apperrors.CodeInternal, "an unexpected error occurred", nil)
		return
	}

	c.writeJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	TraceID string                       `json:"traceId"`
	Code    string                       `json:"code"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details,omitempty"`
}

func (c *Controller) writeError(w http.ResponseWriter, traceID string, status int, code, message string, details []apperrors.ValidationDetail) {
	c.writeJSON(w, status, errorResponse{
		TraceID: traceID,
		Code:    code,
		Message: message,
		Details: details,
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
