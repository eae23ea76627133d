package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"staybook/internal/domain"
	"staybook/internal/dto"
	apperrors "staybook/internal/errors"
	"staybook/internal/validation"
)

type ReservationService interface {
	CreateReservation(ctx context.Context, in dto.CreateReservationInput) (*domain.Booking, error)
}

type AvailabilityService interface {
	CheckAvailability(ctx context.Context, roomID uint64, stay domain.DateRange, units int) (*domain.Availability, error)
}

type Notifier interface {
	Publish(ctx context.Context, event domain.BookingEvent) error
}

type CreateReservationUseCase struct {
	reservationSvc  ReservationService
	availabilitySvc AvailabilityService
	notifier        Notifier
	logger          *zap.Logger
	retrier         deadlockRetrier
	maxStayNights   int
	now             func() time.Time
}

func NewCreateReservationUseCase(
	reservationSvc ReservationService,
	availabilitySvc AvailabilityService,
	notifier Notifier,
	logger *zap.Logger,
	maxRetryAttempts int,
	maxStayNights int,
) *CreateReservationUseCase {
	return &CreateReservationUseCase{
		reservationSvc:  reservationSvc,
		availabilitySvc: availabilitySvc,
		notifier:        notifier,
		logger:          logger,
		retrier:         newDeadlockRetrier(maxRetryAttempts, logger),
		maxStayNights:   maxStayNights,
		now:             time.Now,
	}
}

func (uc *CreateReservationUseCase) CreateReservation(ctx context.Context, in dto.CreateReservationInput) (*domain.Booking, error) {
	// Bloque 1: Logging de inicio
	uc.logger.Info("create reservation started",
		zap.Uint64("roomId", in.RoomID),
		zap.Uint64("userId", in.UserID),
		zap.Int("units", in.Units),
		zap.Int("guests", in.Guests))

	// Bloque 2: Pre-validaciones (fuera de transacción)
	if err := uc.prevalidate(&in); err != nil {
		return nil, err
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.New().String()
	}

	// Bloque 3: Llamar service con retry
	var booking *domain.Booking
	err := uc.retrier.run(ctx, "create_reservation", func() error {
		var err error
		booking, err = uc.reservationSvc.CreateReservation(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Bloque 4: Notificación (fire-and-forget)
	publish(ctx, uc.notifier, uc.logger, *booking)

	return booking, nil
}

func (uc *CreateReservationUseCase) prevalidate(in *dto.CreateReservationInput) error {
	var details []apperrors.ValidationDetail
	if in.RoomID == 0 {
		details = append(details, apperrors.ValidationDetail{Field: "roomId", Message: "roomId must be a positive integer"})
	}
	if in.Guests < 1 {
		details = append(details, apperrors.ValidationDetail{Field: "guests", Message: "guests must be at least 1"})
	}
	if in.Units < 1 {
		details = append(details, apperrors.ValidationDetail{Field: "units", Message: "units must be at least 1"})
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}

	stay, err := validation.CheckStay(domain.NewDateRange(in.Stay.CheckIn, in.Stay.CheckOut), uc.now().UTC(), uc.maxStayNights)
	if err != nil {
		return err
	}
	in.Stay = stay

	return nil
}

// CheckAvailability reports whether units can be booked for the stay right now.
func (uc *CreateReservationUseCase) CheckAvailability(ctx context.Context, roomID uint64, stay domain.DateRange, units int) (*dto.AvailabilityResult, error) {
	if units < 1 {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field: "units", Message: "units must be at least 1",
		})
	}

	stay = domain.NewDateRange(stay.CheckIn, stay.CheckOut)
	if !stay.Valid() {
		return nil, apperrors.NewDateRangeError("checkOut must be after checkIn", apperrors.ValidationDetail{
			Field: "checkOut", Message: "checkOut must be after checkIn",
		})
	}

	availability, err := uc.availabilitySvc.CheckAvailability(ctx, roomID, stay, units)
	if err != nil {
		return nil, err
	}

	return &dto.AvailabilityResult{
		RoomID:      availability.RoomID,
		Available:   availability.Available,
		UnitsFree:   availability.UnitsFree,
		UnitsBooked: availability.UnitsBooked,
		Inventory:   availability.TotalInventory,
		Conflicts:   availability.Conflicts,
	}, nil
}
