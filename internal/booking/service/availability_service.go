package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"staybook/internal/domain"
)

type AvailabilityService struct {
	db          TransactionManager
	roomRepo    RoomRepository
	bookingRepo BookingRepository
	logger      *zap.Logger
	timeout     time.Duration
}

func NewAvailabilityService(
	db TransactionManager,
	roomRepo RoomRepository,
	bookingRepo BookingRepository,
	logger *zap.Logger,
	timeout time.Duration,
) *AvailabilityService {
	return &AvailabilityService{
		db:          db,
		roomRepo:    roomRepo,
		bookingRepo: bookingRepo,
		logger:      logger,
		timeout:     timeout,
	}
}

// CheckAvailability answers from a consistent read-only snapshot. It takes no
// locks, so the answer may be stale by the time a reservation is attempted.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, roomID uint64, stay domain.DateRange, units int) (*domain.Availability, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.String("operation", "check_availability"), zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	room, err := s.roomRepo.FindByID(txCtx, tx, roomID)
	if err != nil {
		return nil, err
	}

	availability, err := availabilityInTx(txCtx, s.bookingRepo, tx, *room, stay, units)
	if err != nil {
		s.logger.Error("availability query failed", zap.Uint64("roomId", roomID), zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return availability, nil
}

// availabilityInTx computes availability with the reads issued on tx, so a
// caller holding the room lock sees exactly what it is about to write against.
func availabilityInTx(ctx context.Context, repo BookingRepository, tx *sql.Tx, room domain.Room, stay domain.DateRange, units int) (*domain.Availability, error) {
	overlapping, err := repo.FindOverlapping(ctx, tx, room.ID, stay)
	if err != nil {
		return nil, err
	}

	availability := domain.ComputeAvailability(room, stay, overlapping, units)
	return &availability, nil
}
