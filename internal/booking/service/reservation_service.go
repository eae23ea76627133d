package service

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"staybook/internal/domain"
	"staybook/internal/dto"
	apperrors "staybook/internal/errors"
)

type ReservationService struct {
	db             TransactionManager
	roomRepo       RoomRepository
	bookingRepo    BookingRepository
	paymentRepo    PaymentRepository
	gateway        PaymentGateway
	logger         *zap.Logger
	txTimeout      time.Duration
	paymentTimeout time.Duration
	now            func() time.Time
}

func NewReservationService(
	db TransactionManager,
	roomRepo RoomRepository,
	bookingRepo BookingRepository,
	paymentRepo PaymentRepository,
	gateway PaymentGateway,
	logger *zap.Logger,
	txTimeout time.Duration,
	paymentTimeout time.Duration,
) *ReservationService {
	return &ReservationService{
		db:             db,
		roomRepo:       roomRepo,
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		gateway:        gateway,
		logger:         logger,
		txTimeout:      txTimeout,
		paymentTimeout: paymentTimeout,
		now:            time.Now,
	}
}

// CreateReservation locks the room row, re-checks capacity and inventory,
// inserts a pending booking and opens a payment with the gateway, all in one
// transaction. Any failure, including the gateway call, leaves no booking behind.
// The room lock is held during the charge, bounded by paymentTimeout.
func (s *ReservationService) CreateReservation(ctx context.Context, in dto.CreateReservationInput) (*domain.Booking, error) {
	// Bloque 1: Iniciar transacción con timeout
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Uint64("roomId", in.RoomID), zap.Error(err))
		return nil, err
	}
	// Ensure rollback on any exit path. MySQL ignores rollback if already committed.
	defer tx.Rollback()

	// Bloque 2: Lock de la habitación y validaciones de negocio
	room, err := s.roomRepo.FindByIDForUpdate(txCtx, tx, in.RoomID)
	if err != nil {
		return nil, err
	}

	if !room.IsActive {
		return nil, apperrors.NewConflictError(apperrors.CodeRoomUnavailable, "room is not available for booking")
	}

	if limit := room.MaxGuests(in.Units); in.Guests > limit {
		return nil, apperrors.NewCapacityExceededError(in.Guests, limit)
	}

	availability, err := availabilityInTx(txCtx, s.bookingRepo, tx, *room, in.Stay, in.Units)
	if err != nil {
		s.logger.Error("availability query failed", zap.Uint64("roomId", in.RoomID), zap.Error(err))
		return nil, err
	}

	if !availability.Available {
		s.logger.Info("insufficient inventory",
			zap.Uint64("roomId", in.RoomID),
			zap.Int("requested", in.Units),
			zap.Int("unitsFree", availability.UnitsFree))
		return nil, apperrors.NewInsufficientInventoryError(in.Units, availability.UnitsFree)
	}

	// Bloque 3: Insertar reserva pendiente
	now := s.now().UTC()
	booking := domain.Booking{
		RoomID:          in.RoomID,
		UserID:          in.UserID,
		CheckIn:         in.Stay.CheckIn,
		CheckOut:        in.Stay.CheckOut,
		Guests:          in.Guests,
		Units:           in.Units,
		TotalPrice:      room.PriceFor(in.Stay.Nights(), in.Units),
		Status:          domain.BookingStatusPending,
		SpecialRequests: in.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	bookingID, err := s.bookingRepo.Insert(txCtx, tx, booking)
	if err != nil {
		s.logger.Error("failed to insert booking", zap.Uint64("roomId", in.RoomID), zap.Error(err))
		return nil, err
	}
	booking.ID = bookingID

	// Bloque 4: Cobro en el gateway; un fallo revierte la reserva
	chargeCtx, cancelCharge := context.WithTimeout(txCtx, s.paymentTimeout)
	transactionID, err := s.gateway.Charge(chargeCtx, booking.TotalPrice, map[string]string{
		"bookingId": strconv.FormatUint(bookingID, 10),
		"roomId":    strconv.FormatUint(in.RoomID, 10),
		"userId":    strconv.FormatUint(in.UserID, 10),
	}, in.IdempotencyKey)
	cancelCharge()
	if err != nil {
		s.logger.Warn("payment charge failed, rolling back booking",
			zap.Uint64("bookingId", bookingID),
			zap.Uint64("roomId", in.RoomID),
			zap.Error(err))
		return nil, apperrors.NewGatewayError("charge", err)
	}

	_, err = s.paymentRepo.Insert(txCtx, tx, domain.Payment{
		BookingID:     bookingID,
		Amount:        booking.TotalPrice,
		Currency:      s.gateway.Currency(),
		TransactionID: transactionID,
		Status:        domain.PaymentStatusPending,
	})
	if err != nil {
		s.logger.Error("failed to insert payment", zap.Uint64("bookingId", bookingID), zap.Error(err))
		s.releaseCharge(ctx, bookingID, transactionID, booking.TotalPrice, in.IdempotencyKey, err)
		return nil, err
	}

	// Bloque 5: Commit
	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Uint64("bookingId", bookingID), zap.Error(err))
		s.releaseCharge(ctx, bookingID, transactionID, booking.TotalPrice, in.IdempotencyKey, err)
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Uint64("bookingId", bookingID),
		zap.Uint64("roomId", in.RoomID),
		zap.Int("units", in.Units),
		zap.String("totalPrice", booking.TotalPrice.StringFixed(2)))

	return &booking, nil
}

// releaseCharge voids a charge whose booking was rolled back. Lock conflicts
// are left alone: the retried transaction replays the charge under the same
// idempotency key and records it.
func (s *ReservationService) releaseCharge(ctx context.Context, bookingID uint64, transactionID string, amount decimal.Decimal, chargeKey string, cause error) {
	s.logger.Error("charge not recorded",
		zap.Uint64("bookingId", bookingID),
		zap.String("transactionId", transactionID),
		zap.String("amount", amount.StringFixed(2)),
		zap.Error(cause))

	if apperrors.IsLockConflict(cause) {
		return
	}

	voidCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.paymentTimeout)
	defer cancel()

	refundID, err := s.gateway.Refund(voidCtx, transactionID, amount, "void-"+chargeKey)
	if err != nil {
		s.logger.Error("failed to void unrecorded charge",
			zap.Uint64("bookingId", bookingID),
			zap.String("transactionId", transactionID),
			zap.Error(err))
		return
	}

	s.logger.Warn("unrecorded charge voided",
		zap.Uint64("bookingId", bookingID),
		zap.String("transactionId", transactionID),
		zap.String("refundId", refundID))
}
