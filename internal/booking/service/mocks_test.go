package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
)

// Mock implementations

type mockTransactionManager struct {
	BeginTxFunc func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func (m *mockTransactionManager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return m.BeginTxFunc(ctx, opts)
}

type mockRoomRepository struct {
	FindByIDForUpdateFunc func(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Room, error)
	FindByIDFunc          func(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Room, error)
}

func (m *mockRoomRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Room, error) {
	return m.FindByIDForUpdateFunc(ctx, tx, id)
}

func (m *mockRoomRepository) FindByID(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Room, error) {
	return m.FindByIDFunc(ctx, tx, id)
}

type mockBookingRepository struct {
	InsertFunc            func(ctx context.Context, tx *sql.Tx, b domain.Booking) (uint64, error)
	FindByIDForUpdateFunc func(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Booking, error)
	FindOverlappingFunc   func(ctx context.Context, tx *sql.Tx, roomID uint64, stay domain.DateRange) ([]domain.Booking, error)
	UpdateStatusFunc      func(ctx context.Context, tx *sql.Tx, id uint64, status domain.BookingStatus) error
	MarkCancelledFunc     func(ctx context.Context, tx *sql.Tx, id uint64, reason *string, cancelledAt time.Time, refund decimal.Decimal) error
}

func (m *mockBookingRepository) Insert(ctx context.Context, tx *sql.Tx, b domain.Booking) (uint64, error) {
	return m.InsertFunc(ctx, tx, b)
}

func (m *mockBookingRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Booking, error) {
	return m.FindByIDForUpdateFunc(ctx, tx, id)
}

func (m *mockBookingRepository) FindOverlapping(ctx context.Context, tx *sql.Tx, roomID uint64, stay domain.DateRange) ([]domain.Booking, error) {
	return m.FindOverlappingFunc(ctx, tx, roomID, stay)
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uint64, status domain.BookingStatus) error {
	return m.UpdateStatusFunc(ctx, tx, id, status)
}

func (m *mockBookingRepository) MarkCancelled(ctx context.Context, tx *sql.Tx, id uint64, reason *string, cancelledAt time.Time, refund decimal.Decimal) error {
	return m.MarkCancelledFunc(ctx, tx, id, reason, cancelledAt, refund)
}

type mockPaymentRepository struct {
	InsertFunc                       func(ctx context.Context, tx *sql.Tx, p domain.Payment) (uint64, error)
	FindByBookingIDFunc              func(ctx context.Context, tx *sql.Tx, bookingID uint64) (*domain.Payment, error)
	FindByTransactionIDForUpdateFunc func(ctx context.Context, tx *sql.Tx, transactionID string) (*domain.Payment, error)
	UpdateStatusFunc                 func(ctx context.Context, tx *sql.Tx, id uint64, status domain.PaymentStatus) error
	MarkRefundedFunc                 func(ctx context.Context, tx *sql.Tx, bookingID uint64, amount decimal.Decimal, refundID string, refundedAt time.Time) error
}

func (m *mockPaymentRepository) Insert(ctx context.Context, tx *sql.Tx, p domain.Payment) (uint64, error) {
	return m.InsertFunc(ctx, tx, p)
}

func (m *mockPaymentRepository) FindByBookingID(ctx context.Context, tx *sql.Tx, bookingID uint64) (*domain.Payment, error) {
	return m.FindByBookingIDFunc(ctx, tx, bookingID)
}

func (m *mockPaymentRepository) FindByTransactionIDForUpdate(ctx context.Context, tx *sql.Tx, transactionID string) (*domain.Payment, error) {
	return m.FindByTransactionIDForUpdateFunc(ctx, tx, transactionID)
}

func (m *mockPaymentRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uint64, status domain.PaymentStatus) error {
	return m.UpdateStatusFunc(ctx, tx, id, status)
}

func (m *mockPaymentRepository) MarkRefunded(ctx context.Context, tx *sql.Tx, bookingID uint64, amount decimal.Decimal, refundID string, refundedAt time.Time) error {
	return m.MarkRefundedFunc(ctx, tx, bookingID, amount, refundID, refundedAt)
}

type mockRefundRetryRepository struct {
	InsertFunc        func(ctx context.Context, tx *sql.Tx, rr domain.RefundRetry) (uint64, error)
	FindDueFunc       func(ctx context.Context, now time.Time, limit int) ([]domain.RefundRetry, error)
	MarkProcessedFunc func(ctx context.Context, tx *sql.Tx, id uint64) error
	RecordFailureFunc func(ctx context.Context, id uint64, attempts int, lastError string, nextAttemptAt time.Time, status domain.RefundStatus) error
}

func (m *mockRefundRetryRepository) Insert(ctx context.Context, tx *sql.Tx, rr domain.RefundRetry) (uint64, error) {
	return m.InsertFunc(ctx, tx, rr)
}

func (m *mockRefundRetryRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]domain.RefundRetry, error) {
	return m.FindDueFunc(ctx, now, limit)
}

func (m *mockRefundRetryRepository) MarkProcessed(ctx context.Context, tx *sql.Tx, id uint64) error {
	return m.MarkProcessedFunc(ctx, tx, id)
}

func (m *mockRefundRetryRepository) RecordFailure(ctx context.Context, id uint64, attempts int, lastError string, nextAttemptAt time.Time, status domain.RefundStatus) error {
	return m.RecordFailureFunc(ctx, id, attempts, lastError, nextAttemptAt, status)
}

type mockGateway struct {
	ChargeFunc func(ctx context.Context, amount decimal.Decimal, metadata map[string]string, idempotencyKey string) (string, error)
	RefundFunc func(ctx context.Context, transactionID string, amount decimal.Decimal, idempotencyKey string) (string, error)
}

func (m *mockGateway) Charge(ctx context.Context, amount decimal.Decimal, metadata map[string]string, idempotencyKey string) (string, error) {
	return m.ChargeFunc(ctx, amount, metadata, idempotencyKey)
}

func (m *mockGateway) Refund(ctx context.Context, transactionID string, amount decimal.Decimal, idempotencyKey string) (string, error) {
	return m.RefundFunc(ctx, transactionID, amount, idempotencyKey)
}

func (m *mockGateway) Currency() string {
	return "usd"
}

// Fixtures

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testRoom() *domain.Room {
	return &domain.Room{
		ID:             1,
		HotelID:        1,
		Name:           "Standard Double",
		Capacity:       2,
		TotalInventory: 1,
		PricePerNight:  decimal.RequireFromString("100.00"),
		IsActive:       true,
	}
}

func testBooking(status domain.BookingStatus) *domain.Booking {
	return &domain.Booking{
		ID:         42,
		RoomID:     1,
		UserID:     7,
		CheckIn:    day(2030, 6, 10),
		CheckOut:   day(2030, 6, 12),
		Guests:     2,
		Units:      1,
		TotalPrice: decimal.RequireFromString("200.00"),
		Status:     status,
	}
}
