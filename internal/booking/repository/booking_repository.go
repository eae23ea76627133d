package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain"
	apperrors "staybook/internal/errors"
)

const bookingColumns = `id, roomId, userId, checkIn, checkOut, guests, units, totalPrice, status,
	specialRequests, cancellationReason, cancelledAt, refundAmount, createdAt, updatedAt`

type MySQLBookingRepository struct {
	db *sql.DB
}

func NewMySQLBookingRepository(db *sql.DB) *MySQLBookingRepository {
	return &MySQLBookingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	var status string
	var cancelledAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.RoomID, &b.UserID, &b.CheckIn, &b.CheckOut, &b.Guests, &b.Units,
		&b.TotalPrice, &status, &b.SpecialRequests, &b.CancellationReason,
		&cancelledAt, &b.RefundAmount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatus(status)
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}

	return &b, nil
}

func (r *MySQLBookingRepository) Insert(ctx context.Context, tx *sql.Tx, b domain.Booking) (uint64, error) {
	query := `
		INSERT INTO Bookings (roomId, userId, checkIn, checkOut, guests, units, totalPrice, status, specialRequests)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		b.RoomID, b.UserID, b.CheckIn, b.CheckOut, b.Guests, b.Units,
		b.TotalPrice, string(b.Status), b.SpecialRequests,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting booking: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint64(lastInsertID), nil
}

func (r *MySQLBookingRepository) FindByID(ctx context.Context, id uint64) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM Bookings WHERE id = ?`

	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewBookingNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking by id: %w", err)
	}

	return b, nil
}

func (r *MySQLBookingRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM Bookings WHERE id = ? FOR UPDATE`

	b, err := scanBooking(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewBookingNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("locking booking %d: %w", id, err)
	}

	return b, nil
}

// FindOverlapping returns the bookings of roomID that hold inventory and
// overlap stay under half-open semantics.
func (r *MySQLBookingRepository) FindOverlapping(ctx context.Context, tx *sql.Tx, roomID uint64, stay domain.DateRange) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM Bookings
		WHERE roomId = ?
		  AND status <> ?
		  AND checkIn < ?
		  AND checkOut > ?
		ORDER BY checkIn, id`

	rows, err := tx.QueryContext(ctx, query, roomID, string(domain.BookingStatusCancelled), stay.CheckOut, stay.CheckIn)
	if err != nil {
		return nil, fmt.Errorf("querying overlapping bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning booking row: %w", err)
		}
		bookings = append(bookings, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating booking rows: %w", err)
	}

	return bookings, nil
}

func (r *MySQLBookingRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uint64, status domain.BookingStatus) error {
	query := `UPDATE Bookings SET status = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("updating booking status: %w", err)
	}

	return requireOneRow(result, id)
}

func (r *MySQLBookingRepository) MarkCancelled(ctx context.Context, tx *sql.Tx, id uint64, reason *string, cancelledAt time.Time, refund decimal.Decimal) error {
	query := `
		UPDATE Bookings
		SET status = ?, cancellationReason = ?, cancelledAt = ?, refundAmount = ?
		WHERE id = ?
	`

	result, err := tx.ExecContext(ctx, query, string(domain.BookingStatusCancelled), reason, cancelledAt, refund, id)
	if err != nil {
		return fmt.Errorf("cancelling booking: %w", err)
	}

	return requireOneRow(result, id)
}

func requireOneRow(result sql.Result, id uint64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewBookingNotFoundError(id)
	}

	return nil
}
