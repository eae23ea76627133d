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

const paymentColumns = `id, bookingId, amount, currency, transactionId, status, refundAmount, refundId, refundedAt, createdAt, updatedAt`

type MySQLPaymentRepository struct {
	db *sql.DB
}

func NewMySQLPaymentRepository(db *sql.DB) *MySQLPaymentRepository {
	return &MySQLPaymentRepository{db: db}
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var status string
	var refundedAt sql.NullTime
	err := row.Scan(
		&p.ID, &p.BookingID, &p.Amount, &p.Currency, &p.TransactionID, &status,
		&p.RefundAmount, &p.RefundID, &refundedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PaymentStatus(status)
	if refundedAt.Valid {
		t := refundedAt.Time
		p.RefundedAt = &t
	}

	return &p, nil
}

func (r *MySQLPaymentRepository) Insert(ctx context.Context, tx *sql.Tx, p domain.Payment) (uint64, error) {
	query := `INSERT INTO Payments (bookingId, amount, currency, transactionId, status) VALUES (?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query, p.BookingID, p.Amount, p.Currency, p.TransactionID, string(p.Status))
	if err != nil {
		return 0, fmt.Errorf("inserting payment: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint64(lastInsertID), nil
}

// FindByBookingID returns a NotFoundError when the booking has no payment.
func (r *MySQLPaymentRepository) FindByBookingID(ctx context.Context, tx *sql.Tx, bookingID uint64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM Payments WHERE bookingId = ? FOR UPDATE`

	p, err := scanPayment(tx.QueryRowContext(ctx, query, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment for booking %d not found", bookingID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying payment by booking: %w", err)
	}

	return p, nil
}

func (r *MySQLPaymentRepository) FindByTransactionIDForUpdate(ctx context.Context, tx *sql.Tx, transactionID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM Payments WHERE transactionId = ? FOR UPDATE`

	p, err := scanPayment(tx.QueryRowContext(ctx, query, transactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.NotFoundError{
			Code:    apperrors.CodePaymentNotFound,
			Message: fmt.Sprintf("payment with transaction %s not found", transactionID),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("locking payment %s: %w", transactionID, err)
	}

	return p, nil
}

func (r *MySQLPaymentRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uint64, status domain.PaymentStatus) error {
	query := `UPDATE Payments SET status = ? WHERE id = ?`

	if _, err := tx.ExecContext(ctx, query, string(status), id); err != nil {
		return fmt.Errorf("updating payment status: %w", err)
	}

	return nil
}

func (r *MySQLPaymentRepository) MarkRefunded(ctx context.Context, tx *sql.Tx, bookingID uint64, amount decimal.Decimal, refundID string, refundedAt time.Time) error {
	query := `
		UPDATE Payments
		SET status = ?, refundAmount = ?, refundId = ?, refundedAt = ?
		WHERE bookingId = ?
	`

	if _, err := tx.ExecContext(ctx, query, string(domain.PaymentStatusRefunded), amount, refundID, refundedAt, bookingID); err != nil {
		return fmt.Errorf("marking payment refunded: %w", err)
	}

	return nil
}
