package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"staybook/internal/domain"
)

// MySQLRefundRetryRepository is the outbox of refunds still owed to guests.
// Rows are written in the cancelling transaction and drained by the retry worker.
type MySQLRefundRetryRepository struct {
	db *sql.DB
}

func NewMySQLRefundRetryRepository(db *sql.DB) *MySQLRefundRetryRepository {
	return &MySQLRefundRetryRepository{db: db}
}

func (r *MySQLRefundRetryRepository) Insert(ctx context.Context, tx *sql.Tx, rr domain.RefundRetry) (uint64, error) {
	query := `
		INSERT INTO RefundRetries (bookingId, transactionId, amount, idempotencyKey, status, attempts, nextAttemptAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		rr.BookingID, rr.TransactionID, rr.Amount, rr.IdempotencyKey,
		string(rr.Status), rr.Attempts, rr.NextAttemptAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting refund retry: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint64(lastInsertID), nil
}

// FindDue returns pending refunds whose next attempt is at or before now, oldest first.
func (r *MySQLRefundRetryRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]domain.RefundRetry, error) {
	query := `
		SELECT id, bookingId, transactionId, amount, idempotencyKey, status, attempts,
		       lastError, nextAttemptAt, createdAt, updatedAt
		FROM RefundRetries
		WHERE status = ?
		  AND nextAttemptAt <= ?
		ORDER BY nextAttemptAt, id
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, string(domain.RefundStatusPending), now, limit)
	if err != nil {
		return nil, fmt.Errorf("querying due refunds: %w", err)
	}
	defer rows.Close()

	var retries []domain.RefundRetry
	for rows.Next() {
		var rr domain.RefundRetry
		var status string
		err := rows.Scan(
			&rr.ID, &rr.BookingID, &rr.TransactionID, &rr.Amount, &rr.IdempotencyKey,
			&status, &rr.Attempts, &rr.LastError, &rr.NextAttemptAt, &rr.CreatedAt, &rr.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning refund retry row: %w", err)
		}
		rr.Status = domain.RefundStatus(status)
		retries = append(retries, rr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating refund retry rows: %w", err)
	}

	return retries, nil
}

// MarkProcessed settles a pending row. It returns domain.ErrRefundNotPending
// when the row was already settled.
func (r *MySQLRefundRetryRepository) MarkProcessed(ctx context.Context, tx *sql.Tx, id uint64) error {
	query := `
		UPDATE RefundRetries
		SET status = ?, attempts = attempts + 1, lastError = NULL
		WHERE id = ? AND status = ?
	`

	result, err := tx.ExecContext(ctx, query,
		string(domain.RefundStatusProcessed), id, string(domain.RefundStatusPending),
	)
	if err != nil {
		return fmt.Errorf("marking refund %d processed: %w", id, err)
	}

	return requirePending(result, id)
}

// RecordFailure reschedules a pending row. A row settled in the meantime is
// left as it is and domain.ErrRefundNotPending is returned.
func (r *MySQLRefundRetryRepository) RecordFailure(ctx context.Context, id uint64, attempts int, lastError string, nextAttemptAt time.Time, status domain.RefundStatus) error {
	query := `
		UPDATE RefundRetries
		SET attempts = ?, lastError = ?, nextAttemptAt = ?, status = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		attempts, lastError, nextAttemptAt, string(status), id, string(domain.RefundStatusPending),
	)
	if err != nil {
		return fmt.Errorf("recording refund %d failure: %w", id, err)
	}

	return requirePending(result, id)
}

func requirePending(result sql.Result, id uint64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("refund %d: %w", id, domain.ErrRefundNotPending)
	}
	return nil
}
