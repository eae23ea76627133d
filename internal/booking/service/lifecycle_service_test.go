package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"staybook/internal/domain"
	apperrors "staybook/internal/errors"
	"staybook/internal/testutil"
)

var (
	staff = domain.Actor{ID: 900, Role: domain.RoleStaff}
	owner = domain.Actor{ID: 7, Role: domain.RoleGuest}
)

type lifecycleFixture struct {
	svc       *LifecycleService
	rec       *testutil.TxRecorder
	booking   *domain.Booking
	payment   *domain.Payment
	updates   []domain.BookingStatus
	cancelled struct {
		called bool
		reason *string
		refund decimal.Decimal
	}
	payStatus []domain.PaymentStatus
	queued    []domain.RefundRetry
}

func newLifecycleFixture(t *testing.T, status domain.BookingStatus, now time.Time) *lifecycleFixture {
	t.Helper()
	db, rec := testutil.NewTxDB()
	t.Cleanup(func() { db.Close() })

	f := &lifecycleFixture{rec: rec, booking: testBooking(status)}

	bookingRepo := &mockBookingRepository{
		FindByIDForUpdateFunc: func(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Booking, error) {
			if id != f.booking.ID {
				return nil, apperrors.NewBookingNotFoundError(id)
			}
			b := *f.booking
			return &b, nil
		},
		UpdateStatusFunc: func(ctx context.Context, tx *sql.Tx, id uint64, status domain.BookingStatus) error {
			f.updates = append(f.updates, status)
			return nil
		},
		MarkCancelledFunc: func(ctx context.Context, tx *sql.Tx, id uint64, reason *string, cancelledAt time.Time, refund decimal.Decimal) error {
			f.cancelled.called = true
			f.cancelled.reason = reason
			f.cancelled.refund = refund
			return nil
		},
	}

	paymentRepo := &mockPaymentRepository{
		FindByBookingIDFunc: func(ctx context.Context, tx *sql.Tx, bookingID uint64) (*domain.Payment, error) {
			if f.payment == nil {
				return nil, apperrors.NewNotFoundError("payment not found")
			}
			p := *f.payment
			return &p, nil
		},
		FindByTransactionIDForUpdateFunc: func(ctx context.Context, tx *sql.Tx, transactionID string) (*domain.Payment, error) {
			if f.payment == nil || f.payment.TransactionID != transactionID {
				return nil, apperrors.NewNotFoundError("payment not found")
			}
			p := *f.payment
			return &p, nil
		},
		UpdateStatusFunc: func(ctx context.Context, tx *sql.Tx, id uint64, status domain.PaymentStatus) error {
			f.payStatus = append(f.payStatus, status)
			return nil
		},
	}

	refundRepo := &mockRefundRetryRepository{
		InsertFunc: func(ctx context.Context, tx *sql.Tx, rr domain.RefundRetry) (uint64, error) {
			f.queued = append(f.queued, rr)
			return uint64(len(f.queued)), nil
		},
	}

	f.svc = NewLifecycleService(db, bookingRepo, paymentRepo, refundRepo, zap.NewNop(), 5*time.Second, 10*time.Second)
	f.svc.now = fixedClock(now)
	return f
}

func capturedPayment() *domain.Payment {
	return &domain.Payment{
		ID:            3,
		BookingID:     42,
		Amount:        decimal.RequireFromString("200.00"),
		Currency:      "usd",
		TransactionID: "pi_abc",
		Status:        domain.PaymentStatusCompleted,
	}
}

var farAhead = time.Date(2030, 5, 1, 9, 0, 0, 0, time.UTC)

func TestTransition_StaffFollowsGraph(t *testing.T) {
	tests := []struct {
		from, to domain.BookingStatus
	}{
		{domain.BookingStatusPending, domain.BookingStatusConfirmed},
		{domain.BookingStatusConfirmed, domain.BookingStatusCheckedIn},
		{domain.BookingStatusCheckedIn, domain.BookingStatusCheckedOut},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			f := newLifecycleFixture(t, tt.from, farAhead)

			b, err := f.svc.Transition(context.Background(), 42, tt.to, staff)
			require.NoError(t, err)
			assert.Equal(t, tt.to, b.Status)
			assert.Equal(t, []domain.BookingStatus{tt.to}, f.updates)

			_, commits, _ := f.rec.Snapshot()
			assert.Equal(t, 1, commits)
		})
	}
}

func TestTransition_InvalidEdges(t *testing.T) {
	tests := []struct {
		from, to domain.BookingStatus
	}{
		{domain.BookingStatusPending, domain.BookingStatusCheckedIn},
		{domain.BookingStatusConfirmed, domain.BookingStatusCheckedOut},
		{domain.BookingStatusCheckedIn, domain.BookingStatusConfirmed},
		{domain.BookingStatusCheckedOut, domain.BookingStatusCheckedIn},
		{domain.BookingStatusCancelled, domain.BookingStatusConfirmed},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			f := newLifecycleFixture(t, tt.from, farAhead)

			b, err := f.svc.Transition(context.Background(), 42, tt.to, staff)
			assert.Nil(t, b)
			ce, ok := apperrors.IsConflictError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.CodeInvalidTransition, ce.Code)
			assert.Empty(t, f.updates)

			_, commits, rollbacks := f.rec.Snapshot()
			assert.Equal(t, 0, commits)
			assert.Equal(t, 1, rollbacks)
		})
	}
}

func TestTransition_GuestCannotOperate(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusPending, farAhead)

	_, err := f.svc.Transition(context.Background(), 42, domain.BookingStatusConfirmed, owner)

	fe, ok := apperrors.IsForbiddenError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUnauthorized, fe.Code)
	assert.Empty(t, f.updates)
}

func TestTransition_BookingNotFound(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusPending, farAhead)

	_, err := f.svc.Transition(context.Background(), 1, domain.BookingStatusConfirmed, staff)

	nfe, ok := apperrors.IsNotFoundError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeBookingNotFound, nfe.Code)
}

func TestTransition_CancelRoutesThroughCancel(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusConfirmed, farAhead)

	b, err := f.svc.Transition(context.Background(), 42, domain.BookingStatusCancelled, staff)
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	assert.True(t, f.cancelled.called)
	assert.Empty(t, f.updates)
}

func TestCancel_OwnerWithCapturedPaymentQueuesFullRefund(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusConfirmed, farAhead)
	f.payment = capturedPayment()
	reason := "flight cancelled"

	c, err := f.svc.Cancel(context.Background(), 42, owner, &reason)
	require.NoError(t, err)

	assert.Equal(t, "200.00", c.RefundAmount.StringFixed(2))
	assert.Equal(t, domain.BookingStatusCancelled, c.Booking.Status)
	require.NotNil(t, c.Booking.CancelledAt)
	assert.Equal(t, farAhead, *c.Booking.CancelledAt)
	assert.Equal(t, &reason, c.Booking.CancellationReason)
	assert.True(t, c.Booking.RefundAmount.Valid)

	assert.True(t, f.cancelled.called)
	assert.Equal(t, &reason, f.cancelled.reason)
	assert.True(t, f.cancelled.refund.Equal(c.RefundAmount))

	require.NotNil(t, c.Refund)
	require.Len(t, f.queued, 1)
	assert.Equal(t, "pi_abc", f.queued[0].TransactionID)
	assert.Equal(t, domain.RefundStatusPending, f.queued[0].Status)
	assert.NotEmpty(t, f.queued[0].IdempotencyKey)
	assert.Equal(t, farAhead.Add(10*time.Second), f.queued[0].NextAttemptAt)
	assert.Equal(t, uint64(1), c.Refund.ID)

	_, commits, _ := f.rec.Snapshot()
	assert.Equal(t, 1, commits)
}

func TestCancel_PartialRefundWindow(t *testing.T) {
	// 4.5 days before check-in on 2030-06-10
	now := time.Date(2030, 6, 5, 12, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, domain.BookingStatusConfirmed, now)
	f.payment = capturedPayment()

	c, err := f.svc.Cancel(context.Background(), 42, owner, nil)
	require.NoError(t, err)

	assert.Equal(t, "100.00", c.RefundAmount.StringFixed(2))
	require.Len(t, f.queued, 1)
	assert.True(t, f.queued[0].Amount.Equal(decimal.RequireFromString("100")))
}

func TestCancel_LateCancellationRefundsNothing(t *testing.T) {
	now := time.Date(2030, 6, 8, 0, 0, 0, 0, time.UTC)
	f := newLifecycleFixture(t, domain.BookingStatusConfirmed, now)
	f.payment = capturedPayment()

	c, err := f.svc.Cancel(context.Background(), 42, owner, nil)
	require.NoError(t, err)

	assert.True(t, c.RefundAmount.IsZero())
	assert.Nil(t, c.Refund)
	assert.Empty(t, f.queued)
	assert.True(t, f.cancelled.called)
}

func TestCancel_UncapturedPaymentQueuesNothing(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusPending, farAhead)
	f.payment = capturedPayment()
	f.payment.Status = domain.PaymentStatusPending

	c, err := f.svc.Cancel(context.Background(), 42, owner, nil)
	require.NoError(t, err)

	assert.Equal(t, "200.00", c.RefundAmount.StringFixed(2))
	assert.Nil(t, c.Refund)
	assert.Empty(t, f.queued)
}

func TestCancel_NoPaymentRow(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusPending, farAhead)

	c, err := f.svc.Cancel(context.Background(), 42, staff, nil)
	require.NoError(t, err)
	assert.Nil(t, c.Refund)
}

func TestCancel_OtherGuestIsUnauthorized(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusConfirmed, farAhead)
	stranger := domain.Actor{ID: 8, Role: domain.RoleGuest}

	_, err := f.svc.Cancel(context.Background(), 42, stranger, nil)

	_, ok := apperrors.IsForbiddenError(err)
	assert.True(t, ok)
	assert.False(t, f.cancelled.called)
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusCancelled, farAhead)

	_, err := f.svc.Cancel(context.Background(), 42, owner, nil)

	ce, ok := apperrors.IsConflictError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeAlreadyCancelled, ce.Code)
}

func TestCancel_CheckedInCannotBeCancelled(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusCheckedIn, farAhead)

	_, err := f.svc.Cancel(context.Background(), 42, staff, nil)

	ce, ok := apperrors.IsConflictError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidTransition, ce.Code)
}

func TestConfirmPayment_ConfirmsPendingBooking(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusPending, farAhead)
	f.payment = capturedPayment()
	f.payment.Status = domain.PaymentStatusPending

	b, err := f.svc.ConfirmPayment(context.Background(), "pi_abc")
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.Equal(t, []domain.PaymentStatus{domain.PaymentStatusCompleted}, f.payStatus)
	assert.Equal(t, []domain.BookingStatus{domain.BookingStatusConfirmed}, f.updates)
}

func TestConfirmPayment_ReplayIsNoop(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusConfirmed, farAhead)
	f.payment = capturedPayment()

	b, err := f.svc.ConfirmPayment(context.Background(), "pi_abc")
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
	assert.Empty(t, f.payStatus)
	assert.Empty(t, f.updates)
}

func TestConfirmPayment_CancelledBooking(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusCancelled, farAhead)
	f.payment = capturedPayment()
	f.payment.Status = domain.PaymentStatusPending

	_, err := f.svc.ConfirmPayment(context.Background(), "pi_abc")

	ce, ok := apperrors.IsConflictError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidTransition, ce.Code)
	assert.Empty(t, f.payStatus)
}

func TestConfirmPayment_UnknownTransaction(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusPending, farAhead)

	_, err := f.svc.ConfirmPayment(context.Background(), "pi_nope")

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestFailPayment_ReleasesPendingBooking(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusPending, farAhead)
	f.payment = capturedPayment()
	f.payment.Status = domain.PaymentStatusPending

	b, err := f.svc.FailPayment(context.Background(), "pi_abc")
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	require.NotNil(t, b.CancellationReason)
	assert.Equal(t, "payment failed", *b.CancellationReason)
	assert.True(t, b.RefundAmount.Decimal.IsZero())

	assert.Equal(t, []domain.PaymentStatus{domain.PaymentStatusFailed}, f.payStatus)
	assert.True(t, f.cancelled.called)
	assert.True(t, f.cancelled.refund.IsZero())
	assert.Empty(t, f.queued)

	_, commits, _ := f.rec.Snapshot()
	assert.Equal(t, 1, commits)
}

func TestFailPayment_ReplayIsNoop(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusCancelled, farAhead)
	f.payment = capturedPayment()
	f.payment.Status = domain.PaymentStatusFailed

	b, err := f.svc.FailPayment(context.Background(), "pi_abc")
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	assert.Empty(t, f.payStatus)
	assert.False(t, f.cancelled.called)

	_, commits, _ := f.rec.Snapshot()
	assert.Equal(t, 0, commits)
}

func TestFailPayment_GuestAlreadyCancelled(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusCancelled, farAhead)
	f.payment = capturedPayment()
	f.payment.Status = domain.PaymentStatusPending

	b, err := f.svc.FailPayment(context.Background(), "pi_abc")
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	assert.Equal(t, []domain.PaymentStatus{domain.PaymentStatusFailed}, f.payStatus)
	assert.False(t, f.cancelled.called)
}

func TestFailPayment_CapturedPaymentConflicts(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusConfirmed, farAhead)
	f.payment = capturedPayment()

	_, err := f.svc.FailPayment(context.Background(), "pi_abc")

	ce, ok := apperrors.IsConflictError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidTransition, ce.Code)
	assert.Empty(t, f.payStatus)
	assert.False(t, f.cancelled.called)
}

func TestFailPayment_UnknownTransaction(t *testing.T) {
	f := newLifecycleFixture(t, domain.BookingStatusPending, farAhead)

	_, err := f.svc.FailPayment(context.Background(), "pi_nope")

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}
