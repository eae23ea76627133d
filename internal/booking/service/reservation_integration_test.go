package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	bookingrepo "staybook/internal/booking/repository"
	"staybook/internal/domain"
	apperrors "staybook/internal/errors"
	roomrepo "staybook/internal/room/repository"
	"staybook/internal/testutil"
)

// Integration Tests

func TestCreateReservation_ConcurrentRequestsForLastUnit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	res, err := db.Exec(`
		INSERT INTO Rooms (hotelId, name, capacity, totalInventory, pricePerNight, isActive)
		VALUES (1, 'Last Room', 2, 1, 150.00, 1)
	`)
	require.NoError(t, err)
	roomID, err := res.LastInsertId()
	require.NoError(t, err)

	var charges atomic.Int32
	gateway := &mockGateway{
		ChargeFunc: func(ctx context.Context, amount decimal.Decimal, metadata map[string]string, key string) (string, error) {
			n := charges.Add(1)
			return fmt.Sprintf("pi_%d", n), nil
		},
	}

	svc := NewReservationService(
		db,
		roomrepo.NewMySQLRepository(db),
		bookingrepo.NewMySQLBookingRepository(db),
		bookingrepo.NewMySQLPaymentRepository(db),
		gateway,
		zap.NewNop(),
		10*time.Second,
		5*time.Second,
	)

	const workers = 8
	var wg sync.WaitGroup
	var succeeded, rejected atomic.Int32
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			in := input(day(2030, 6, 10), day(2030, 6, 12), 1, 1)
			in.RoomID = uint64(roomID)
			in.UserID = uint64(i + 1)
			in.IdempotencyKey = fmt.Sprintf("idem-%d", i)

			_, err := svc.CreateReservation(context.Background(), in)
			if err == nil {
				succeeded.Add(1)
				return
			}
			if ce, ok := apperrors.IsConflictError(err); ok && ce.Code == apperrors.CodeInsufficientInventory {
				rejected.Add(1)
				return
			}
			t.Errorf("unexpected error: %v", err)
		}(i)
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(workers-1), rejected.Load())

	var held int
	require.NoError(t, db.QueryRow(
		`SELECT COALESCE(SUM(units), 0) FROM Bookings WHERE roomId = ? AND status <> ?`,
		roomID, string(domain.BookingStatusCancelled),
	).Scan(&held))
	assert.Equal(t, 1, held)

	var payments int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM Payments`).Scan(&payments))
	assert.Equal(t, 1, payments)
}

func TestCreateReservation_GatewayFailureLeavesNoRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	res, err := db.Exec(`
		INSERT INTO Rooms (hotelId, name, capacity, totalInventory, pricePerNight, isActive)
		VALUES (1, 'Room', 2, 1, 150.00, 1)
	`)
	require.NoError(t, err)
	roomID, _ := res.LastInsertId()

	gateway := &mockGateway{
		ChargeFunc: func(ctx context.Context, amount decimal.Decimal, metadata map[string]string, key string) (string, error) {
			return "", fmt.Errorf("provider unavailable")
		},
	}
	svc := NewReservationService(db,
		roomrepo.NewMySQLRepository(db),
		bookingrepo.NewMySQLBookingRepository(db),
		bookingrepo.NewMySQLPaymentRepository(db),
		gateway, zap.NewNop(), 10*time.Second, 5*time.Second)

	in := input(day(2030, 6, 10), day(2030, 6, 12), 1, 1)
	in.RoomID = uint64(roomID)
	_, err = svc.CreateReservation(context.Background(), in)
	_, ok := apperrors.IsGatewayError(err)
	require.True(t, ok)

	var bookings int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM Bookings`).Scan(&bookings))
	assert.Zero(t, bookings)
}
