package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"staybook/internal/domain"
	apperrors "staybook/internal/errors"
)

const roomColumns = `id, hotelId, name, capacity, totalInventory, pricePerNight, isActive, createdAt, updatedAt`

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoom(row rowScanner, extra ...interface{}) (*domain.Room, error) {
	var r domain.Room
	dest := []interface{}{
		&r.ID, &r.HotelID, &r.Name, &r.Capacity, &r.TotalInventory,
		&r.PricePerNight, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &r, nil
}

// FindByIDForUpdate reads the room and takes an exclusive row lock that is
// held until tx ends. Every reservation for the room serialises on it.
func (r *MySQLRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM Rooms WHERE id = ? FOR UPDATE`

	room, err := scanRoom(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewRoomNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("locking room %d: %w", id, err)
	}

	return room, nil
}

// FindByID reads the room inside tx without locking it.
func (r *MySQLRepository) FindByID(ctx context.Context, tx *sql.Tx, id uint64) (*domain.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM Rooms WHERE id = ?`

	room, err := scanRoom(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewRoomNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying room %d: %w", id, err)
	}

	return room, nil
}

// RoomVacancy is a room together with the units still free for a stay.
type RoomVacancy struct {
	Room      domain.Room
	UnitsFree int
}

type SearchFilter struct {
	HotelID uint64
	Stay    domain.DateRange
	Guests  int
	Units   int
	Limit   int
}

// SearchAvailable lists active rooms that can host filter.Guests in
// filter.Units units and still have filter.Units free for the stay, cheapest first.
func (r *MySQLRepository) SearchAvailable(ctx context.Context, filter SearchFilter) ([]RoomVacancy, error) {
	conditions := []string{"r.isActive = 1", "r.capacity * ? >= ?"}
	args := []interface{}{filter.Stay.CheckOut, filter.Stay.CheckIn, filter.Units, filter.Guests}

	if filter.HotelID > 0 {
		conditions = append(conditions, "r.hotelId = ?")
		args = append(args, filter.HotelID)
	}
	args = append(args, filter.Units, filter.Limit)

	query := fmt.Sprintf(`
		SELECT r.id, r.hotelId, r.name, r.capacity, r.totalInventory, r.pricePerNight,
		       r.isActive, r.createdAt, r.updatedAt,
		       r.totalInventory - COALESCE(SUM(b.units), 0) AS unitsFree
		FROM Rooms r
		LEFT JOIN Bookings b
		  ON b.roomId = r.id
		 AND b.status <> 'cancelled'
		 AND b.checkIn < ?
		 AND b.checkOut > ?
		WHERE %s
		GROUP BY r.id
		HAVING unitsFree >= ?
		ORDER BY r.pricePerNight ASC, r.id ASC
		LIMIT ?`,
		strings.Join(conditions, " AND "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching available rooms: %w", err)
	}
	defer rows.Close()

	var result []RoomVacancy
	for rows.Next() {
		var free int
		room, err := scanRoom(rows, &free)
		if err != nil {
			return nil, fmt.Errorf("scanning room row: %w", err)
		}
		result = append(result, RoomVacancy{Room: *room, UnitsFree: free})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating room rows: %w", err)
	}

	return result, nil
}
