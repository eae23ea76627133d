package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Room struct {
	ID             uint64
	HotelID        uint64
	Name           string
	Capacity       int
	TotalInventory int
	PricePerNight  decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MaxGuests is the number of guests the given number of units can hold.
func (r Room) MaxGuests(units int) int {
	return r.Capacity * units
}

// PriceFor returns pricePerNight x nights x units, rounded to cents.
func (r Room) PriceFor(nights, units int) decimal.Decimal {
	return r.PricePerNight.
		Mul(decimal.NewFromInt(int64(nights))).
		Mul(decimal.NewFromInt(int64(units))).
		Round(2)
}
