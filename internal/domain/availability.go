package domain

type Availability struct {
	RoomID         uint64
	TotalInventory int
	UnitsBooked    int
	UnitsFree      int
	Available      bool
	Conflicts      []Booking
}

// ComputeAvailability sums the units of the bookings that hold inventory and
// overlap stay, then compares what is left with the requested units. An
// inactive room has no free units.
func ComputeAvailability(room Room, stay DateRange, bookings []Booking, units int) Availability {
	booked := 0
	var conflicts []Booking
	for _, b := range bookings {
		if !b.HoldsInventory() || !b.Stay().Overlaps(stay) {
			continue
		}
		booked += b.Units
		conflicts = append(conflicts, b)
	}

	free := room.TotalInventory - booked
	if free < 0 || !room.IsActive {
		free = 0
	}

	return Availability{
		RoomID:         room.ID,
		TotalInventory: room.TotalInventory,
		UnitsBooked:    booked,
		UnitsFree:      free,
		Available:      room.IsActive && free >= units,
		Conflicts:      conflicts,
	}
}
