package room

type SearchRoomsRequest struct {
	HotelID  uint64 `json:"hotelId"`
	CheckIn  string `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Guests   int    `json:"guests" validate:"required,min=1,max=100"`
	Units    int    `json:"units" validate:"omitempty,min=1,max=50"`
	Limit    int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

type SearchRoomsResponse struct {
	CheckIn  string    `json:"checkIn"`
	CheckOut string    `json:"checkOut"`
	Nights   int       `json:"nights"`
	Rooms    []RoomDTO `json:"rooms"`
}

type RoomDTO struct {
	ID             uint64 `json:"id"`
	HotelID        uint64 `json:"hotelId"`
	Name           string `json:"name"`
	Capacity       int    `json:"capacity"`
	TotalInventory int    `json:"totalInventory"`
	UnitsFree      int    `json:"unitsFree"`
	PricePerNight  string `json:"pricePerNight"`
	TotalPrice     string `json:"totalPrice"`
}
