package room

import (
	"context"
	"time"

	"staybook/internal/room/repository"
	"staybook/internal/validation"
)

type searchUseCase struct {
	service       Service
	maxStayNights int
	now           func() time.Time
}

func NewSearchUseCase(service Service, maxStayNights int) SearchUseCase {
	return &searchUseCase{
		service:       service,
		maxStayNights: maxStayNights,
		now:           time.Now,
	}
}

// SearchRooms lists rooms with enough free units for the whole stay. Prices
// are quoted for the requested units and nights.
func (uc *searchUseCase) SearchRooms(ctx context.Context, req SearchRoomsRequest) (*SearchRoomsResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Units == 0 {
		req.Units = 1
	}

	stay, err := validation.StayWindow(req.CheckIn, req.CheckOut, uc.now().UTC(), uc.maxStayNights)
	if err != nil {
		return nil, err
	}

	found, err := uc.service.FindAvailable(ctx, repository.SearchFilter{
		HotelID: req.HotelID,
		Stay:    stay,
		Guests:  req.Guests,
		Units:   req.Units,
		Limit:   req.Limit,
	})
	if err != nil {
		return nil, err
	}

	nights := stay.Nights()
	rooms := make([]RoomDTO, 0, len(found))
	for _, v := range found {
		rooms = append(rooms, RoomDTO{
			ID:             v.Room.ID,
			HotelID:        v.Room.HotelID,
			Name:           v.Room.Name,
			Capacity:       v.Room.Capacity,
			TotalInventory: v.Room.TotalInventory,
			UnitsFree:      v.UnitsFree,
			PricePerNight:  v.Room.PricePerNight.StringFixed(2),
			TotalPrice:     v.Room.PriceFor(nights, req.Units).StringFixed(2),
		})
	}

	return &SearchRoomsResponse{
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
		Nights:   nights,
		Rooms:    rooms,
	}, nil
}
