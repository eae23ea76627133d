package room

import (
	"context"

	"staybook/internal/room/repository"
)

type SearchUseCase interface {
	SearchRooms(ctx context.Context, req SearchRoomsRequest) (*SearchRoomsResponse, error)
}

type Service interface {
	FindAvailable(ctx context.Context, filter repository.SearchFilter) ([]repository.RoomVacancy, error)
}

type Repository interface {
	SearchAvailable(ctx context.Context, filter repository.SearchFilter) ([]repository.RoomVacancy, error)
}
