package room

import (
	"context"

	"staybook/internal/room/repository"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type roomService struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &roomService{repo: repo}
}

func (s *roomService) FindAvailable(ctx context.Context, filter repository.SearchFilter) ([]repository.RoomVacancy, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultSearchLimit
	}
	if filter.Limit > maxSearchLimit {
		filter.Limit = maxSearchLimit
	}
	if filter.Units < 1 {
		filter.Units = 1
	}

	found, err := s.repo.SearchAvailable(ctx, filter)
	if err != nil {
		return nil, err
	}
	if found == nil {
		found = []repository.RoomVacancy{}
	}

	return found, nil
}
