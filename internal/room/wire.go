package room

import (
	"database/sql"

	"staybook/internal/config"
	"staybook/internal/room/repository"

	"go.uber.org/zap"
)

func NewModule(db *sql.DB, cfg *config.Config, logger *zap.Logger) *Controller {
	repo := repository.NewMySQLRepository(db)
	svc := NewService(repo)
	uc := NewSearchUseCase(svc, cfg.Booking.MaxStayNights)
	return NewController(uc, logger)
}
