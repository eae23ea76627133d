package booking

import (
	"database/sql"

	"staybook/internal/booking/controller"
	bookingrepo "staybook/internal/booking/repository"
	"staybook/internal/booking/service"
	"staybook/internal/booking/usecase"
	"staybook/internal/booking/worker"
	"staybook/internal/config"
	roomrepo "staybook/internal/room/repository"

	"go.uber.org/zap"
)

type Module struct {
	Controller   *controller.BookingController
	RefundWorker *worker.RefundRetryWorker
}

func NewModule(db *sql.DB, cfg *config.Config, gateway service.PaymentGateway, notifier usecase.Notifier, logger *zap.Logger) *Module {
	roomRepo := roomrepo.NewMySQLRepository(db)
	bookingRepo := bookingrepo.NewMySQLBookingRepository(db)
	paymentRepo := bookingrepo.NewMySQLPaymentRepository(db)
	refundRepo := bookingrepo.NewMySQLRefundRetryRepository(db)

	availabilitySvc := service.NewAvailabilityService(
		db,
		roomRepo,
		bookingRepo,
		logger,
		cfg.Booking.ReservationTxTimeout,
	)

	reservationSvc := service.NewReservationService(
		db,
		roomRepo,
		bookingRepo,
		paymentRepo,
		gateway,
		logger,
		cfg.Booking.ReservationTxTimeout,
		cfg.Payment.Timeout,
	)

	lifecycleSvc := service.NewLifecycleService(
		db,
		bookingRepo,
		paymentRepo,
		refundRepo,
		logger,
		cfg.Booking.ReservationTxTimeout,
		2*cfg.Refund.InlineTimeout,
	)

	refundSvc := service.NewRefundService(
		db,
		refundRepo,
		paymentRepo,
		gateway,
		logger,
		cfg.Refund.InlineTimeout,
		cfg.Refund.MaxAttempts,
		cfg.Refund.BatchSize,
	)

	reservations := usecase.NewCreateReservationUseCase(
		reservationSvc,
		availabilitySvc,
		notifier,
		logger,
		cfg.Booking.MaxRetryAttempts,
		cfg.Booking.MaxStayNights,
	)

	lifecycle := usecase.NewBookingLifecycleUseCase(
		bookingRepo,
		lifecycleSvc,
		refundSvc,
		notifier,
		logger,
		cfg.Booking.MaxRetryAttempts,
	)

	return &Module{
		Controller:   controller.NewBookingController(reservations, lifecycle, logger),
		RefundWorker: worker.NewRefundRetryWorker(refundSvc, logger, cfg.Refund.RetryInterval),
	}
}
