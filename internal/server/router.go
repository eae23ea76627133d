package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"staybook/internal/booking/controller"
	"staybook/internal/config"
	"staybook/internal/middleware"
	"staybook/internal/room"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func NewRouter(
	bookingCtrl *controller.BookingController,
	roomCtrl *room.Controller,
	cfg *config.Config,
	db Pinger,
	rdb *redis.Client,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler(db, logger))

	r.Get("/rooms/available", roomCtrl.HandleSearchRooms)
	r.Get("/rooms/{roomId}/availability", bookingCtrl.CheckAvailability)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(cfg.Auth.JWTSecret))

		r.With(middleware.RateLimit(cfg.RateLimit, rdb, logger)).Post("/bookings", bookingCtrl.CreateBooking)
		r.Get("/bookings/{bookingId}", bookingCtrl.GetBooking)
		r.Patch("/bookings/{bookingId}/status", bookingCtrl.TransitionBooking)
		r.Post("/bookings/{bookingId}/cancel", bookingCtrl.CancelBooking)
	})

	r.With(middleware.GatewaySignature(cfg.Payment.APIKey)).Post("/payments/callback", bookingCtrl.PaymentCallback)

	return r
}

func healthHandler(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logger.Warn("health check: database unreachable", zap.Error(err))
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["database"] = "unreachable"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
