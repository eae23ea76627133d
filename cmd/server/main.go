package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"staybook/internal/booking"
	"staybook/internal/booking/usecase"
	"staybook/internal/config"
	"staybook/internal/infrastructure/logger"
	"staybook/internal/infrastructure/mysql"
	"staybook/internal/infrastructure/payment"
	"staybook/internal/infrastructure/rabbitmq"
	"staybook/internal/infrastructure/redis"
	"staybook/internal/room"
	"staybook/internal/server"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	var rdb *goredis.Client
	if cfg.RateLimit.Enabled {
		rdb, err = redis.NewClient(cfg.Redis)
		if err != nil {
			zapLogger.Warn("redis unavailable, rate limiting disabled", zap.Error(err))
		} else {
			defer rdb.Close()
		}
	}

	var notifier usecase.Notifier = rabbitmq.NopNotifier{}
	if cfg.Notify.Enabled {
		n := rabbitmq.NewNotifier(cfg.Notify, zapLogger)
		defer n.Close()
		notifier = n
	}

	gateway := payment.NewHTTPGateway(cfg.Payment)

	bookingModule := booking.NewModule(db, cfg, gateway, notifier, zapLogger)
	roomCtrl := room.NewModule(db, cfg, zapLogger)

	router := server.NewRouter(bookingModule.Controller, roomCtrl, cfg, db, rdb, zapLogger)
	srv := server.New(cfg.Server, router, zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		bookingModule.RefundWorker.Start(ctx)
	}()

	if err := srv.Run(ctx); err != nil {
		zapLogger.Error("server error", zap.Error(err))
	}
	stop()
	<-workerDone

	zapLogger.Info("server stopped gracefully")
}
