package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/congsh/PeerHaiguitang/internal/application/config"
	"github.com/congsh/PeerHaiguitang/internal/application/constant"
	"github.com/congsh/PeerHaiguitang/internal/application/metric"
	"github.com/congsh/PeerHaiguitang/internal/infra/adapters/memory"
	"github.com/congsh/PeerHaiguitang/internal/infra/adapters/postgres"
	"github.com/congsh/PeerHaiguitang/internal/infra/adapters/postgres/repository"
	"github.com/congsh/PeerHaiguitang/internal/infra/adapters/redis"
	"github.com/congsh/PeerHaiguitang/internal/infra/ports/http/handlers"
	"github.com/congsh/PeerHaiguitang/internal/infra/ports/http/server"
	"github.com/congsh/PeerHaiguitang/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelInfo},
			),
		),
	)

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	slog.Info(
		"Running app",
		slog.Bool("debug", cfg.Debug),
		slog.String("store", cfg.StoreBackend),
	)

	var (
		registry usecase.RoomRegistry
		queues   usecase.MessageQueueStore
	)

	switch cfg.StoreBackend {
	case "external":
		dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			slog.Error("connect to postgres", slog.Any(constant.Error, err))
			os.Exit(1)
		}
		defer dbConn.Close()

		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("connect to redis", slog.Any(constant.Error, err))
			os.Exit(1)
		}
		defer rdb.Close()

		registry = repository.NewRoomRepository(dbConn)
		queues = redis.NewMessageQueueStore(rdb, cfg.QueueCap, cfg.QueueTTL)

	default:
		registry = memory.NewRoomRegistry()
		queues = memory.NewMessageQueueStore(cfg.QueueCap)
	}

	relayUsecase := usecase.NewRelayUsecase(registry, queues)
	roomUsecase := usecase.NewRoomUsecase(registry)
	signalConns := memory.NewSignalConnectionRepository()

	relayHandler := handlers.NewRelayHandler(relayUsecase)
	iceHandler := handlers.NewIceHandler(cfg)
	signalHandler := handlers.NewSignalHandler(cfg, roomUsecase, signalConns)

	echoSrv := server.New(relayHandler, iceHandler, signalHandler)
	metricSrv := metric.NewServer()

	srvCh := make(chan error, 1)
	go func() {
		srvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	go func() {
		if err := metricSrv.Start(":" + cfg.MetricPort); err != nil {
			slog.Warn("metric server stopped", slog.Any(constant.Error, err))
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server due to context cancel")
	case err := <-srvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)

		os.Exit(1)
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown server", slog.Any(constant.Error, err))
	}

	if err := metricSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}
}
