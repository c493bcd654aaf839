package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Luminawater/juketogether/internal/application/clock"
	"github.com/Luminawater/juketogether/internal/application/config"
	"github.com/Luminawater/juketogether/internal/application/constant"
	"github.com/Luminawater/juketogether/internal/application/logger"
	"github.com/Luminawater/juketogether/internal/application/metric"
	"github.com/Luminawater/juketogether/internal/domain/models"
	"github.com/Luminawater/juketogether/internal/domain/roomstate"
	"github.com/Luminawater/juketogether/internal/infra/adapters/memory"
	"github.com/Luminawater/juketogether/internal/infra/adapters/metadata"
	"github.com/Luminawater/juketogether/internal/infra/adapters/payment"
	"github.com/Luminawater/juketogether/internal/infra/adapters/postgres"
	"github.com/Luminawater/juketogether/internal/infra/adapters/postgres/repository"
	"github.com/Luminawater/juketogether/internal/infra/adapters/valkey"
	"github.com/Luminawater/juketogether/internal/infra/ports/http/handlers"
	"github.com/Luminawater/juketogether/internal/infra/ports/http/server"
	"github.com/Luminawater/juketogether/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	slog.SetDefault(logger.New(logger.Config{
		Service:   "juketogether",
		Version:   cfg.Logging.Version,
		Env:       logger.ParseEnv(cfg.Logging.Env),
		Backend:   logger.Backend(cfg.Logging.Backend),
		Debug:     cfg.Debug || cfg.Logging.Debug,
		AddSource: cfg.Logging.AddSource,
	}))

	dbConn, err := postgres.NewPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		slog.Error("connect to postgres", slog.Any(constant.Error, err))
		os.Exit(1)
	}
	defer dbConn.Close()

	userRepo := repository.NewUserRepo(dbConn)
	roomRepo := repository.NewRoomRepo(dbConn)
	friendRepo := repository.NewFriendRepo(dbConn)
	boostLedger := repository.NewBoostLedger(dbConn)
	wsConnRepo := memory.NewWSConnectionRepository()

	// без Valkey коды живут в памяти одного инстанса
	var shortCodes roomstate.ShortCodeIndex = memory.NewShortCodeRepository()
	if cfg.Valkey.Addr != "" {
		client, err := valkey.NewClient(ctx, cfg.Valkey.Addr, cfg.Valkey.Password)
		if err != nil {
			slog.Error("connect to valkey", slog.Any(constant.Error, err))
			os.Exit(1)
		}
		defer client.Close()

		shortCodes = valkey.NewShortCodeRepository(client, cfg.Valkey.Prefix)
	}

	fetcher := metadata.NewFetcher(cfg.Engine.MetadataTimeout)
	scraper := metadata.NewScraper(cfg.Engine.AnalysisTimeout)

	registry := roomstate.NewRegistry(
		roomstate.RegistryConfig{
			Options: roomstate.Options{
				Table: models.TierTable{
					FreeQueueLimit:     cfg.Engine.FreeQueueLimit,
					StandardQueueLimit: cfg.Engine.StandardQueueLimit,
					FreeAdEvery:        cfg.Engine.FreeAdEvery,
					StandardAdEvery:    cfg.Engine.StandardAdEvery,
				},
				BoostDuration:  cfg.Engine.BoostDuration,
				PreviousWindow: cfg.Engine.PreviousWindow,
				HistoryTail:    cfg.Engine.HistoryTail,
			},
			IdleTTL:         cfg.Engine.RoomIdleTTL,
			EvictInterval:   cfg.Engine.EvictInterval,
			BoostSweep:      cfg.Engine.BoostSweepInterval,
			AnalysisTimeout: cfg.Engine.AnalysisTimeout,
			MetadataTimeout: cfg.Engine.MetadataTimeout,
			CommandBuffer:   cfg.Engine.CommandBuffer,
		},
		roomstate.RegistryDeps{
			Repo:       roomRepo,
			Profiles:   userRepo,
			ShortCodes: shortCodes,
			Ads:        memory.NewAdInventory(cfg.Engine.AdCreatives),
			Analyzer:   scraper,
			Metadata:   fetcher,
			Out:        wsConnRepo,
			Clock:      clock.Real(),
		},
	)
	go registry.Run(ctx)

	userUsecase := usecase.NewUserUsecase([]byte(cfg.JWTSecret), userRepo, wsConnRepo)
	friendUsecase := usecase.NewFriendUsecase(userRepo, friendRepo, wsConnRepo)
	roomUsecase := usecase.NewRoomUsecase(
		usecase.RoomUsecaseConfig{
			MetadataTimeout: cfg.Engine.MetadataTimeout,
			BoostDuration:   cfg.Engine.BoostDuration,
		},
		registry,
		clock.Real(),
		userRepo,
		friendRepo,
		boostLedger,
		payment.NewReceiptValidator([]byte(cfg.PaymentsSecret), clock.Real()),
		scraper,
	)

	authHandler := handlers.NewAuthHandler(cfg, userUsecase)
	roomHandler := handlers.NewRoomHandler(roomUsecase)
	wsHandler := handlers.NewWebSocketHandler(cfg, wsConnRepo, userUsecase, roomUsecase, friendUsecase)

	echoSrv := server.New(cfg, authHandler, roomHandler, wsHandler)

	metricsSrv := metric.NewServer()

	echoSrvCh := make(chan error, 1)
	metricsSrvCh := make(chan error, 1)

	// Запускаем HTTP сервер
	go func() {
		echoSrvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	// Запускаем сервер метрик
	go func() {
		metricsSrvCh <- metricsSrv.Start(":" + cfg.MetricPort)
	}()

	slog.Info(
		"servers started",
		slog.String("port", cfg.Port),
		slog.String("metric_port", cfg.MetricPort),
	)

	// Ожидаем сигнал завершения или ошибку сервера
	exitCode := 0
	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers due to context cancel")
	case err := <-echoSrvCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", slog.Any(constant.Error, err))
			exitCode = 1
		}
	case err := <-metricsSrvCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", slog.Any(constant.Error, err))
			exitCode = 1
		}
	}

	// Graceful shutdown
	timeoutCtx, timeoutCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
	}

	// комнаты сохраняются после того, как новых команд больше не будет
	if err := registry.Close(timeoutCtx); err != nil {
		slog.Error("Failed to persist rooms on shutdown", slog.Any(constant.Error, err))
	}

	if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
