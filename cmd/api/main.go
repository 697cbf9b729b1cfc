package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/signalbay/outreach-engine/internal/config"
	"github.com/signalbay/outreach-engine/internal/handler"
	"github.com/signalbay/outreach-engine/internal/infra/postgresql"
	"github.com/signalbay/outreach-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/signalbay/outreach-engine/internal/infra/redis"
	"github.com/signalbay/outreach-engine/internal/observability"
	"github.com/signalbay/outreach-engine/internal/provider"
	"github.com/signalbay/outreach-engine/internal/repository"
	"github.com/signalbay/outreach-engine/internal/service"
	"github.com/signalbay/outreach-engine/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	voice, err := provider.NewVoiceGatewayProvider(cfg.VoiceGatewayURL)
	if err != nil {
		logger.Fatal("voice gateway provider initialization failed", zap.Error(err))
	}
	messenger, err := provider.NewBulkMessengerProvider(cfg.MessengerURL)
	if err != nil {
		logger.Fatal("messenger provider initialization failed", zap.Error(err))
	}

	recipientRepo := repository.NewGormRecipientRepo(db)
	batchRepo := repository.NewGormBatchRepo(db)
	scheduleRepo := repository.NewGormScheduleRepo(db)
	reminderRepo := repository.NewGormReminderRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	metrics := observability.NewMetrics()

	registry, err := service.NewRegistryService(recipientRepo, batchRepo, logger)
	if err != nil {
		logger.Fatal("registry service initialization failed", zap.Error(err))
	}

	dispatcher, err := service.NewDispatcher(registry, attemptRepo, voice, limiter, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	thresholds, err := service.NewThresholdScheduler(scheduleRepo, recipientRepo, dispatcher, logger)
	if err != nil {
		logger.Fatal("threshold scheduler initialization failed", zap.Error(err))
	}
	thresholds.SetMetrics(metrics)

	reminders, err := service.NewReminderScheduler(reminderRepo, messenger, logger)
	if err != nil {
		logger.Fatal("reminder scheduler initialization failed", zap.Error(err))
	}
	reminders.SetMetrics(metrics)

	distributions, err := service.NewDistributionService(registry, thresholds, reminders, logger)
	if err != nil {
		logger.Fatal("distribution service initialization failed", zap.Error(err))
	}

	pollInterval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	poller, err := service.NewPoller(thresholds, reminders, pollInterval, logger)
	if err != nil {
		logger.Fatal("poller initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "outreach-engine",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(transport.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterDistributionRoutes(app, distributions, registry, scheduleRepo, reminderRepo); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("outreach-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(listenAddr(cfg.APIPort))
	})

	g.Go(func() error {
		logger.Info("background poller started", zap.Duration("interval", pollInterval))
		return poller.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", zap.Error(err))
	}
	logger.Info("outreach-engine stopped")
}

func listenAddr(port int) string {
	return fmt.Sprintf(":%d", port)
}
