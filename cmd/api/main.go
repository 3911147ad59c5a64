package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sundown-service/internal/api/http"
	"github.com/spec-kit/sundown-service/internal/api/http/handlers"
	"github.com/spec-kit/sundown-service/internal/astro"
	"github.com/spec-kit/sundown-service/internal/auth"
	"github.com/spec-kit/sundown-service/internal/config"
	"github.com/spec-kit/sundown-service/internal/events"
	"github.com/spec-kit/sundown-service/internal/integration/nominatim"
	"github.com/spec-kit/sundown-service/internal/integration/sunburst"
	"github.com/spec-kit/sundown-service/internal/integration/twiliosms"
	"github.com/spec-kit/sundown-service/internal/observability"
	"github.com/spec-kit/sundown-service/internal/persistence"
	"github.com/spec-kit/sundown-service/internal/repository"
	"github.com/spec-kit/sundown-service/internal/service"
	"github.com/spec-kit/sundown-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	almanac, err := astro.NewAlmanac()
	if err != nil {
		logger.Fatal("failed to load timezone data", zap.Error(err))
	}

	clientRepo := repository.NewClientRepository(pg.PoolHandle())
	geocoder := nominatim.NewClient(cfg.Nominatim)
	quality := sunburst.NewClient(cfg.Sunburst, sunburst.NewRedisTokenCache(redis.Client), logger)
	messenger := twiliosms.NewClient(cfg.Twilio, logger)
	locks := persistence.NewPhoneLocker(redis)

	dispatcher := events.NewInMemoryDispatcher()
	auditService := service.NewAuditService(dispatcher, logger)
	auditService.RegisterHandlers()

	forecastService := service.NewForecastService(service.ForecastDependencies{
		Geocoder: geocoder,
		Quality:  quality,
		Almanac:  almanac,
	})
	conversationService := service.NewConversationService(service.ConversationDependencies{
		Clients:    clientRepo,
		Geocoder:   geocoder,
		Forecasts:  forecastService,
		Locks:      locks,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	dispatchService := service.NewDispatchService(service.DispatchDependencies{
		Clients:          clientRepo,
		Forecasts:        forecastService,
		Messenger:        messenger,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
		Parallelism:      cfg.Dispatch.Parallelism,
		PerClientTimeout: cfg.Dispatch.PerClientTimeout(),
	})

	scheduler, err := worker.StartDispatchWorker(cfg.Dispatch, dispatchService, logger)
	if err != nil {
		logger.Fatal("failed to start dispatch worker", zap.Error(err))
	}
	if scheduler != nil {
		defer func() { _ = scheduler.Shutdown() }()
	}

	signatureMiddleware := auth.NewSignatureMiddleware(cfg.Twilio, twiliosms.NewRequestValidator(cfg.Twilio), logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Webhook:   handlers.NewWebhookHandler(conversationService, logger),
		Dispatch:  handlers.NewDispatchHandler(dispatchService, metrics),
		Clients:   handlers.NewClientsHandler(clientRepo),
		Signature: signatureMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
