// Package server wires configuration, storage and HTTP routes into a running API.
package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/returnsdesk/oem-returns/internal/api/http"
	"github.com/returnsdesk/oem-returns/internal/api/http/handlers"
	"github.com/returnsdesk/oem-returns/internal/auth"
	"github.com/returnsdesk/oem-returns/internal/cache"
	"github.com/returnsdesk/oem-returns/internal/config"
	"github.com/returnsdesk/oem-returns/internal/events"
	"github.com/returnsdesk/oem-returns/internal/observability"
	"github.com/returnsdesk/oem-returns/internal/persistence"
	"github.com/returnsdesk/oem-returns/internal/repository"
	"github.com/returnsdesk/oem-returns/internal/service"
)

// Run serves the API until ctx is canceled.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger = observability.WithService(logger, cfg.App)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	dependencies := map[string]handlers.Pinger{"postgres": pg}
	recordCache := cache.NewRedisRecordCache(nil, 0)
	if cfg.Cache.Enabled {
		recordCache = cache.NewRedisRecordCache(redis.Client, cfg.Cache.TTL())
		dependencies["redis"] = redis
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, cfg.Notification).RegisterHandlers()

	pool := pg.PoolHandle()
	returnService := service.NewReturnService(service.ReturnDependencies{
		ReturnRepo:  repository.NewReturnRepository(pool),
		HistoryRepo: repository.NewHistoryRepository(pool),
		Cache:       recordCache,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Returns:        handlers.NewReturnsHandler(returnService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.Shutdown()
	}
}
