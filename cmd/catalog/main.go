package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/storefront/internal/api/http"
	"github.com/spec-kit/storefront/internal/api/http/handlers"
	"github.com/spec-kit/storefront/internal/authz"
	"github.com/spec-kit/storefront/internal/cache"
	"github.com/spec-kit/storefront/internal/catalog"
	"github.com/spec-kit/storefront/internal/config"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/observability"
	"github.com/spec-kit/storefront/internal/persistence"
	"github.com/spec-kit/storefront/internal/repository"
	"github.com/spec-kit/storefront/internal/service"
	"github.com/spec-kit/storefront/internal/worker"
)

func main() {
	cfg, err := config.Load("catalog", "3001")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateCatalog(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics("catalog")
	store := cache.NewRedisStore(redis.Client)
	products := repository.NewProductRepository(pg.PoolHandle())

	reader := catalog.NewReader(store, products, catalog.ReaderOptions{
		Namespace: catalog.DefaultNamespace,
		TTL:       cfg.Catalog.CacheTTL(),
		Logger:    logger,
		Metrics:   metrics,
	})
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartCatalogSubscribers(dispatcher, worker.Subscribers{
		Invalidator:   catalog.NewInvalidator(store, catalog.DefaultNamespace, logger, metrics),
		Reader:        reader,
		Notifications: service.NewNotificationService(dispatcher, logger, cfg.Notification),
	})

	catalogService := service.NewCatalogService(service.CatalogDependencies{
		Products:     products,
		Reader:       reader,
		Dispatcher:   dispatcher,
		PurgeTimeout: cfg.Catalog.PurgeTimeout(),
		DefaultLimit: cfg.Catalog.PageLimit(),
		Logger:       logger,
	})
	delegate := authz.NewDelegate(authz.NewIssuerClient(cfg.Issuer.BaseURL, cfg.Issuer.Timeout()), logger, metrics)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterCatalogRoutes(app, httptransport.CatalogRoutes{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Products: handlers.NewProductsHandler(catalogService),
		Delegate: delegate,
		Metrics:  metrics,
	})

	logger.Info("delegating authorization",
		zap.String("issuer", cfg.Issuer.BaseURL),
		zap.Duration("timeout", cfg.Issuer.Timeout()))

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
