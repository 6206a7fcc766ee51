package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/enrollment-lookup/internal/api/http"
	"github.com/spec-kit/enrollment-lookup/internal/api/http/handlers"
	"github.com/spec-kit/enrollment-lookup/internal/config"
	"github.com/spec-kit/enrollment-lookup/internal/observability"
	"github.com/spec-kit/enrollment-lookup/internal/persistence"
	"github.com/spec-kit/enrollment-lookup/internal/repository"
	"github.com/spec-kit/enrollment-lookup/internal/service"
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
		logger.Fatal("failed to configure postgres", zap.Error(err))
	}
	defer pg.Close()

	if pool := pg.PoolHandle(); cfg.Postgres.RunMigrations && pool != nil {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	repos := repository.New(pg.DB(), logger, metrics)
	catalog := service.NewCatalogService(service.CatalogDependencies{
		DepartmentRepo: repos.Departments,
		StrandRepo:     repos.Strands,
		CourseRepo:     repos.Courses,
	}, logger)

	var limiter *httptransport.RateLimiter
	if cfg.RateLimit.Enabled() {
		limiter = httptransport.NewRateLimiter(redis, cfg.RateLimit.Requests, cfg.RateLimit.Window(), logger)
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Lookup:      handlers.NewLookupHandler(catalog),
		Metrics:     metrics,
		Database:    pg,
		RateLimiter: limiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
