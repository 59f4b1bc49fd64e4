package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/entitlements-api/internal/application/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/access"
	domainent "github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/cache"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/metrics"
	"github.com/jhoicas/entitlements-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/entitlements-api/internal/interfaces/http"
	"github.com/jhoicas/entitlements-api/pkg/config"
	"github.com/jhoicas/entitlements-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	storeRepo := postgres.NewStoreRepository(pool)
	enterpriseRepo := postgres.NewEnterpriseRepository(pool)
	assignmentRepo := postgres.NewAssignmentRepository(pool)
	overrideRepo := postgres.NewOverrideRepository(pool)
	catalogRepo := postgres.NewCatalogRepository(pool)

	// Un catálogo inválido (ciclo, dependencia o módulo de plan desconocido) aborta el arranque.
	modules, plans, err := entitlement.LoadCatalogs(ctx, catalogRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("catálogos de módulos y planes")
	}

	m := metrics.New()

	loaderDeps := entitlement.LoaderDeps{
		Stores:      storeRepo,
		Enterprises: enterpriseRepo,
		Assignments: assignmentRepo,
		Overrides:   overrideRepo,
		Logger:      log,
		Metrics:     m,
	}
	// Redis es opcional: sin REDIS_ADDR cada instancia usa solo su caché en memoria.
	if cfg.Redis.Enabled() {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer client.Close()
		loaderDeps.Remote = cache.NewSnapshotCache(client, cfg.Redis.Prefix, cfg.Cache.FreshTTL())
	}

	loader := entitlement.NewSnapshotLoader(loaderDeps, entitlement.LoaderConfig{
		FreshTTL:         cfg.Cache.FreshTTL(),
		MaxStale:         cfg.Cache.MaxStale(),
		Size:             cfg.Cache.Size,
		FetchTimeout:     cfg.Fetch.Timeout(),
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout(),
	})

	svc := entitlement.NewService(entitlement.ServiceDeps{
		Resolver:    domainent.NewResolver(modules, plans, nil),
		Loader:      loader,
		Stores:      storeRepo,
		Enterprises: enterpriseRepo,
		Assignments: assignmentRepo,
		Overrides:   overrideRepo,
		Guard: access.NewGuard(access.GuardConfig{
			LoginPath:     cfg.Access.LoginPath,
			DashboardPath: cfg.Access.DashboardPath,
		}),
		Routes:  access.DefaultRouteTable(),
		Logger:  log,
		Metrics: m,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Entitlements API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Entitlements: svc,
		Metrics:      m,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
