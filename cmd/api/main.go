package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/quiz-platform/internal/api/http"
	"github.com/spec-kit/quiz-platform/internal/api/http/handlers"
	"github.com/spec-kit/quiz-platform/internal/auth"
	"github.com/spec-kit/quiz-platform/internal/config"
	"github.com/spec-kit/quiz-platform/internal/events"
	"github.com/spec-kit/quiz-platform/internal/observability"
	"github.com/spec-kit/quiz-platform/internal/persistence"
	"github.com/spec-kit/quiz-platform/internal/repository"
	"github.com/spec-kit/quiz-platform/internal/service"
	"github.com/spec-kit/quiz-platform/internal/session"
	"github.com/spec-kit/quiz-platform/internal/worker"
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

	var redisStore *persistence.Redis
	var registry session.Registry
	switch cfg.Session.Backend {
	case "redis":
		redisStore = persistence.NewRedis(cfg.Redis, logger)
		defer redisStore.Close()
		registry = session.NewRedisRegistry(redisStore.Client, cfg.Session.MaxPerUser, cfg.Session.IdleTimeout())
	default:
		registry = session.NewMemoryRegistry(cfg.Session.MaxPerUser, cfg.Session.IdleTimeout())
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Sessions:          registry,
		Dispatcher:        dispatcher,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, metrics, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	unlockWorker := worker.NewUnlockWorker(userRepo, cfg.Auth.LockoutDuration(), cfg.Auth.UnlockSweepInterval(), logger)
	go unlockWorker.Run(ctx)

	sessionGate := auth.NewSessionGate(registry, userRepo, cfg.Session.CookieName, logger)
	gate := auth.NewGate(authService.TokenManager(), userRepo, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisStore),
		Auth:        handlers.NewAuthHandler(authService, cfg.Session.CookieName, cfg.Session.IdleTimeout()),
		Sessions:    handlers.NewSessionsHandler(authService),
		Admin:       handlers.NewAdminHandler(authService),
		SessionGate: sessionGate,
		Gate:        gate,
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
