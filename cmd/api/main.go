package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/pharmacy-helpdesk/internal/api/http"
	"github.com/spec-kit/pharmacy-helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/pharmacy-helpdesk/internal/auth"
	"github.com/spec-kit/pharmacy-helpdesk/internal/config"
	"github.com/spec-kit/pharmacy-helpdesk/internal/events"
	"github.com/spec-kit/pharmacy-helpdesk/internal/observability"
	"github.com/spec-kit/pharmacy-helpdesk/internal/persistence"
	"github.com/spec-kit/pharmacy-helpdesk/internal/repository"
	"github.com/spec-kit/pharmacy-helpdesk/internal/service"
	"github.com/spec-kit/pharmacy-helpdesk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	if pg.Configured() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var repos repository.Repositories
	if pg.Configured() {
		repos = repository.NewPostgresRepositories(pg.Pool())
	} else {
		repos = repository.NewMemoryRepositories(repository.NewMemoryStore())
	}

	var revocations auth.RevocationStore = auth.NoopRevocationStore{}
	if redis.Configured() {
		revocations = auth.NewRedisRevocationStore(redis.Client)
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:    repos.Users,
		Revocations: revocations,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.Tickets,
		HistoryRepo: repos.History,
		Transactor:  repos.Tx,
		Dispatcher:  dispatcher,
		Pagination:  cfg.Pagination,
		Logger:      logger,
	})
	noteService := service.NewTicketNoteService(service.TicketNoteDependencies{
		TicketRepo: repos.Tickets,
		NoteRepo:   repos.Notes,
		Transactor: repos.Tx,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	if seed := cfg.Auth.PharmacistSeed; seed.Enabled() {
		seedPharmacist(ctx, authService, seed, logger)
	}

	metrics := observability.NewMetrics()
	app := httptransport.NewApp(httptransport.AppConfig{
		Name:           cfg.App.Name,
		Logger:         logger,
		Metrics:        metrics,
		RequestTimeout: cfg.App.RequestTimeout(),
		Routes: httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
			Auth:           handlers.NewAuthHandler(authService),
			Tickets:        handlers.NewTicketsHandler(ticketService),
			Notes:          handlers.NewTicketNotesHandler(noteService),
			AuthMiddleware: auth.NewMiddleware(authService),
		},
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func seedPharmacist(ctx context.Context, authService *service.AuthService, seed config.SeedAccount, logger *zap.Logger) {
	user, created, err := authService.EnsurePharmacist(ctx, service.RegisterInput{
		Email:    seed.Email,
		Username: seed.Username,
		Password: seed.Password,
	})
	if err != nil {
		logger.Fatal("failed to seed pharmacist", zap.String("email", seed.Email), zap.Error(err))
	}
	if created {
		logger.Info("pharmacist account created", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
		return
	}
	logger.Info("pharmacist account already present", zap.String("email", seed.Email))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
