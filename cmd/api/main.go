package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/SpectrexWizard/Q-Reserve/internal/access"
	httptransport "github.com/SpectrexWizard/Q-Reserve/internal/api/http"
	"github.com/SpectrexWizard/Q-Reserve/internal/api/http/handlers"
	"github.com/SpectrexWizard/Q-Reserve/internal/auth"
	"github.com/SpectrexWizard/Q-Reserve/internal/config"
	"github.com/SpectrexWizard/Q-Reserve/internal/events"
	"github.com/SpectrexWizard/Q-Reserve/internal/observability"
	"github.com/SpectrexWizard/Q-Reserve/internal/persistence"
	"github.com/SpectrexWizard/Q-Reserve/internal/repository"
	"github.com/SpectrexWizard/Q-Reserve/internal/service"
	"github.com/SpectrexWizard/Q-Reserve/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisConn := persistence.NewRedis(cfg.Redis, logger)
	defer redisConn.Close()

	visibility, ok := access.ParseAgentVisibility(cfg.Access.AgentVisibility)
	if !ok {
		logger.Fatal("invalid agent visibility", zap.String("value", cfg.Access.AgentVisibility))
	}
	policy := access.NewPolicy(visibility)

	pool := pg.PoolHandle()
	store := repository.NewStore(pool)
	txManager := repository.NewTxManager(pool)
	dispatcher := events.NewInMemoryDispatcher()

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Tx:         txManager,
		Policy:     policy,
		SLA:        cfg.SLA,
		Dispatcher: dispatcher,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		Store:      store,
		Tx:         txManager,
		Policy:     policy,
		Dispatcher: dispatcher,
	})
	voteService := service.NewVoteService(service.VoteDependencies{
		Store:  store,
		Tx:     txManager,
		Policy: policy,
	})
	categoryService := service.NewCategoryService(service.CategoryDependencies{
		Store: store,
		Tx:    txManager,
	})
	userService := service.NewUserService(service.UserDependencies{
		Store: store,
		Tx:    txManager,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification, redisConn)
	worker.StartNotificationWorker(notificationService, cfg.Notification, logger)

	actorMiddleware := auth.NewActorMiddleware(userService)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisConn, metrics),
		Tickets:    handlers.NewTicketsHandler(ticketService),
		Comments:   handlers.NewCommentsHandler(commentService),
		Votes:      handlers.NewVotesHandler(voteService),
		Categories: handlers.NewCategoriesHandler(categoryService),
		Users:      handlers.NewUsersHandler(userService),
		Actor:      actorMiddleware,
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
