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

	httptransport "github.com/spec-kit/helphub/internal/api/http"
	"github.com/spec-kit/helphub/internal/api/http/handlers"
	"github.com/spec-kit/helphub/internal/auth"
	"github.com/spec-kit/helphub/internal/bot"
	"github.com/spec-kit/helphub/internal/chat"
	"github.com/spec-kit/helphub/internal/chat/discord"
	"github.com/spec-kit/helphub/internal/classify"
	"github.com/spec-kit/helphub/internal/config"
	"github.com/spec-kit/helphub/internal/events"
	"github.com/spec-kit/helphub/internal/ingest"
	"github.com/spec-kit/helphub/internal/observability"
	"github.com/spec-kit/helphub/internal/persistence"
	"github.com/spec-kit/helphub/internal/service"
	"github.com/spec-kit/helphub/internal/store"
	"github.com/spec-kit/helphub/internal/transcribe"
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

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	tickets := buildTicketStore(pg, redis, logger, metrics)

	classifier := classify.NewClient(cfg.Groq)
	transcriber := transcribe.NewClient(cfg.Groq)

	dispatcher := events.NewInMemoryDispatcher()

	adapter := buildChatAdapter(cfg.Chat, logger)

	notifications := service.NewNotificationService(dispatcher, adapter, logger)
	notifications.RegisterHandlers()

	actions := service.NewActionService(tickets, classifier, dispatcher, logger)
	dashboard := service.NewDashboardService(tickets, classifier)

	pipeline := ingest.NewPipeline(ingest.Dependencies{
		Transcriber: transcriber,
		Classifier:  classifier,
		Tickets:     tickets,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})

	if adapter != nil {
		listener := bot.NewListener(adapter, pipeline, actions, dashboard, logger)
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.Error("chat listener stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("no chat transport configured; running dashboard API only")
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Auth:           handlers.NewAuthHandler(cfg.Auth, tokens),
		Tickets:        handlers.NewTicketsHandler(dashboard, actions),
		Dashboard:      handlers.NewDashboardHandler(dashboard),
		Notify:         handlers.NewNotifyHandler(notifications),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if adapter != nil {
		_ = adapter.Close()
	}
	_ = app.Shutdown()
}

// buildTicketStore layers the persistent store behind the Redis cache and the
// in-memory fallback used when Postgres is unavailable.
func buildTicketStore(pg *persistence.Postgres, redis *persistence.Redis, logger *zap.Logger, metrics *observability.Metrics) store.TicketStore {
	var primary store.TicketStore
	if pool := pg.PoolHandle(); pool != nil {
		primary = store.NewPostgresStore(pool)
		primary = store.NewCachedStore(primary, redis.Client, 5*time.Minute, logger)
	}
	return store.NewFallbackStore(primary, store.NewMemoryStore(), logger, metrics)
}

func buildChatAdapter(cfg config.ChatConfig, logger *zap.Logger) chat.Adapter {
	if cfg.BotToken == "" {
		return nil
	}
	switch cfg.Platform {
	case "", "discord":
		adapter, err := discord.New(cfg.BotToken, cfg.ChannelID)
		if err != nil {
			logger.Error("failed to build discord adapter", zap.Error(err))
			return nil
		}
		return adapter
	default:
		logger.Warn("unknown chat platform", zap.String("platform", cfg.Platform))
		return nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
