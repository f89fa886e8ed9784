package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/pagebridge/pagebridge/internal/catalog"
	"github.com/pagebridge/pagebridge/internal/config"
	"github.com/pagebridge/pagebridge/internal/customer"
	"github.com/pagebridge/pagebridge/internal/db"
	"github.com/pagebridge/pagebridge/internal/event"
	"github.com/pagebridge/pagebridge/internal/facebook"
	"github.com/pagebridge/pagebridge/internal/handlers"
	"github.com/pagebridge/pagebridge/internal/ledger"
	"github.com/pagebridge/pagebridge/internal/logger"
	"github.com/pagebridge/pagebridge/internal/pending"
	"github.com/pagebridge/pagebridge/internal/relay"
	"github.com/pagebridge/pagebridge/internal/server"
	"github.com/pagebridge/pagebridge/internal/telegram"
	"github.com/pagebridge/pagebridge/internal/thread"
	"github.com/pagebridge/pagebridge/internal/translate"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideTranslateService,
			provideFacebookClient,
			provideFacebookDeliverer,
			provideProfileNames,
			provideCustomerService,
			provideThreadService,
			provideLedgerService,
			provideCatalogService,
			providePendingService,
			providePendingJanitor,
			provideEventHub,
			provideTelegramClient,
			provideRelayService,
			provideListener,
			provideWebhookHandler,
			providePingHandler,
			provideLabelsHandler,
			provideQuickRepliesHandler,
			provideDashboardHandler,
			provideServer,
		),
		fx.Invoke(
			startJanitor,
			startListener,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideTranslateService(log *slog.Logger, cfg config.Config) *translate.Service {
	client := translate.NewClient(cfg.Translator.Timeout())
	cache := translate.NewCache(cfg.Translator.CacheMaxSize, cfg.Translator.CacheTTL())
	return translate.NewService(log, client, cache, cfg.Translator.OperatorLang, cfg.Translator.CustomerLang)
}

func provideFacebookClient(log *slog.Logger, cfg config.Config) *facebook.Client {
	return facebook.NewClient(log, cfg.Facebook.GraphBaseURL, 0)
}

func provideFacebookDeliverer(client *facebook.Client, cfg config.Config) *facebook.Deliverer {
	return facebook.NewDeliverer(client, cfg.Pages)
}

func provideProfileNames(client *facebook.Client) *facebook.ProfileNames {
	return facebook.NewProfileNames(client)
}

func provideCustomerService(log *slog.Logger, pool *pgxpool.Pool, profiles *facebook.ProfileNames) *customer.Service {
	return customer.NewService(log, customer.NewPGStore(pool), profiles)
}

func provideThreadService(log *slog.Logger, pool *pgxpool.Pool) *thread.Service {
	return thread.NewService(log, thread.NewPGStore(pool))
}

func provideLedgerService(log *slog.Logger, pool *pgxpool.Pool) *ledger.Service {
	return ledger.NewService(log, ledger.NewPGStore(pool))
}

func provideCatalogService(log *slog.Logger, pool *pgxpool.Pool) *catalog.Service {
	return catalog.NewService(log, catalog.NewPGStore(pool))
}

func providePendingService(log *slog.Logger, pool *pgxpool.Pool, translator *translate.Service, deliverer *facebook.Deliverer, ledgerSvc *ledger.Service) *pending.Service {
	return pending.NewService(log, pending.NewPGStore(pool), translator, deliverer, ledgerSvc)
}

func providePendingJanitor(log *slog.Logger, svc *pending.Service, cfg config.Config) *pending.Janitor {
	return pending.NewJanitor(log, svc, cfg.Pending.MaxAge())
}

func provideEventHub(log *slog.Logger) *event.Hub {
	return event.NewHub(log)
}

func provideTelegramClient(log *slog.Logger, cfg config.Config) (*telegram.Client, error) {
	return telegram.NewClient(log, cfg.Telegram.BotToken, cfg.Telegram.GroupID)
}

func provideRelayService(
	log *slog.Logger,
	cfg config.Config,
	tg *telegram.Client,
	customers *customer.Service,
	translator *translate.Service,
	threads *thread.Service,
	pendings *pending.Service,
	cat *catalog.Service,
	ledgerSvc *ledger.Service,
	deliverer *facebook.Deliverer,
	hub *event.Hub,
) *relay.Service {
	return relay.NewService(log, cfg, tg, customers, translator, threads, pendings, cat, ledgerSvc, deliverer, hub)
}

func provideListener(log *slog.Logger, tg *telegram.Client, relaySvc *relay.Service) *telegram.Listener {
	return telegram.NewListener(log, tg, relaySvc)
}

func provideWebhookHandler(log *slog.Logger, relaySvc *relay.Service, cfg config.Config) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, relaySvc, cfg.Facebook.VerifyToken)
}

func providePingHandler(log *slog.Logger, cfg config.Config) *handlers.PingHandler {
	return handlers.NewPingHandler(log, len(cfg.Pages))
}

func provideLabelsHandler(cat *catalog.Service) *handlers.LabelsHandler {
	return handlers.NewLabelsHandler(cat)
}

func provideQuickRepliesHandler(cat *catalog.Service) *handlers.QuickRepliesHandler {
	return handlers.NewQuickRepliesHandler(cat)
}

func provideDashboardHandler(log *slog.Logger, hub *event.Hub) *handlers.DashboardHandler {
	return handlers.NewDashboardHandler(log, hub)
}

func provideServer(
	log *slog.Logger,
	cfg config.Config,
	webhookHandler *handlers.WebhookHandler,
	pingHandler *handlers.PingHandler,
	labelsHandler *handlers.LabelsHandler,
	quickRepliesHandler *handlers.QuickRepliesHandler,
	dashboardHandler *handlers.DashboardHandler,
) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, webhookHandler, pingHandler, labelsHandler, quickRepliesHandler, dashboardHandler)
}

func startJanitor(lc fx.Lifecycle, janitor *pending.Janitor) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { return janitor.Start() },
		OnStop:  func(_ context.Context) error { janitor.Stop(); return nil },
	})
}

func startListener(lc fx.Lifecycle, listener *telegram.Listener) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return listener.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return listener.Stop(ctx) },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Info("starting server",
				slog.String("addr", cfg.Server.Addr),
				slog.Int("pages", len(cfg.Pages)))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
