package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/uniboxhq/unibox/internal/accounts"
	"github.com/uniboxhq/unibox/internal/activity"
	"github.com/uniboxhq/unibox/internal/config"
	"github.com/uniboxhq/unibox/internal/db"
	"github.com/uniboxhq/unibox/internal/dispatch"
	"github.com/uniboxhq/unibox/internal/handlers"
	"github.com/uniboxhq/unibox/internal/inbox"
	"github.com/uniboxhq/unibox/internal/link"
	"github.com/uniboxhq/unibox/internal/logger"
	"github.com/uniboxhq/unibox/internal/mailer"
	"github.com/uniboxhq/unibox/internal/media"
	"github.com/uniboxhq/unibox/internal/message"
	"github.com/uniboxhq/unibox/internal/platform"
	"github.com/uniboxhq/unibox/internal/platform/adapters/facebook"
	"github.com/uniboxhq/unibox/internal/platform/adapters/instagram"
	"github.com/uniboxhq/unibox/internal/platform/adapters/telegram"
	"github.com/uniboxhq/unibox/internal/platform/adapters/whatsapp"
	"github.com/uniboxhq/unibox/internal/server"
	syncpkg "github.com/uniboxhq/unibox/internal/sync"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideRegistry,
			provideMessageStore,
			provideMessageService,
			provideMediaService,
			provideLinkService,
			provideInboxService,
			provideDispatchService,
			provideActivityService,
			provideMailer,
			provideAccountsService,
			provideSyncManager,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideWebhookHandler),
			provideServerHandler(provideSendHandler),
			provideServerHandler(provideMessagesHandler),
			provideServerHandler(providePlatformsHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(provideActivityHandler),
			provideServer,
		),
		fx.Invoke(
			startSyncManager,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
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
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { conn.Close(); return nil }})
	return conn, nil
}

func provideRegistry(log *slog.Logger, cfg config.Config) (*platform.Registry, error) {
	timeout := time.Duration(cfg.Platforms.SendTimeoutSeconds) * time.Second
	registry := platform.NewRegistry()
	for _, adapter := range []platform.Adapter{
		whatsapp.New(log, cfg.Platforms.WhatsApp, timeout),
		telegram.New(log, cfg.Platforms.Telegram),
		facebook.New(log, cfg.Platforms.Facebook, timeout),
		instagram.New(log, cfg.Platforms.Instagram, timeout),
	} {
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func provideMessageStore(pool *pgxpool.Pool) *message.DBStore {
	return message.NewStore(pool)
}

func provideMessageService(log *slog.Logger, store *message.DBStore) *message.Service {
	return message.NewService(log, store)
}

func provideMediaService(log *slog.Logger, pool *pgxpool.Pool, registry *platform.Registry, messages *message.Service) *media.Service {
	svc := media.NewService(log, pool, registry)
	messages.SetMediaRecorder(svc)
	return svc
}

func provideLinkService(log *slog.Logger, pool *pgxpool.Pool) *link.Service {
	return link.NewService(log, pool)
}

func provideInboxService(log *slog.Logger, messages *message.Service) *inbox.Service {
	return inbox.NewService(log, messages)
}

func provideDispatchService(log *slog.Logger, links *link.Service, registry *platform.Registry, messages *message.Service) *dispatch.Service {
	return dispatch.NewService(log, links, registry, messages)
}

func provideActivityService(log *slog.Logger, pool *pgxpool.Pool) *activity.Service {
	return activity.NewService(log, pool)
}

func provideMailer(log *slog.Logger, cfg config.Config) *mailer.Mailer {
	return mailer.New(log, cfg.Mail)
}

func provideAccountsService(log *slog.Logger, pool *pgxpool.Pool, m *mailer.Mailer, recorder *activity.Service, cfg config.Config) (*accounts.Service, error) {
	return accounts.NewService(log, pool, m, recorder, cfg.Auth)
}

func provideSyncManager(log *slog.Logger, cfg config.Config, registry *platform.Registry, links *link.Service, messages *message.Service) *syncpkg.Manager {
	return syncpkg.NewManager(log, cfg.Sync, registry, links, messages)
}

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log)
}

func provideWebhookHandler(log *slog.Logger, registry *platform.Registry, messages *message.Service, links *link.Service) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, registry, messages, links)
}

func provideSendHandler(log *slog.Logger, dispatcher *dispatch.Service, recorder *activity.Service) *handlers.SendHandler {
	return handlers.NewSendHandler(log, dispatcher, recorder)
}

func provideMessagesHandler(log *slog.Logger, inboxService *inbox.Service, mediaService *media.Service) *handlers.MessagesHandler {
	return handlers.NewMessagesHandler(log, inboxService, mediaService)
}

func providePlatformsHandler(log *slog.Logger, links *link.Service, recorder *activity.Service) *handlers.PlatformsHandler {
	return handlers.NewPlatformsHandler(log, links, recorder)
}

func provideAuthHandler(log *slog.Logger, accountService *accounts.Service, recorder *activity.Service) *handlers.AuthHandler {
	return handlers.NewAuthHandler(log, accountService, recorder)
}

func provideActivityHandler(log *slog.Logger, activityService *activity.Service) *handlers.ActivityHandler {
	return handlers.NewActivityHandler(log, activityService)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers)
}

func startSyncManager(lc fx.Lifecycle, manager *syncpkg.Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return manager.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return manager.Stop(ctx)
		},
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

func runMigrate() error {
	cfg, err := provideConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err := db.Migrate(cfg.Postgres); err != nil {
		return err
	}
	logger.L.Info("migrations applied")
	return nil
}
