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

	"github.com/darsbot/darsbot/internal/channel"
	"github.com/darsbot/darsbot/internal/channel/telegram"
	"github.com/darsbot/darsbot/internal/config"
	"github.com/darsbot/darsbot/internal/db"
	"github.com/darsbot/darsbot/internal/digest"
	"github.com/darsbot/darsbot/internal/flow"
	"github.com/darsbot/darsbot/internal/intake"
	"github.com/darsbot/darsbot/internal/logger"
	"github.com/darsbot/darsbot/internal/school"
	"github.com/darsbot/darsbot/internal/server"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideStore,
			provideAdapter,
			provideGateway,
			provideIntake,
			provideFlow,
			provideDigest,
			provideServer,
		),
		fx.Invoke(
			startPoller,
			startDigest,
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

func provideStore(log *slog.Logger, conn *pgxpool.Pool) *school.Store {
	return school.NewStore(log, conn)
}

func provideAdapter(log *slog.Logger, cfg config.Config) (*telegram.Adapter, error) {
	return telegram.New(log, cfg.Telegram.Token, cfg.Telegram.PollTimeoutSeconds)
}

func provideGateway(adapter *telegram.Adapter) channel.Gateway { return adapter }

func provideIntake(log *slog.Logger, store *school.Store, gateway channel.Gateway, cfg config.Config) *intake.Service {
	return intake.NewService(log, store, gateway, cfg.Media.Root, intake.Limits{
		MaxVideoSeconds:  cfg.Media.MaxVideoSeconds,
		MaxVideoBytes:    cfg.Media.MaxVideoBytes,
		MaxDocumentBytes: cfg.Media.MaxDocumentBytes,
	})
}

func provideFlow(log *slog.Logger, store *school.Store, gateway channel.Gateway, media *intake.Service) *flow.Service {
	return flow.NewService(log, store, gateway, media)
}

func provideDigest(log *slog.Logger, cfg config.Config, store *school.Store, gateway channel.Gateway) *digest.Service {
	return digest.NewService(log, store, gateway, cfg.Digest.Schedule)
}

func provideServer(log *slog.Logger, cfg config.Config, conn *pgxpool.Pool) *server.Server {
	return server.NewServer(log, cfg.Server.Addr, conn)
}

func startPoller(lc fx.Lifecycle, logger *slog.Logger, adapter *telegram.Adapter, machine *flow.Service, shutdowner fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				if err := adapter.Listen(ctx, machine.Handle); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("poller stopped", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func startDigest(lc fx.Lifecycle, cfg config.Config, svc *digest.Service) {
	if !cfg.Digest.Enabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error { return svc.Start() },
		OnStop:  func(_ context.Context) error { svc.Stop(); return nil },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
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
