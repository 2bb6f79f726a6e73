package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/warp/rental-ledger/api"
	"github.com/warp/rental-ledger/backup"
	"github.com/warp/rental-ledger/config"
	"github.com/warp/rental-ledger/logger"
	"github.com/warp/rental-ledger/metrics"
	"github.com/warp/rental-ledger/rental"
)

// Module composes the whole server graph. Extra options are appended last
// so tests can replace providers with fx.Decorate or fx.Replace.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		fx.Provide(
			newStore,
			newEngine,
			newMetrics,
			newBackupScheduler,
			newHandler,
			newRouter,
			newHTTPServer,
		),
		fx.Invoke(registerLifecycle),
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

type storeParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newStore(p storeParams) (rental.Store, error) {
	store, closer, err := OpenStore(p.Config.StoreKind, p.Config.DataFile)
	if err != nil {
		return nil, err
	}
	p.Logger.Info("ledger store opened",
		slog.String("kind", p.Config.StoreKind),
		slog.String("path", p.Config.DataFile))
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return closer.Close() },
	})
	return store, nil
}

func newEngine(store rental.Store, cfg *config.Config, logger *slog.Logger) *rental.Engine {
	return rental.NewEngine(store, cfg.Defaults(), logger)
}

func newMetrics(engine *rental.Engine) *metrics.Registry {
	return metrics.NewRegistry(engine.Summary)
}

// newBackupScheduler returns nil when no backup directory is configured.
func newBackupScheduler(engine *rental.Engine, cfg *config.Config, logger *slog.Logger) *backup.Scheduler {
	if cfg.BackupDir == "" {
		return nil
	}
	s := backup.NewScheduler(engine, cfg.BackupDir, logger)
	s.CheckInterval = cfg.BackupInterval
	s.Keep = cfg.BackupKeep
	s.Now = engine.Now
	return s
}

func newHandler(engine *rental.Engine, reg *metrics.Registry, backups *backup.Scheduler, logger *slog.Logger) *api.Handler {
	h := api.NewHandler(engine, reg, logger)
	h.Backups = backups
	return h
}

func newRouter(h *api.Handler, cfg *config.Config) http.Handler {
	return api.NewRouter(h, api.RouterOptions{
		AllowedOrigins: cfg.CORSOrigins,
		Scenarios:      cfg.Scenarios,
	})
}

type serverParams struct {
	fx.In

	Config *config.Config
	Router http.Handler
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:         p.Config.RunAddress,
		Handler:      p.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Backups    *backup.Scheduler
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info("starting rental ledger", slog.String("addr", p.Server.Addr))
			if p.Backups != nil {
				p.Backups.Start()
			}
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if p.Backups != nil {
				p.Backups.Stop()
			}

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("rental ledger stopped")
			return nil
		},
	})
}
