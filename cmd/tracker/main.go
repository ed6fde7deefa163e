package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tracker/internal/amqp"
	"tracker/internal/config"
	"tracker/internal/controller"
	apphttp "tracker/internal/http"
	"tracker/internal/identity"
	applog "tracker/internal/log"
	"tracker/internal/store"
	"tracker/internal/store/memory"
	"tracker/internal/store/sqlite"
)

func main() {
	// Load .env for local development; absent in production is fine.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)
	appLogger := logger.WithComponent(applog.ComponentApp)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		appLogger.Error("configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	idStore := identity.NewFileStore(cfg.IdentityPath)
	author, err := idStore.DisplayName()
	if errors.Is(err, identity.ErrNotSet) && cfg.DisplayName != "" {
		if err := idStore.SetDisplayName(cfg.DisplayName); err != nil {
			appLogger.Error("failed to persist display name", applog.FieldError, err)
			os.Exit(1)
		}
		author = cfg.DisplayName
	}
	if author == "" {
		appLogger.Warn("no display name configured; creates are blocked until one is set")
	}

	var st store.Store
	switch cfg.DataBackend {
	case "sqlite":
		var notifier sqlite.Notifier
		if cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				appLogger.Error("failed to initialize AMQP client", applog.FieldError, err)
				os.Exit(1)
			}
			defer client.Close()
			notifier = client
		} else {
			appLogger.Info("AMQP disabled, change notifications will not be published")
		}

		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath, notifier, logger)
		if err != nil {
			appLogger.Error("failed to initialize sqlite store", applog.FieldError, err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		st = repo
	default:
		st = memory.New()
	}
	appLogger.Info("store initialized", "backend", cfg.DataBackend)

	ctrl := controller.New(st, author, logger)
	srv := apphttp.NewServer(":"+cfg.Port, ctrl, idStore, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 0 // the event stream stays open indefinitely
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ctrl.Run(gctx, st)
	})

	g.Go(func() error {
		appLogger.Info("starting server", applog.FieldOperation, applog.OpStartup, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		appLogger.Info("shutting down", applog.FieldOperation, applog.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("server exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	appLogger.Info("server stopped gracefully")
}
