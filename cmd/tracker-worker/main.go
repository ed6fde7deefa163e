package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tracker/internal/amqp"
	"tracker/internal/config"
	applog "tracker/internal/log"
	"tracker/internal/sheets"
	"tracker/internal/store/sqlite"
	"tracker/internal/worker"
)

func main() {
	// Load .env for local development; absent in production is fine.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)
	appLogger := logger.WithComponent(applog.ComponentApp)

	appLogger.Info("starting tracker-worker", applog.FieldOperation, applog.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		appLogger.Error("configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		appLogger.Error("AMQP_URL is required, the worker has no other change source")
		os.Exit(1)
	}

	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath, nil, logger)
	if err != nil {
		appLogger.Error("failed to initialize sqlite store", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	if cfg.GoogleSpreadsheetID == "" {
		appLogger.Error("GOOGLE_SPREADSHEET_ID is required, the worker only exists to mirror changes")
		os.Exit(1)
	}
	journal, err := sheets.NewFromEnv(context.Background())
	if err != nil {
		appLogger.Error("failed to initialize sheets journal", applog.FieldError, err)
		os.Exit(1)
	}
	appLogger.Info("sheets journal initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		appLogger.Error("failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(repo, journal, logger)

	// Failed messages are requeued; pause before handing one back so a
	// broken journal does not spin the queue.
	handle := func(ctx context.Context, msg *amqp.ChangeMessage) error {
		err := mirror.HandleChange(ctx, msg)
		if err != nil {
			select {
			case <-ctx.Done():
			case <-time.After(cfg.MirrorRetryDelay):
			}
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeChanges(gctx, handle)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("worker exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	appLogger.Info("worker stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
