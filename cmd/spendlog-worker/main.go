package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"spendlog/internal/amqp"
	"spendlog/internal/cli"
	"spendlog/internal/sheets/google"
	"spendlog/internal/worker"

	"golang.org/x/sync/errgroup"
)

const statsInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(slog.LevelInfo)
	cfg := cli.LoadAndValidateWorkerConfig(logger)
	logger = cli.SetupLogger(cfg.Level())

	logger.Info("Starting spendlog-worker", "queue", cfg.AMQPQueue, "sheet", cfg.GoogleSheetName)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	mirror, err := google.New(ctx, google.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if err := mirror.EnsureHeader(ctx); err != nil {
		logger.Error("Failed to prepare mirror sheet", "error", err, "spreadsheet_id", cfg.GoogleSpreadsheetID)
		os.Exit(1)
	}
	logger.Info("Google Sheets mirror ready", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(mirror)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeExpenseEvents(gctx, syncWorker.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				st := syncWorker.Stats()
				logger.Info("Mirror sync stats", "processed", st.Processed, "failed", st.Failed)
			}
		}
	})

	// the consumer has returned, so the connection can go
	consumeErr := g.Wait()
	if err := amqpClient.Close(); err != nil {
		logger.Warn("Failed to close AMQP client", "error", err)
	}
	if consumeErr != nil {
		logger.Error("Message consumption failed", "error", consumeErr)
		os.Exit(1)
	}

	st := syncWorker.Stats()
	logger.Info("Worker stopped gracefully", "processed", st.Processed, "failed", st.Failed)
}
