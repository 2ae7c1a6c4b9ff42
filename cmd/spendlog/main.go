package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"spendlog/internal/amqp"
	"spendlog/internal/backend"
	"spendlog/internal/cli"
	apphttp "spendlog/internal/http"
	applog "spendlog/internal/log"
	"spendlog/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(slog.LevelInfo)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.Level())

	logger.Info("Starting spendlog", "port", cfg.Port, "backend", cfg.DataBackend)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var opts []services.Option
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(context.Background(), cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
			amqpClient = nil
		} else {
			opts = append(opts, services.WithPublisher(amqpClient))
			logger.Info("AMQP client initialized, changes will be mirrored by spendlog-worker", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled, changes will not be mirrored")
	}

	svc := services.NewExpenseService(result.Repository, opts...)
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             applog.Wrap(logger, applog.ComponentHTTP),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies:     cfg.TrustedProxies,
	})

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	// The server stops on a shutdown signal or when serving fails.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		return nil
	})
	serveErr := g.Wait()

	if amqpClient != nil {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", "error", err)
		}
	}
	if result.Cleanup != nil {
		if err := result.Cleanup(); err != nil {
			logger.Warn("Failed to close record store", "error", err)
		}
	}

	if serveErr != nil {
		logger.Error("Server error", "error", serveErr, "port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
