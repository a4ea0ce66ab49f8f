package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tempo/internal/amqp"
	"tempo/internal/cli"
	"tempo/internal/log"
	"tempo/internal/tracker"
	"tempo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.SyncEnabled() {
		logger.Error("Tracker sync not configured - set TRACKER_BASE_URL and TRACKER_API_TOKEN")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg)
	defer repo.Close()

	source := tracker.NewClient(cfg.TrackerBaseURL, cfg.TrackerToken, cfg.TrackerPageSize)
	logger.Info("Tracker client initialized", "base_url", cfg.TrackerBaseURL, "page_size", cfg.TrackerPageSize)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, source, cfg.SyncInterval)
	syncWorker.SetResultPublisher(amqpClient)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	// Catch up on tracks recorded while the worker was down.
	logger.Info("Performing startup sync...")
	if err := syncWorker.SyncNow(ctx); err != nil {
		logger.Error("Startup sync failed", "error", err)
		// Don't exit - the periodic loop will retry
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeTrackSync(gctx, func(msg *amqp.TrackSyncRequest) error {
			return syncWorker.HandleSyncRequest(gctx, msg)
		})
	})

	g.Go(func() error {
		return syncWorker.RunPeriodic(gctx)
	})

	logger.Info("Worker started", "sync_interval", cfg.SyncInterval.String())
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
