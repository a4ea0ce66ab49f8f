package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"tempo/internal/amqp"
	"tempo/internal/cli"
	"tempo/internal/export"
	"tempo/internal/export/sheets"
	apphttp "tempo/internal/http"
	"tempo/internal/log"
	"tempo/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg)
	defer repo.Close()

	// AMQP publisher for on-demand sync requests (optional).
	var publisher apphttp.SyncPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - manual sync endpoint unavailable")
	}

	// Google Sheets report writer (optional).
	var reportWriter export.ReportWriter
	if cfg.ExportEnabled() {
		sheetsClient, err := sheets.NewClient(context.Background(), cfg.SheetsSpreadsheetID, cfg.SheetsSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		reportWriter = sheetsClient
		logger.Info("Google Sheets export initialized", "spreadsheet_id", cfg.SheetsSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no SHEETS_SPREADSHEET_ID provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Storage:   repo,
		Goals:     services.NewGoalService(repo),
		Audits:    services.NewAuditService(repo),
		Analytics: services.NewAnalyticsService(repo),
		Exporter:  services.NewExportService(repo, reportWriter),
		Publisher: publisher,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting tempo server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
