package main

import (
	"context"
	"errors"
	"flag"
	"time"

	"golang.org/x/sync/errgroup"

	"labcash/internal/amqp"
	"labcash/internal/backend"
	"labcash/internal/cli"
	applog "labcash/internal/log"
	"labcash/internal/services"
	"labcash/internal/sheets"
	gsheet "labcash/internal/sheets/google"
	memsheet "labcash/internal/sheets/memory"
	"labcash/internal/store"
	"labcash/internal/worker"
)

func main() {
	envFile := flag.String("env", "", "path to a .env file (default ./.env if present)")
	flag.Parse()

	cfg, err := cli.LoadConfig(*envFile)
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", applog.ComponentWorker), "Failed to load configuration", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)
	logger.Info("Starting labcash-worker")

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if backend.BackendType(cfg.DataBackend) == backend.MemoryBackend {
		logger.Warn("Memory backend cannot see records written by the API process; exports will be empty")
	}

	// The worker consumes on its own connection; the backend must not
	// open a publisher as well.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	be, err := cli.OpenBackend(ctx, logger, &storeCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	// Every report is rebuilt from a fresh read of the blobs.
	reports := services.NewReportService(store.NewReader(be.Blobs))

	var writer sheets.StatementWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		}
		writer = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memsheet.New()
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, reports are kept in memory")
	}

	var journal worker.ExportJournal
	if be.Journal != nil {
		journal = be.Journal
	}
	exporter := worker.NewExportWorker(reports, writer, journal, cfg.ExportDebounce)

	logger.Info("Performing startup export check...")
	if err := exporter.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", applog.FieldError, err)
	}

	scheduler := worker.NewScheduler(cfg.CloseCron, exporter, time.Local)
	if err := scheduler.Start(); err != nil {
		cli.Fatal(logger, "Failed to start monthly close scheduler", err)
	}
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return exporter.Run(gctx)
	})

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.Consume(gctx, exporter.HandleMessage)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		logger.Info("Consuming record changes", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - only the monthly close will export")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		return
	}
	logger.Info("Worker stopped gracefully")
}
