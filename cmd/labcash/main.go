package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"labcash/internal/cache"
	"labcash/internal/cli"
	"labcash/internal/finance"
	apphttp "labcash/internal/http"
	applog "labcash/internal/log"
	"labcash/internal/services"
	"labcash/internal/store"
	"labcash/internal/summary"
)

const (
	reportCacheSize = 24
	shutdownTimeout = 30 * time.Second
)

func main() {
	envFile := flag.String("env", "", "path to a .env file (default ./.env if present)")
	flag.Parse()

	cfg, err := cli.LoadConfig(*envFile)
	if err != nil {
		cli.Fatal(cli.SetupLogger("info", applog.ComponentApp), "Failed to load configuration", err)
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	be, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	// Reports are cached per month and dropped whenever a record of that
	// month changes.
	reportCache := cache.NewLRUCache[finance.Report](reportCacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger.Logger.With(applog.FieldComponent, applog.ComponentCache))
	cacheManager.Register(reportCache)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	reportOpts := []services.ReportOption{services.WithCache(reportCache)}
	if cfg.GeminiAPIKey != "" {
		gen := summary.NewClient(summary.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.SummaryTimeout,
		})
		reportOpts = append(reportOpts, services.WithGenerator(gen, cfg.SummaryTimeout))
	} else {
		logger.Info("AI summary disabled - no GEMINI_API_KEY provided")
	}

	// The report service needs the store and the store notifies the report
	// service, so the notifier list is filled in after both exist.
	notifiers := store.Notifiers{}
	records := store.New(be.Blobs, store.WithNotifier(&notifiers))

	reports := services.NewReportService(records, reportOpts...)
	notifiers = append(notifiers, reports)
	if be.Notifier != nil {
		notifiers = append(notifiers, be.Notifier)
	}

	srv := apphttp.NewServer(":"+cfg.Port, records, reports, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	}()

	logger.Info("Starting labcash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", be.Notifier != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
