package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rentals-scraper/config"
	"rentals-scraper/scraper/zonaprop"
	"rentals-scraper/services"
	"rentals-scraper/storage"
	"rentals-scraper/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(os.Stdout, utils.ParseLevel(cfg.LogLevel))

	if err := run(cfg, logger); err != nil {
		logger.Error("Update failed: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Rentals Scraping System starting ===")
	logger.Info("Config: backend %s | concurrency: %d | rate: %dms | max pages: %d | driver: %s",
		cfg.Backend, cfg.MaxConcurrency, cfg.RateLimitMs, cfg.MaxPages, cfg.DBDriver)

	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}
	defer fetcher.Close()

	scraper, err := zonaprop.New(cfg, fetcher, logger)
	if err != nil {
		return err
	}

	pgWriter, err := storage.NewPostgresWriter(cfg.DBDriver, cfg.DSN(), cfg.AtomicReplace)
	if err != nil {
		logger.Error("Make sure Docker is running: docker compose up -d")
		return fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	defer pgWriter.Close()

	opts := []services.Option{services.WithOutlierRemoval(cfg.RemoveOutliers)}
	if cfg.CSVOutputPath != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			return fmt.Errorf("create CSV writer: %w", err)
		}
		defer csvWriter.Close()
		opts = append(opts, services.WithRawWriter(csvWriter))
	}

	svc := services.NewRentalsService(
		scraper,
		pgWriter,
		services.NewPipeline(logger),
		utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		logger,
		opts...,
	)
	if err := svc.Update(ctx); err != nil {
		return err
	}

	stored, err := pgWriter.FetchAll(ctx)
	if err != nil {
		logger.Warn("Failed to fetch rentals from DB for insights: %v", err)
		return nil
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(insightSvc.Generate(stored))

	if cfg.CSVOutputPath != "" {
		fmt.Printf("  Done. Raw CSV → %s | Rentals → PostgreSQL (rentals table)\n\n", cfg.CSVOutputPath)
	}
	return nil
}

func newFetcher(cfg *config.Config, logger *utils.Logger) (zonaprop.Fetcher, error) {
	switch cfg.Backend {
	case config.BackendBrowser:
		return zonaprop.NewBrowserFetcher(cfg, logger)
	case config.BackendCrawler:
		return zonaprop.NewCrawlFetcher(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown SCRAPER_BACKEND %q", cfg.Backend)
	}
}
