package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/sunbeam-data/ocr-pipeline/internal/common"
	"github.com/sunbeam-data/ocr-pipeline/internal/repository"
)

// dbinit creates the documents table and its indexes, then exits. Run it
// once against a fresh database before starting ocrd.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL env var is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.HealthCheck(ctx, 3*time.Second); err != nil {
		logger.Error("database health check failed", "err", err)
		os.Exit(1)
	}
	if err := db.InitSchema(ctx, cfg.Database.Driver); err != nil {
		logger.Error("schema init failed", "err", err)
		os.Exit(1)
	}
}
