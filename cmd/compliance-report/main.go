package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/sunbeam-data/ocr-pipeline/internal/common"
	"github.com/sunbeam-data/ocr-pipeline/internal/export"
	"github.com/sunbeam-data/ocr-pipeline/internal/repository"
)

// compliance-report writes an XLSX of every document flagged for prohibited
// items to the given path.
func main() {
	out := flag.String("out", "compliance-report.xlsx", "output file path")
	flag.Parse()

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

	svc := export.NewService(repository.NewDocumentRepository(db, logger), logger)
	blob, err := svc.ComplianceReportXLSX(ctx)
	if err != nil {
		logger.Error("report generation failed", "err", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, blob, 0o644); err != nil {
		logger.Error("write report", "path", *out, "err", err)
		os.Exit(1)
	}
	logger.Info("report written", "path", *out, "bytes", len(blob))
}
