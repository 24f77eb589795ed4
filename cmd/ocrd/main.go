package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/sunbeam-data/ocr-pipeline/internal/common"
	"github.com/sunbeam-data/ocr-pipeline/internal/extract"
	"github.com/sunbeam-data/ocr-pipeline/internal/repository"
	"github.com/sunbeam-data/ocr-pipeline/internal/server"
	"github.com/sunbeam-data/ocr-pipeline/internal/storage"
	"github.com/sunbeam-data/ocr-pipeline/internal/textract"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	heuristics, err := cfg.LoadHeuristics()
	if err != nil {
		logger.Error("failed to load heuristics", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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
	logger.Info("database health ok")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load aws config", "err", err)
		os.Exit(1)
	}

	store := storage.NewObjectStore(awsCfg, cfg.AWS, logger)
	if err := store.HealthCheck(ctx); err != nil {
		logger.Error("object store health check failed", "err", err)
		os.Exit(1)
	}
	logger.Info("object store health ok", "bucket", cfg.AWS.InputBucket)

	ocrClient := textract.NewClient(awsCfg, logger)
	if err := ocrClient.HealthCheck(ctx); err != nil {
		logger.Error("ocr client health check failed", "err", err)
		os.Exit(1)
	}
	logger.Info("ocr client health ok")

	strategy, err := extract.StrategyByName(cfg.Pipeline.Strategy)
	if err != nil {
		logger.Error("invalid extraction strategy", "err", err)
		os.Exit(1)
	}
	orch := extract.NewOrchestrator(heuristics, ocrClient, strategy, logger)

	docs := repository.NewDocumentRepository(db, logger)
	svc := server.NewService(store, docs, orch, db, ocrClient, logger)
	router := server.NewRouter(svc, cfg.Server.ProcessTimeout, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr, "strategy", strategy.Name())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "err", err)
	}
	logger.Info("stopped")
}
