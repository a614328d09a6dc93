package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bilancio/internal/cli"
	"bilancio/internal/services"
	"bilancio/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting bilancio-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	processor := services.NewRecurringProcessor(repo, repo)
	postingWorker := worker.NewPostingWorker(repo, processor, cfg.PostingInterval)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close repository", "error", err)
		}
	})

	logger.Info("Posting worker configured",
		"interval", cfg.PostingInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := postingWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("bilancio-worker shutdown complete")
}
