package main

import (
	"context"
	"os"

	"bilancio/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	menu := cli.NewMenu(repo, cfg)
	if err := menu.Run(context.Background()); err != nil {
		logger.Error("Menu exited with error", "error", err)
		os.Exit(1)
	}
}
