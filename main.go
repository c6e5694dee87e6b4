package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"

	"github.com/briangreenhill/pacer/internal/activity"
	"github.com/briangreenhill/pacer/internal/config"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	w := os.Stdout
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		logger.Error("Error opening database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	activityService := activity.NewService(db, logger)
	if err := activityService.Migrate(context.Background()); err != nil {
		logger.Error("Error creating table", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(w, os.Args[1:], cfg, logger, activityService); err != nil {
		logger.Error("Error running pacer", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(w io.Writer, args []string, cfg config.Config, logger *slog.Logger, activityService *activity.Service) error {
	cli := activity.NewCLI(w, cfg, logger, activityService, args)

	if err := cli.Run(args); err != nil {
		return err
	}

	return nil
}
