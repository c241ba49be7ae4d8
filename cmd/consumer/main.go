// Command consumer records product.created events to a log file.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/product-catalog/internal/config"
	"github.com/iliyamo/product-catalog/internal/logger"
	"github.com/iliyamo/product-catalog/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// run consumes until ctx is cancelled; cancellation is a clean stop.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)

	events, err := config.LoadEventsConfig()
	if err != nil {
		return err
	}

	c := &queue.Consumer{URL: events.URL, Queue: events.Queue, LogDir: events.LogDir, Logger: log}
	log.Info("consuming", slog.String("queue", events.Queue), slog.String("log_dir", events.LogDir))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
