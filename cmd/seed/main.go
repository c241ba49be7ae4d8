// Command seed populates an empty catalog with the default products.  It
// exits non-zero on any failure and always releases the database pool.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/iliyamo/product-catalog/internal/config"
	"github.com/iliyamo/product-catalog/internal/database"
	"github.com/iliyamo/product-catalog/internal/logger"
	"github.com/iliyamo/product-catalog/internal/repository"
	"github.com/iliyamo/product-catalog/internal/seed"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)

	db, err := database.Open(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = seed.NewLoader(repository.NewProductRepo(db), log).IfEmpty(ctx, seed.DefaultProducts())
	return err
}
