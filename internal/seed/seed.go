// Package seed populates the catalog with baseline products.
//
// IfEmpty is count-then-insert and is not safe to run concurrently: two
// callers can both observe an empty catalog and both insert.  Run it from a
// single startup task or the seed command only.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iliyamo/product-catalog/internal/model"
)

// Store is the part of the catalog store the loader needs.
type Store interface {
	CountProducts(ctx context.Context) (int64, error)
	CreateProducts(ctx context.Context, in []model.ProductInput) (int64, error)
}

// Loader seeds a Store.
type Loader struct {
	store  Store
	logger *slog.Logger
}

func NewLoader(store Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: store, logger: logger}
}

// IfEmpty inserts products in one batch when the catalog has no rows and
// returns the number created.  A non-empty catalog is left untouched and 0
// is returned.
func (l *Loader) IfEmpty(ctx context.Context, products []model.ProductInput) (int64, error) {
	existing, err := l.store.CountProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: count: %w", err)
	}
	if existing > 0 {
		l.logger.Info(fmt.Sprintf("Database already has %d products. Skipping seed.", existing))
		return 0, nil
	}

	created, err := l.store.CreateProducts(ctx, products)
	if err != nil {
		return 0, fmt.Errorf("seed: insert: %w", err)
	}
	l.logger.Info(fmt.Sprintf("Created %d products", created))
	return created, nil
}

func text(s string) *string { return &s }

// DefaultProducts is the baseline catalog.
func DefaultProducts() []model.ProductInput {
	return []model.ProductInput{
		{Name: "iPhone 15", Description: text("最新のiPhone"), Price: 128000, Stock: 10},
		{Name: "MacBook Pro", Description: text("M3チップ搭載"), Price: 248000, Stock: 5},
		{Name: "AirPods Pro", Description: text("ノイズキャンセリング機能付き"), Price: 39800, Stock: 20},
	}
}
