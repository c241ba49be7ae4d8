package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/product-catalog/internal/config"
	"github.com/iliyamo/product-catalog/internal/database"
	"github.com/iliyamo/product-catalog/internal/handler"
	"github.com/iliyamo/product-catalog/internal/logger"
	"github.com/iliyamo/product-catalog/internal/observability"
	"github.com/iliyamo/product-catalog/internal/repository"
	"github.com/iliyamo/product-catalog/internal/router"
	"github.com/iliyamo/product-catalog/internal/seed"
	"github.com/iliyamo/product-catalog/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)

	db, err := database.New(cfg.DSN())
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("db close", slog.Any("error", err))
		}
	}()
	if err := database.Ping(ctx, db); err != nil {
		// The pool reconnects on demand; the schema policy decides below.
		log.Warn("database not reachable yet", slog.Any("error", err))
	}

	// Schema sync runs before the listener opens.
	boot := database.Bootstrapper{
		Syncer:         schemaSyncer(cfg, db),
		AbortOnFailure: cfg.AbortOnSchemaSyncFailure(),
		Timeout:        cfg.SchemaSyncTimeout,
		Logger:         log,
	}
	if err := boot.Run(ctx); err != nil {
		return err
	}

	products := repository.NewProductRepo(db)
	if cfg.SeedOnStart {
		// Single startup task: the loader is not safe to run concurrently.
		if _, err := seed.NewLoader(products, log).IfEmpty(ctx, seed.DefaultProducts()); err != nil {
			log.Warn("startup seed failed", slog.Any("error", err))
		}
	}

	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		return err
	}
	rateCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return err
	}
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		return err
	}
	eventsCfg, err := config.LoadEventsConfig()
	if err != nil {
		return err
	}

	rdb := config.NewRedisClient(ctx, redisCfg)
	if rdb == nil {
		log.Warn("redis unavailable; caching and rate limiting disabled", slog.String("addr", redisCfg.Addr))
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var events handler.EventPublisher
	if eventsCfg.Enabled {
		events = service.NewAMQPPublisher(eventsCfg.URL, eventsCfg.Queue)
	}

	productHandler := handler.NewProductHandler(products, events, log)
	e := router.New(router.Deps{
		Products:  productHandler,
		Logger:    log,
		Redis:     rdb,
		Cache:     cacheCfg,
		RateLimit: rateCfg,
		Metrics:   observability.NewMetrics(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", slog.String("addr", cfg.Addr()), slog.String("env", cfg.Env))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		err := e.Shutdown(shutdownCtx)
		// Event publications outlive their requests; give them the rest of
		// the shutdown window.
		if derr := productHandler.Drain(shutdownCtx); derr != nil {
			log.Warn("pending product events dropped", slog.Any("error", derr))
		}
		return err
	})
	return g.Wait()
}

func schemaSyncer(cfg config.Config, db *sql.DB) database.Syncer {
	if cfg.SchemaSyncCommand != "" {
		return database.CommandSyncer{Command: cfg.SchemaSyncCommand, DatabaseURL: cfg.DSN()}
	}
	return database.EmbeddedSchema{DB: db}
}
