package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/product-catalog/internal/config"
	"github.com/iliyamo/product-catalog/internal/handler"
	"github.com/iliyamo/product-catalog/internal/middleware"
	"github.com/iliyamo/product-catalog/internal/observability"
)

// Deps bundles everything the routes need.  Redis and Metrics may be nil,
// which disables caching/rate limiting and the /metrics endpoint.
type Deps struct {
	Products  *handler.ProductHandler
	Logger    *slog.Logger
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Metrics   *observability.Metrics
}

// New builds the Echo instance with global middleware and all routes.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	if d.Logger != nil {
		e.Use(middleware.RequestLogger(d.Logger))
	}
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
		e.GET("/metrics", d.Metrics.Handler())
	}

	RegisterRoutes(e)
	RegisterProducts(e, d)
	return e
}

// RegisterRoutes registers the liveness endpoints.  They sit outside the
// rate limiter and never reach the store.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
	e.GET("/healthz", handler.Health)
}

// RegisterProducts mounts the catalog endpoints behind the rate limiter and
// the response cache.  POST passes through the cache so a successful create
// invalidates cached lists.
func RegisterProducts(e *echo.Echo, d Deps) {
	g := e.Group("/products",
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
		middleware.NewRedisCache(d.Cache, d.Redis),
	)
	g.GET("", d.Products.ListProducts)
	g.POST("", d.Products.CreateProduct)
}
