package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-catalog/internal/model"
)

// Fixed client-facing messages. Store failures never leak their cause.
const (
	msgFetchFailed  = "Failed to fetch products"
	msgCreateFailed = "Failed to create product"
	msgInvalidInput = "Invalid product input"
)

// publishTimeout bounds a single product event publication.
const publishTimeout = 5 * time.Second

// ProductStore is the catalog store as seen by the HTTP layer.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, in model.ProductInput) (model.Product, error)
}

// EventPublisher announces catalog changes to other systems.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, p model.Product) error
}

// ProductHandler serves the /products endpoints.
type ProductHandler struct {
	store    ProductStore
	events   EventPublisher // may be nil
	logger   *slog.Logger
	validate *validator.Validate

	pending sync.WaitGroup // in-flight event publications
}

// NewProductHandler constructs a ProductHandler and panics if store is nil.
// events and logger are optional.
func NewProductHandler(store ProductStore, events EventPublisher, logger *slog.Logger) *ProductHandler {
	if store == nil {
		panic("nil store passed to NewProductHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductHandler{
		store:    store,
		events:   events,
		logger:   logger,
		validate: newValidator(),
	}
}

// ListProducts handles GET /products and returns every product as a JSON
// array in store order.
func (h *ProductHandler) ListProducts(c echo.Context) error {
	products, err := h.store.ListProducts(c.Request().Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err), slog.String("request_id", requestID(c)))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgFetchFailed})
	}
	return c.JSON(http.StatusOK, products)
}

// CreateProduct handles POST /products.  The body is decoded and validated
// before the store is called; invalid input gets 400 with per-field
// messages, store failures get 500 with a fixed message.
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	in, err := decodeProductInput(h.validate, c.Request().Body)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": msgInvalidInput, "fields": verr.Fields})
		}
		h.logger.Error("validate product", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgCreateFailed})
	}

	p, err := h.store.CreateProduct(c.Request().Context(), in)
	if err != nil {
		h.logger.Error("create product", slog.Any("error", err), slog.String("request_id", requestID(c)))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": msgCreateFailed})
	}

	if h.events != nil {
		h.pending.Add(1)
		go func() {
			defer h.pending.Done()
			h.publishCreated(p)
		}()
	}
	return c.JSON(http.StatusOK, p)
}

// publishCreated runs detached from the request; failures are only logged.
func (h *ProductHandler) publishCreated(p model.Product) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.events.PublishProductCreated(ctx, p); err != nil {
		h.logger.Warn("publish product.created", slog.Uint64("product_id", p.ID), slog.Any("error", err))
	}
}

// Drain waits for event publications started by CreateProduct.  Call it
// after the server stopped accepting requests; it returns ctx.Err() if the
// publications are still running when ctx is done.
func (h *ProductHandler) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
