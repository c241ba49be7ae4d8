package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/product-catalog/internal/model"
)

// ============================================================================
// FAKES
// ============================================================================

type fakeStore struct {
	mu        sync.Mutex
	rows      []model.Product
	nextID    uint64
	listErr   error
	createErr error
	calls     int
}

func (s *fakeStore) ListProducts(context.Context) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]model.Product, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *fakeStore) CreateProduct(_ context.Context, in model.ProductInput) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.createErr != nil {
		return model.Product{}, s.createErr
	}
	s.nextID++
	p := in.Product(s.nextID)
	s.rows = append(s.rows, p)
	return p, nil
}

type fakePublisher struct {
	published chan model.Product
	hold      chan struct{} // when set, publishing blocks until it is closed
	err       error
}

func (f *fakePublisher) PublishProductCreated(_ context.Context, p model.Product) error {
	f.published <- p
	if f.hold != nil {
		<-f.hold
	}
	return f.err
}

func newTestHandler(store ProductStore, events EventPublisher) (*echo.Echo, *bytes.Buffer) {
	var logs bytes.Buffer
	h := NewProductHandler(store, events, slog.New(slog.NewTextHandler(&logs, nil)))
	e := echo.New()
	e.GET("/health", Health)
	e.GET("/products", h.ListProducts)
	e.POST("/products", h.CreateProduct)
	return e, &logs
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// TESTS
// ============================================================================

func TestHealthDoesNotTouchStore(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down"), createErr: errors.New("db down")}
	e, _ := newTestHandler(store, nil)

	rec := do(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Zero(t, store.calls)
}

func TestListProductsEmpty(t *testing.T) {
	e, _ := newTestHandler(&fakeStore{rows: []model.Product{}}, nil)

	rec := do(e, http.MethodGet, "/products", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListProductsStoreFailure(t *testing.T) {
	e, logs := newTestHandler(&fakeStore{listErr: errors.New("dial tcp 10.0.0.5:3306: connection refused")}, nil)

	rec := do(e, http.MethodGet, "/products", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Failed to fetch products"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, logs.String(), "connection refused")
}

func TestCreateProductStoreFailure(t *testing.T) {
	e, _ := newTestHandler(&fakeStore{createErr: errors.New("Error 1406: Data too long")}, nil)

	rec := do(e, http.MethodPost, "/products", `{"name":"Pad","description":"x","price":100,"stock":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Failed to create product"}`, rec.Body.String())
}

func TestCreateThenListRoundTrip(t *testing.T) {
	store := &fakeStore{}
	e, _ := newTestHandler(store, nil)

	rec := do(e, http.MethodPost, "/products", `{"name":"iPhone 15","description":"最新のiPhone","price":128000,"stock":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.EqualValues(t, 1, created["id"])
	assert.Equal(t, "iPhone 15", created["name"])

	rec = do(e, http.MethodGet, "/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created, listed[0])
}

func TestCreateProductWithoutDescription(t *testing.T) {
	e, _ := newTestHandler(&fakeStore{}, nil)

	rec := do(e, http.MethodPost, "/products", `{"name":"Cable","price":500,"stock":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"Cable","description":null,"price":500,"stock":0}`, rec.Body.String())
}

func TestCreateProductValidation(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		fields map[string]string
	}{
		{"missing name", `{"price":1,"stock":1}`, map[string]string{"name": "is required"}},
		{"blank name", `{"name":"   ","price":1,"stock":1}`, map[string]string{"name": "must not be blank"}},
		{"negative price", `{"name":"x","price":-1,"stock":1}`, map[string]string{"price": "must be greater than or equal to 0"}},
		{"negative stock", `{"name":"x","price":1,"stock":-5}`, map[string]string{"stock": "must be greater than or equal to 0"}},
		{"missing price and stock", `{"name":"x"}`, map[string]string{"price": "is required", "stock": "is required"}},
		{"price as string", `{"name":"x","price":"100","stock":1}`, map[string]string{"price": "must be of type integer"}},
		{"fractional stock", `{"name":"x","price":1,"stock":1.5}`, map[string]string{"stock": "must be of type integer"}},
		{"malformed json", `{"name":`, map[string]string{"body": "must be a JSON object"}},
		{"array body", `[1,2]`, map[string]string{"body": "must be a JSON object"}},
		{"two objects", `{"name":"x","price":1,"stock":1}{"name":"y","price":2,"stock":2}`, map[string]string{"body": "must contain a single JSON object"}},
		{"trailing garbage", `{"name":"x","price":1,"stock":1} oops`, map[string]string{"body": "must contain a single JSON object"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			e, _ := newTestHandler(store, nil)

			rec := do(e, http.MethodPost, "/products", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body struct {
				Error  string            `json:"error"`
				Fields map[string]string `json:"fields"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Invalid product input", body.Error)
			assert.Equal(t, tc.fields, body.Fields)
			assert.Zero(t, store.calls)
		})
	}
}

func TestCreateProductAcceptsTrailingWhitespace(t *testing.T) {
	e, _ := newTestHandler(&fakeStore{}, nil)

	rec := do(e, http.MethodPost, "/products", "{\"name\":\"Cable\",\"price\":500,\"stock\":0}\n\t ")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateProductDescriptionLimitCountsCharacters(t *testing.T) {
	e, _ := newTestHandler(&fakeStore{}, nil)
	body := func(desc string) string {
		b, err := json.Marshal(map[string]any{"name": "Manual", "description": desc, "price": 1, "stock": 1})
		require.NoError(t, err)
		return string(b)
	}

	rec := do(e, http.MethodPost, "/products", body(strings.Repeat("語", 65535)))
	require.Equal(t, http.StatusOK, rec.Code)
	var p model.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NotNil(t, p.Description)
	assert.Len(t, *p.Description, 3*65535)

	rec = do(e, http.MethodPost, "/products", body(strings.Repeat("語", 65536)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"description":"must be at most 65535 characters"`)
}

func TestCreateProductEmptyBody(t *testing.T) {
	e, _ := newTestHandler(&fakeStore{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/products", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid product input","fields":{"body":"is required"}}`, rec.Body.String())
}

func TestCreateProductPublishesEvent(t *testing.T) {
	pub := &fakePublisher{published: make(chan model.Product, 1), err: errors.New("broker down")}
	e, _ := newTestHandler(&fakeStore{}, pub)

	rec := do(e, http.MethodPost, "/products", `{"name":"MacBook Pro","price":248000,"stock":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case p := <-pub.published:
		assert.Equal(t, uint64(1), p.ID)
		assert.Equal(t, "MacBook Pro", p.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("expected product.created to be published")
	}
}

func TestDrainWaitsForPendingPublications(t *testing.T) {
	pub := &fakePublisher{published: make(chan model.Product, 1), hold: make(chan struct{})}
	h := NewProductHandler(&fakeStore{}, pub, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	e := echo.New()
	e.POST("/products", h.CreateProduct)

	rec := do(e, http.MethodPost, "/products", `{"name":"AirPods Pro","price":39800,"stock":20}`)
	require.Equal(t, http.StatusOK, rec.Code)
	<-pub.published

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Drain(ctx), context.DeadlineExceeded)

	close(pub.hold)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel2()
	assert.NoError(t, h.Drain(ctx2))
}

func TestDrainWithoutPublisher(t *testing.T) {
	h := NewProductHandler(&fakeStore{}, nil, nil)
	e := echo.New()
	e.POST("/products", h.CreateProduct)

	require.Equal(t, http.StatusOK, do(e, http.MethodPost, "/products", `{"name":"x","price":1,"stock":1}`).Code)
	assert.NoError(t, h.Drain(context.Background()))
}

func TestNewProductHandlerPanicsOnNilStore(t *testing.T) {
	assert.Panics(t, func() { NewProductHandler(nil, nil, nil) })
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"price": "is required", "name": "is required"}}
	assert.Equal(t, "invalid product input: name is required; price is required", err.Error())
}
