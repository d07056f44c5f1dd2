package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veloramart/cartd/internal/domain"
	"github.com/veloramart/cartd/internal/event"
	"github.com/veloramart/cartd/internal/service"
	apperrors "github.com/veloramart/cartd/pkg/errors"
	pkgkafka "github.com/veloramart/cartd/pkg/kafka"
)

// ============================================================================
// Mocks
// ============================================================================

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	args := m.Called(ctx, cart, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func (m *mockCartRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

type mockShippingLookup struct {
	mock.Mock
}

func (m *mockShippingLookup) Methods(ctx context.Context, userID string) ([]domain.ShippingMethod, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ShippingMethod), args.Error(1)
}

func (m *mockShippingLookup) MethodByID(ctx context.Context, userID, methodID string) (*domain.ShippingMethod, error) {
	args := m.Called(ctx, userID, methodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShippingMethod), args.Error(1)
}

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testEventProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	kafkaProducer := pkgkafka.NewProducer(kafkaCfg, logger)
	return event.NewProducer(kafkaProducer, logger)
}

type testDeps struct {
	repo   *mockCartRepository
	orders *mockOrderRepository
	lookup *mockShippingLookup
}

// setupRouter creates a chi router matching the production route layout,
// including the UserIDFromHeader and ContentTypeJSON middleware so that auth
// behavior is tested end-to-end.
func setupRouter(t *testing.T) (*chi.Mux, *testDeps) {
	t.Helper()
	deps := &testDeps{
		repo:   new(mockCartRepository),
		orders: new(mockOrderRepository),
		lookup: new(mockShippingLookup),
	}
	svc := service.NewCartService(deps.repo, deps.orders, deps.lookup, testEventProducer(), testLogger(), 24*time.Hour)
	h := NewCartHandler(svc, testLogger())

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(UserIDFromHeader)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{itemId}", h.UpdateItemQuantity)
			r.Delete("/items/{itemId}", h.RemoveItem)
			r.Put("/shipping-method", h.SetShippingMethod)
			r.Put("/destination", h.SetDestination)
		})

		r.Get("/shipping-methods", h.ListShippingMethods)
		r.Post("/checkout", h.Checkout)
	})
	return r, deps
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorResponse  `json:"error"`
}

func doRequest(t *testing.T, r http.Handler, method, path, userID string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec, env
}

func storedCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:     "cart-123",
		UserID: userID,
		Items: []domain.LineItem{
			{ID: "item-1", Title: "Ceramic Mug", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2, SellerID: "seller-9"},
		},
		TaxRate:   decimal.RequireFromString("0.08"),
		Currency:  "USD",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

// ============================================================================
// Tests
// ============================================================================

func TestGetCart_MissingUserHeader(t *testing.T) {
	r, _ := setupRouter(t)

	rec, env := doRequest(t, r, http.MethodGet, "/api/v1/cart", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

func TestGetCart_ReturnsSnapshot(t *testing.T) {
	r, deps := setupRouter(t)
	deps.repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1"), nil)

	rec, env := doRequest(t, r, http.MethodGet, "/api/v1/cart", "user-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.True(t, snap.Subtotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, snap.Tax.Equal(decimal.RequireFromString("1.60")))
	assert.True(t, snap.Total.Equal(decimal.RequireFromString("21.60")))

	deps.repo.AssertExpectations(t)
}

func TestAddItem_Success(t *testing.T) {
	r, deps := setupRouter(t)
	deps.repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))
	deps.repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), 0).Return(true, nil)

	body := []byte(`{"item_id":"item-1","title":"Ceramic Mug","unit_price":"10.00","quantity":2,"seller_id":"seller-9"}`)
	rec, env := doRequest(t, r, http.MethodPost, "/api/v1/cart/items", "user-1", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.Items[0].Quantity)

	deps.repo.AssertExpectations(t)
}

func TestAddItem_ValidationError(t *testing.T) {
	r, _ := setupRouter(t)

	body := []byte(`{"item_id":"","title":"","quantity":0,"seller_id":""}`)
	rec, env := doRequest(t, r, http.MethodPost, "/api/v1/cart/items", "user-1", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.NotEmpty(t, env.Error.Fields)
}

func TestAddItem_MalformedBody(t *testing.T) {
	r, _ := setupRouter(t)

	rec, env := doRequest(t, r, http.MethodPost, "/api/v1/cart/items", "user-1", []byte(`{not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestAddItem_WrongContentType(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewReader([]byte(`x`)))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUpdateItemQuantity_RemovesOnZero(t *testing.T) {
	r, deps := setupRouter(t)
	deps.repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1"), nil)
	deps.repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), 1).Return(true, nil)

	rec, env := doRequest(t, r, http.MethodPut, "/api/v1/cart/items/item-1", "user-1", []byte(`{"quantity":0}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Empty(t, snap.Items)

	deps.repo.AssertExpectations(t)
}

func TestUpdateItemQuantity_MissingItemNoOp(t *testing.T) {
	r, deps := setupRouter(t)
	deps.repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1"), nil)

	rec, env := doRequest(t, r, http.MethodPut, "/api/v1/cart/items/item-404", "user-1", []byte(`{"quantity":3}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	deps.repo.AssertNotCalled(t, "SaveIfVersion", mock.Anything, mock.Anything, mock.Anything)
}

func TestRemoveItem_Success(t *testing.T) {
	r, deps := setupRouter(t)
	deps.repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1"), nil)
	deps.repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), 1).Return(true, nil)

	rec, env := doRequest(t, r, http.MethodDelete, "/api/v1/cart/items/item-1", "user-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Empty(t, snap.Items)

	deps.repo.AssertExpectations(t)
}

func TestSetShippingMethod_Success(t *testing.T) {
	r, deps := setupRouter(t)
	method := &domain.ShippingMethod{ID: "express", DisplayName: "Express Air", Provider: "FedEx", BaseCost: decimal.RequireFromString("12.99")}
	deps.lookup.On("MethodByID", mock.Anything, "user-1", "express").Return(method, nil)
	deps.repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1"), nil)
	deps.repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), 1).Return(true, nil)

	rec, env := doRequest(t, r, http.MethodPut, "/api/v1/cart/shipping-method", "user-1", []byte(`{"method_id":"express"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	require.NotNil(t, snap.ShippingMethod)
	assert.True(t, snap.ShippingCost.Equal(decimal.RequireFromString("12.99")))

	deps.lookup.AssertExpectations(t)
}

func TestSetShippingMethod_UnknownMethod(t *testing.T) {
	r, deps := setupRouter(t)
	deps.lookup.On("MethodByID", mock.Anything, "user-1", "teleport").
		Return(nil, apperrors.NotFound("shipping method", "teleport"))

	rec, env := doRequest(t, r, http.MethodPut, "/api/v1/cart/shipping-method", "user-1", []byte(`{"method_id":"teleport"}`))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestSetDestination_Success(t *testing.T) {
	r, deps := setupRouter(t)
	deps.repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1"), nil)
	deps.repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), 1).Return(true, nil)

	rec, env := doRequest(t, r, http.MethodPut, "/api/v1/cart/destination", "user-1", []byte(`{"region":"NY"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, "NY", snap.DestinationRegion)
	assert.True(t, snap.TaxRate.Equal(decimal.RequireFromString("0.08")))
}

func TestSetDestination_BadRegion(t *testing.T) {
	r, _ := setupRouter(t)

	rec, env := doRequest(t, r, http.MethodPut, "/api/v1/cart/destination", "user-1", []byte(`{"region":"CALIFORNIA"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestClearCart_Success(t *testing.T) {
	r, deps := setupRouter(t)
	deps.repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1"), nil)
	deps.repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), 1).Return(true, nil)

	rec, env := doRequest(t, r, http.MethodDelete, "/api/v1/cart", "user-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	deps.repo.AssertExpectations(t)
}

func TestListShippingMethods(t *testing.T) {
	r, deps := setupRouter(t)
	methods := []domain.ShippingMethod{
		{ID: "standard", DisplayName: "Standard Ground", Provider: "UPS", BaseCost: decimal.RequireFromString("5.00")},
	}
	deps.lookup.On("Methods", mock.Anything, "user-1").Return(methods, nil)

	rec, env := doRequest(t, r, http.MethodGet, "/api/v1/shipping-methods", "user-1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	var got []domain.ShippingMethod
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "standard", got[0].ID)
}

func TestCheckout_Success(t *testing.T) {
	r, deps := setupRouter(t)

	cart := storedCart("user-1")
	cart.ShippingMethod = &domain.ShippingMethod{ID: "standard", Provider: "UPS", BaseCost: decimal.RequireFromString("5.00")}
	deps.repo.On("Get", mock.Anything, "user-1").Return(cart, nil)
	deps.repo.On("SaveIfVersion", mock.Anything, mock.AnythingOfType("*domain.Cart"), mock.AnythingOfType("int")).Return(true, nil)
	deps.orders.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)

	rec, env := doRequest(t, r, http.MethodPost, "/api/v1/checkout", "user-1", nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Nil(t, env.Error)

	var order domain.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.NotEmpty(t, order.ID)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("26.60")), "total: %s", order.Total)

	deps.orders.AssertExpectations(t)
}

func TestCheckout_EmptyCart(t *testing.T) {
	r, deps := setupRouter(t)
	deps.repo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	rec, env := doRequest(t, r, http.MethodPost, "/api/v1/checkout", "user-1", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "EMPTY_CART", env.Error.Code)
}

func TestCheckout_NoShippingMethod(t *testing.T) {
	r, deps := setupRouter(t)
	deps.repo.On("Get", mock.Anything, "user-1").Return(storedCart("user-1"), nil)

	rec, env := doRequest(t, r, http.MethodPost, "/api/v1/checkout", "user-1", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NO_SHIPPING_METHOD", env.Error.Code)
}
