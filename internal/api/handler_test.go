package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fulfillment-service/internal/auth"
	"fulfillment-service/internal/errs"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal in-memory ports so the handlers run against a real
// OrderService end to end.

type handlerStore struct {
	products map[string]*models.Product
	orders   map[string]*models.Order
}

func (h *handlerStore) CreateOrder(ctx context.Context, order *models.Order) error {
	for _, it := range order.Items {
		p, ok := h.products[it.ProductID]
		if !ok {
			return errs.NewNotFoundError("product", it.ProductID)
		}
		if p.CountInStock < it.Quantity {
			return errs.NewOutOfStockError(p.Name, p.CountInStock, it.Quantity)
		}
	}
	for _, it := range order.Items {
		h.products[it.ProductID].CountInStock -= it.Quantity
	}
	cp := *order
	h.orders[order.ID] = &cp
	return nil
}

func (h *handlerStore) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	o, ok := h.orders[id]
	if !ok {
		return nil, errs.NewNotFoundError("order", id)
	}
	cp := *o
	return &cp, nil
}

func (h *handlerStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	out := make([]models.Order, 0, len(h.orders))
	for _, o := range h.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (h *handlerStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range h.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (h *handlerStore) SetOrderPaid(ctx context.Context, id string, paidAt time.Time, paymentID, payerEmail string) error {
	o, ok := h.orders[id]
	if !ok {
		return errs.NewNotFoundError("order", id)
	}
	o.IsPaid = true
	o.PaidAt = &paidAt
	o.PaymentID = paymentID
	o.PaymentStatus = models.PaymentStatusPaid
	o.PayerEmail = payerEmail
	return nil
}

func (h *handlerStore) SetOrderDelivered(ctx context.Context, id string, deliveredAt time.Time) error {
	o, ok := h.orders[id]
	if !ok {
		return errs.NewNotFoundError("order", id)
	}
	o.IsDelivered = true
	o.DeliveredAt = &deliveredAt
	return nil
}

func (h *handlerStore) DeleteOrder(ctx context.Context, id string) error {
	if _, ok := h.orders[id]; !ok {
		return errs.NewNotFoundError("order", id)
	}
	delete(h.orders, id)
	return nil
}

type noopCache struct{}

func (noopCache) GetOrder(ctx context.Context, id string) (*models.Order, error) { return nil, nil }
func (noopCache) SetOrder(ctx context.Context, order *models.Order) error        { return nil }
func (noopCache) InvalidateOrder(ctx context.Context, id string) error           { return nil }

type noopPublisher struct{}

func (noopPublisher) PublishOrderCreated(ctx context.Context, e *models.OrderCreatedEvent) error {
	return nil
}
func (noopPublisher) PublishOrderPaid(ctx context.Context, e *models.OrderPaidEvent) error {
	return nil
}
func (noopPublisher) PublishOrderDelivered(ctx context.Context, e *models.OrderDeliveredEvent) error {
	return nil
}
func (noopPublisher) PublishOrderDeleted(ctx context.Context, e *models.OrderDeletedEvent) error {
	return nil
}

type apiFixture struct {
	router *gin.Engine
	store  *handlerStore
	user   string
	admin  string
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := &handlerStore{
		products: map[string]*models.Product{
			"5f2d7f5e-0000-0000-0000-000000000001": {
				ID: "5f2d7f5e-0000-0000-0000-000000000001", Name: "Camera", Price: 50, CountInStock: 10,
			},
		},
		orders: make(map[string]*models.Order),
	}

	authService := auth.NewService("test-secret", time.Hour)
	plain := &models.User{ID: "aaaaaaaa-0000-0000-0000-000000000001", Name: "Bob", Email: "bob@example.com"}
	admin := &models.User{ID: "aaaaaaaa-0000-0000-0000-000000000002", Name: "Alice", Email: "alice@example.com", IsAdmin: true}
	users := &fakeUserSource{users: map[string]*models.User{plain.ID: plain, admin.ID: admin}}

	orderService := service.NewOrderService(st, noopCache{}, noopPublisher{})
	handler := NewHandler(orderService)

	router := gin.New()
	handler.SetupRoutes(router, NewGate(authService, users))

	plainToken, err := authService.GenerateToken(plain)
	require.NoError(t, err)
	adminToken, err := authService.GenerateToken(admin)
	require.NoError(t, err)

	return &apiFixture{
		router: router,
		store:  st,
		user:   "Bearer " + plainToken,
		admin:  "Bearer " + adminToken,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func createOrderBody(qty int) map[string]interface{} {
	return map[string]interface{}{
		"cart_items": []map[string]interface{}{
			{"product_id": "5f2d7f5e-0000-0000-0000-000000000001", "name": "Camera", "qty": qty, "price": 50},
		},
		"shipping_address": map[string]string{
			"address": "12 Rue de la Paix", "city": "Paris", "postal_code": "75002", "country": "FR",
		},
		"payment_method": "paypal",
		"items_price":    100,
		"shipping_price": 10,
	}
}

func TestCreateOrderEndpoint(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodPost, "/api/v1/orders", f.user, createOrderBody(2))
	require.Equal(t, http.StatusCreated, w.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, int64(110), order.TotalPrice)
	assert.Equal(t, int64(0), order.TaxPrice)
	assert.False(t, order.IsPaid)
	assert.Equal(t, 8, f.store.products["5f2d7f5e-0000-0000-0000-000000000001"].CountInStock)
}

func TestCreateOrderEndpointRejectsEmptyCart(t *testing.T) {
	f := setupAPI(t)

	body := createOrderBody(1)
	body["cart_items"] = []map[string]interface{}{}

	w := f.do(t, http.MethodPost, "/api/v1/orders", f.user, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderEndpointOutOfStock(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodPost, "/api/v1/orders", f.user, createOrderBody(99))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "available 10")
}

func TestGetOrderEndpointBadID(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", f.user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrderEndpointNotFound(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodGet, "/api/v1/orders/00000000-0000-0000-0000-000000000000", f.user, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPayThenAutoDeliverEndpoint(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodPost, "/api/v1/orders", f.user, createOrderBody(1))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = f.do(t, http.MethodPut, "/api/v1/orders/"+created.ID+"/pay", f.user, map[string]interface{}{
		"payment_id":  "PAY-123",
		"payer_email": "bob@example.com",
		"paid_at":     "2024-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var paid models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &paid))
	assert.True(t, paid.IsPaid)
	assert.True(t, paid.IsDelivered)
	require.NotNil(t, paid.DeliveredAt)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), paid.DeliveredAt.UTC())
}

func TestAdminOnlyEndpointsRejectNonAdmin(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodPost, "/api/v1/orders", f.user, createOrderBody(1))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	assert.Equal(t, http.StatusForbidden,
		f.do(t, http.MethodGet, "/api/v1/orders", f.user, nil).Code)
	assert.Equal(t, http.StatusForbidden,
		f.do(t, http.MethodPut, "/api/v1/orders/"+created.ID+"/deliver", f.user, nil).Code)
	assert.Equal(t, http.StatusForbidden,
		f.do(t, http.MethodDelete, "/api/v1/orders/"+created.ID, f.user, nil).Code)

	// The order is untouched by the rejected calls.
	stored := f.store.orders[created.ID]
	require.NotNil(t, stored)
	assert.False(t, stored.IsDelivered)
}

func TestAdminDeliverAndDeleteEndpoints(t *testing.T) {
	f := setupAPI(t)

	w := f.do(t, http.MethodPost, "/api/v1/orders", f.user, createOrderBody(1))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = f.do(t, http.MethodPut, "/api/v1/orders/"+created.ID+"/deliver", f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var delivered models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &delivered))
	assert.True(t, delivered.IsDelivered)
	assert.False(t, delivered.IsPaid)

	stockBefore := f.store.products["5f2d7f5e-0000-0000-0000-000000000001"].CountInStock

	w = f.do(t, http.MethodDelete, "/api/v1/orders/"+created.ID, f.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound,
		f.do(t, http.MethodGet, "/api/v1/orders/"+created.ID, f.admin, nil).Code)
	assert.Equal(t, stockBefore,
		f.store.products["5f2d7f5e-0000-0000-0000-000000000001"].CountInStock)
}
