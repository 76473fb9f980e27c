package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/stridekart/shoe-store-api/internal/idempotency"
	"github.com/stridekart/shoe-store-api/internal/models"
	"github.com/stridekart/shoe-store-api/internal/repository"
	"github.com/stridekart/shoe-store-api/internal/service"
	"github.com/stridekart/shoe-store-api/pkg/logger"
)

func newOrderRouter(handler *OrderHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/api/order/{orderId}", handler.GetOrder)
	return r
}

func newOrderHandler(t *testing.T, products ...models.Product) (*OrderHandler, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	store.SeedProducts(products...)
	log := logger.New("error")
	svc := service.NewOrderService(store, nil, log)
	return NewOrderHandler(svc, log), store
}

func sneaker(id string, size string, quantity int) models.Product {
	p := models.Product{
		ID:       id,
		Name:     "Court Vision " + id,
		Brand:    "TestBrand",
		Category: "casual",
		Price:    89.99,
		Sizes:    []models.SizeEntry{{Size: size, Quantity: quantity}},
		Status:   models.ProductStatusInStock,
	}
	p.RecomputeTotals()
	return p
}

func orderBody(items ...models.OrderItem) models.OrderRequest {
	total := 0.0
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return models.OrderRequest{
		Items:       items,
		TotalAmount: total,
		ShippingAddress: models.ShippingAddress{
			FullName: "Rohan Iyer",
			Phone:    "9000000000",
			Address:  "4 Brigade Road",
			City:     "Bengaluru",
		},
		PaymentMethod: models.PaymentMethodCard,
	}
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		expectedStatus int
		checkResponse  func(*testing.T, *models.Order)
	}{
		{
			name:           "successful order",
			requestBody:    orderBody(models.OrderItem{ProductID: "p1", Size: "42", Quantity: 2, Price: 89.99}),
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, order *models.Order) {
				if order.ID == "" {
					t.Error("order ID is empty")
				}
				if order.Status != models.OrderStatusPending {
					t.Errorf("status = %s, want pending", order.Status)
				}
				if len(order.Items) != 1 {
					t.Errorf("expected 1 item, got %d", len(order.Items))
				}
			},
		},
		{
			name:           "empty order",
			requestBody:    orderBody(),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid quantity",
			requestBody:    orderBody(models.OrderItem{ProductID: "p1", Size: "42", Quantity: 0, Price: 89.99}),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown product",
			requestBody:    orderBody(models.OrderItem{ProductID: "ghost", Size: "42", Quantity: 1, Price: 89.99}),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "unknown size",
			requestBody:    orderBody(models.OrderItem{ProductID: "p1", Size: "39", Quantity: 1, Price: 89.99}),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "insufficient stock",
			requestBody:    orderBody(models.OrderItem{ProductID: "p1", Size: "42", Quantity: 99, Price: 89.99}),
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newOrderHandler(t, sneaker("p1", "42", 5))

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatalf("failed to marshal request: %v", err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/api/order", bytes.NewReader(body))
			w := httptest.NewRecorder()

			handler.CreateOrder(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.expectedStatus, w.Body.String())
			}

			if tt.expectedStatus == http.StatusCreated && tt.checkResponse != nil {
				var order models.Order
				if err := json.NewDecoder(w.Body).Decode(&order); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				tt.checkResponse(t, &order)
			}

			if tt.expectedStatus != http.StatusCreated {
				var response map[string]string
				if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
					t.Fatalf("failed to decode error response: %v", err)
				}
				if response["error"] == "" {
					t.Error("expected error message in response")
				}
			}
		})
	}
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	handler, store := newOrderHandler(t, sneaker("p1", "42", 5))

	// Place an order to mutate.
	body, _ := json.Marshal(orderBody(models.OrderItem{ProductID: "p1", Size: "42", Quantity: 1, Price: 89.99}))
	w := httptest.NewRecorder()
	handler.CreateOrder(w, httptest.NewRequest(http.MethodPost, "/api/order", bytes.NewReader(body)))
	if w.Code != http.StatusCreated {
		t.Fatalf("failed to place seed order: %d %s", w.Code, w.Body.String())
	}
	var placed models.Order
	if err := json.NewDecoder(w.Body).Decode(&placed); err != nil {
		t.Fatalf("failed to decode placed order: %v", err)
	}

	tests := []struct {
		name           string
		requestBody    models.StatusUpdateRequest
		expectedStatus int
	}{
		{
			name:           "order status to shipped",
			requestBody:    models.StatusUpdateRequest{OrderID: placed.ID, Status: "shipped", Type: "order"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "payment status to completed",
			requestBody:    models.StatusUpdateRequest{OrderID: placed.ID, PaymentStatus: "completed", Type: "payment"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing order id",
			requestBody:    models.StatusUpdateRequest{Status: "shipped", Type: "order"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown order",
			requestBody:    models.StatusUpdateRequest{OrderID: "ghost", Status: "shipped", Type: "order"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid status value",
			requestBody:    models.StatusUpdateRequest{OrderID: placed.ID, Status: "vanished", Type: "order"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid type",
			requestBody:    models.StatusUpdateRequest{OrderID: placed.ID, Status: "shipped", Type: "refund"},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.requestBody)
			if err != nil {
				t.Fatalf("failed to marshal request: %v", err)
			}

			req := httptest.NewRequest(http.MethodPatch, "/api/order/status", bytes.NewReader(body))
			w := httptest.NewRecorder()

			handler.UpdateStatus(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}

	// Inventory must be untouched by status churn.
	p, err := store.GetProduct(context.Background(), "p1")
	if err != nil {
		t.Fatalf("failed to get product: %v", err)
	}
	if p.Sizes[0].Quantity != 4 {
		t.Errorf("quantity = %d, want 4 (status updates must not touch stock)", p.Sizes[0].Quantity)
	}
}

func TestOrderHandler_CreateOrderIdempotencyKey(t *testing.T) {
	store := repository.NewMemoryStore()
	store.SeedProducts(sneaker("p1", "42", 5))
	log := logger.New("error")
	svc := service.NewOrderService(store, idempotency.NewRegistry(100, 0.001), log)
	handler := NewOrderHandler(svc, log)

	body, _ := json.Marshal(orderBody(models.OrderItem{ProductID: "p1", Size: "42", Quantity: 1, Price: 89.99}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/order", bytes.NewReader(body))
		req.Header.Set("Idempotency-Key", "client-key-7")
		w := httptest.NewRecorder()
		handler.CreateOrder(w, req)
		return w
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("first request: status = %d, want 201", first.Code)
	}
	second := send()
	if second.Code != http.StatusOK {
		t.Fatalf("replayed request: status = %d, want 200", second.Code)
	}

	var a, b models.Order
	if err := json.NewDecoder(first.Body).Decode(&a); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if err := json.NewDecoder(second.Body).Decode(&b); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("replay returned a different order: %s vs %s", a.ID, b.ID)
	}
}

func TestOrderHandler_GetOrder(t *testing.T) {
	handler, _ := newOrderHandler(t, sneaker("p1", "42", 5))

	body, _ := json.Marshal(orderBody(models.OrderItem{ProductID: "p1", Size: "42", Quantity: 1, Price: 89.99}))
	w := httptest.NewRecorder()
	handler.CreateOrder(w, httptest.NewRequest(http.MethodPost, "/api/order", bytes.NewReader(body)))
	var placed models.Order
	if err := json.NewDecoder(w.Body).Decode(&placed); err != nil {
		t.Fatalf("failed to decode placed order: %v", err)
	}

	r := newOrderRouter(handler)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/order/"+placed.ID, nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/order/ghost", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestOrderHandler_ListOrders(t *testing.T) {
	handler, _ := newOrderHandler(t, sneaker("p1", "42", 10))

	for i := 0; i < 3; i++ {
		body, _ := json.Marshal(orderBody(models.OrderItem{ProductID: "p1", Size: "42", Quantity: 1, Price: 89.99}))
		w := httptest.NewRecorder()
		handler.CreateOrder(w, httptest.NewRequest(http.MethodPost, "/api/order", bytes.NewReader(body)))
		if w.Code != http.StatusCreated {
			t.Fatalf("failed to place seed order %d: %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ListOrders(w, httptest.NewRequest(http.MethodGet, "/api/order?page=1&limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var response struct {
		Orders []models.Order `json:"orders"`
		Total  int            `json:"total"`
		Page   int            `json:"page"`
		Limit  int            `json:"limit"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Total != 3 {
		t.Errorf("total = %d, want 3", response.Total)
	}
	if len(response.Orders) != 2 {
		t.Errorf("orders count = %d, want 2", len(response.Orders))
	}
}
