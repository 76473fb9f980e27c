package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stridekart/shoe-store-api/internal/models"
	"github.com/stridekart/shoe-store-api/internal/repository"
	"github.com/stridekart/shoe-store-api/internal/service"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orders *service.OrderService
	log    *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		log:    log,
	}
}

// CreateOrder handles POST /api/order.
// Returns 201 with the created order, or 200 when an Idempotency-Key
// replays a previously placed order.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("failed to decode order request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	order, replayed, err := h.orders.PlaceOrder(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	WriteJSON(w, status, order, h.log)
}

func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error) {
	h.log.Error("failed to place order", "error", err)

	switch {
	case errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidPaymentMethod):
		WriteError(w, http.StatusBadRequest, err.Error(), h.log)
	case errors.Is(err, &repository.ProductNotFoundError{}),
		errors.Is(err, &service.SizeNotFoundError{}):
		WriteError(w, http.StatusNotFound, err.Error(), h.log)
	case errors.Is(err, &service.InsufficientStockError{}),
		errors.Is(err, service.ErrOrderPlacementFailed):
		WriteError(w, http.StatusConflict, err.Error(), h.log)
	default:
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
	}
}

// UpdateStatus handles PATCH /api/order/status.
// The body's type field selects whether status or paymentStatus is set.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("failed to decode status update request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid request body", h.log)
		return
	}

	if req.OrderID == "" {
		WriteError(w, http.StatusBadRequest, "orderId is required", h.log)
		return
	}

	order, err := h.orders.UpdateOrderStatus(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, &repository.OrderNotFoundError{}):
			WriteError(w, http.StatusNotFound, err.Error(), h.log)
		case errors.Is(err, service.ErrInvalidStatus),
			errors.Is(err, service.ErrInvalidUpdateType):
			WriteError(w, http.StatusBadRequest, err.Error(), h.log)
		default:
			h.log.Error("failed to update order status", "order_id", req.OrderID, "error", err)
			WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
		}
		return
	}

	WriteJSON(w, http.StatusOK, order, h.log)
}

// GetOrder handles GET /api/order/{orderId}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.log)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, &repository.OrderNotFoundError{}) {
			WriteError(w, http.StatusNotFound, "Order not found", h.log)
			return
		}
		h.log.Error("failed to get order", "order_id", orderID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
		return
	}

	WriteJSON(w, http.StatusOK, order, h.log)
}

// ListOrders handles GET /api/order (admin listing, newest first)
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	orders, total, err := h.orders.ListOrders(r.Context(), page, limit)
	if err != nil {
		h.log.Error("failed to list orders", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.log)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	}, h.log)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return defaultValue
	}
	return v
}
