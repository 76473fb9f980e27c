package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/stridekart/shoe-store-api/internal/idempotency"
	"github.com/stridekart/shoe-store-api/internal/models"
	"github.com/stridekart/shoe-store-api/internal/repository"
)

var (
	ErrEmptyOrder           = errors.New("order must contain at least one item")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
	ErrInvalidProduct       = errors.New("invalid product reference")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrInvalidStatus        = errors.New("invalid status value")
	ErrInvalidUpdateType    = errors.New(`update type must be "order" or "payment"`)
	ErrOrderPlacementFailed = errors.New("order placement failed")
)

// InsufficientStockError is returned when a line item asks for more units
// than the product has left in the requested size.
type InsufficientStockError struct {
	ProductID string
	Size      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s size %s: requested %d, available %d",
		e.ProductID, e.Size, e.Requested, e.Available)
}

// Is allows matching with errors.Is regardless of the detail carried.
func (e *InsufficientStockError) Is(target error) bool {
	_, ok := target.(*InsufficientStockError)
	return ok
}

// SizeNotFoundError is returned when a line item names a size the product
// does not offer.
type SizeNotFoundError struct {
	ProductID string
	Size      string
}

func (e *SizeNotFoundError) Error() string {
	return fmt.Sprintf("size %q not offered by product %s", e.Size, e.ProductID)
}

// Is allows matching with errors.Is regardless of the detail carried.
func (e *SizeNotFoundError) Is(target error) bool {
	_, ok := target.(*SizeNotFoundError)
	return ok
}

// OrderService owns the order placement unit of work and the status
// transition paths.
type OrderService struct {
	store repository.Store
	keys  *idempotency.Registry
	log   *slog.Logger

	maxAttempts int
	retryBase   time.Duration
}

// NewOrderService creates a new order service. keys may be nil to disable
// idempotency-key replay.
func NewOrderService(store repository.Store, keys *idempotency.Registry, log *slog.Logger) *OrderService {
	return &OrderService{
		store:       store,
		keys:        keys,
		log:         log,
		maxAttempts: 3,
		retryBase:   10 * time.Millisecond,
	}
}

// PlaceOrder validates the request and runs the placement as one
// transaction: per line item, load the product, locate the size, check and
// decrement stock, recompute derived totals; then persist the order
// snapshot. Nothing survives a failed attempt. Commit conflicts are
// retried with backoff.
//
// The returned bool is true when idemKey replayed a previously placed
// order (no stock was touched). The key is claimed before placement, so
// concurrent duplicates resolve to one winner: the first claimant places
// the order and everyone else waits for the winner's order ID.
func (s *OrderService) PlaceOrder(ctx context.Context, req models.OrderRequest, idemKey string) (*models.Order, bool, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, false, err
	}

	var claim *idempotency.Reservation
	if idemKey != "" && s.keys != nil {
		for {
			res, owner := s.keys.Reserve(idemKey)
			if owner {
				claim = res
				break
			}
			orderID, ok, err := res.Await(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				// The owner's placement failed; contend for the key again.
				continue
			}
			existing, err := s.store.GetOrder(ctx, orderID)
			if err != nil {
				return nil, false, err
			}
			s.log.Info("order request replayed from idempotency key", "order_id", orderID)
			return existing, true, nil
		}
	}

	placed, err := s.placeWithRetry(ctx, req)
	if err != nil {
		if claim != nil {
			claim.Release()
		}
		return nil, false, err
	}
	if claim != nil {
		claim.Fulfill(placed.ID)
	}
	s.log.Info("order placed",
		"order_id", placed.ID,
		"items_count", len(placed.Items),
		"total_amount", placed.TotalAmount,
		"payment_method", placed.PaymentMethod,
	)
	return placed, false, nil
}

// placeWithRetry runs the placement transaction, retrying commit conflicts
// with backoff. A retry re-reads stock, so losing a race for the last unit
// reports InsufficientStockError rather than a conflict.
func (s *OrderService) placeWithRetry(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	for attempt := 1; ; attempt++ {
		order, err := s.tryPlace(ctx, req)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, repository.ErrTxConflict) {
			return nil, err
		}
		if attempt >= s.maxAttempts {
			s.log.Warn("order placement gave up after commit conflicts", "attempts", attempt)
			return nil, fmt.Errorf("%w: %v", ErrOrderPlacementFailed, err)
		}
		if err := s.backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (s *OrderService) tryPlace(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	var order *models.Order
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		now := time.Now().UTC()
		for _, item := range req.Items {
			p, err := tx.Product(ctx, item.ProductID)
			if err != nil {
				return err
			}
			idx := p.SizeIndex(item.Size)
			if idx < 0 {
				return &SizeNotFoundError{ProductID: p.ID, Size: item.Size}
			}
			if p.Sizes[idx].Quantity < item.Quantity {
				return &InsufficientStockError{
					ProductID: p.ID,
					Size:      item.Size,
					Requested: item.Quantity,
					Available: p.Sizes[idx].Quantity,
				}
			}
			p.Sizes[idx].Quantity -= item.Quantity
			p.RecomputeTotals()
			p.UpdatedAt = now
			if err := tx.SaveProduct(ctx, p); err != nil {
				return err
			}
		}

		order = &models.Order{
			ID:              uuid.New().String(),
			Items:           append([]models.OrderItem(nil), req.Items...),
			TotalAmount:     req.TotalAmount,
			ShippingAddress: req.ShippingAddress,
			Status:          models.OrderStatusPending,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   models.PaymentStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return tx.CreateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) backoff(ctx context.Context, attempt int) error {
	d := s.retryBase << (attempt - 1)
	d += time.Duration(rand.Int63n(int64(s.retryBase)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func validateOrderRequest(req models.OrderRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return ErrInvalidProduct
		}
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	if !req.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	return nil
}

// UpdateOrderStatus sets the order's status or payment status, whichever
// the request's type selects, and bumps the modification timestamp. The
// write is scoped to that one field, so concurrent order and payment
// updates to the same order both land.
// Inventory is never touched: cancelling an order does not restock.
// Setting the current value again is an error-free no-op write.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, req models.StatusUpdateRequest) (*models.Order, error) {
	patch := repository.OrderStatusPatch{UpdatedAt: time.Now().UTC()}
	switch req.Type {
	case "order":
		if !models.ValidOrderStatus(req.Status) {
			return nil, ErrInvalidStatus
		}
		status := models.OrderStatus(req.Status)
		patch.Status = &status
	case "payment":
		if !models.ValidPaymentStatus(req.PaymentStatus) {
			return nil, ErrInvalidStatus
		}
		payment := models.PaymentStatus(req.PaymentStatus)
		patch.PaymentStatus = &payment
	default:
		return nil, ErrInvalidUpdateType
	}

	order, err := s.store.UpdateOrderStatus(ctx, req.OrderID, patch)
	if err != nil {
		return nil, err
	}

	s.log.Info("order status updated",
		"order_id", order.ID,
		"type", req.Type,
		"status", order.Status,
		"payment_status", order.PaymentStatus,
	)
	return order, nil
}

// GetOrder returns the order with the given ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// ListOrders returns a page of orders, newest first, plus the total count.
func (s *OrderService) ListOrders(ctx context.Context, page, limit int) ([]models.Order, int, error) {
	return s.store.ListOrders(ctx, page, limit)
}
