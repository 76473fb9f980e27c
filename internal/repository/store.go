package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stridekart/shoe-store-api/internal/models"
)

// ErrTxConflict is returned by InTx when a unit of work could not commit
// because a concurrent transaction modified one of the products it read.
// The whole operation left no partial state and is safe to retry.
var ErrTxConflict = errors.New("transaction conflict")

// ProductNotFoundError is returned when a product with the given ID does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: id=%s", e.ProductID)
}

// Is allows matching with errors.Is regardless of the ID carried.
func (e *ProductNotFoundError) Is(target error) bool {
	_, ok := target.(*ProductNotFoundError)
	return ok
}

// OrderNotFoundError is returned when an order with the given ID does not exist.
type OrderNotFoundError struct {
	OrderID string
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order not found: id=%s", e.OrderID)
}

// Is allows matching with errors.Is regardless of the ID carried.
func (e *OrderNotFoundError) Is(target error) bool {
	_, ok := target.(*OrderNotFoundError)
	return ok
}

// ProductFilter narrows and pages a product listing.
type ProductFilter struct {
	Category string
	Brand    string
	Status   models.ProductStatus
	MinPrice *float64
	MaxPrice *float64
	Search   string // case-insensitive match on name or brand
	Page     int    // 1-based; defaults to 1
	Limit    int    // defaults to 20
}

// OrderStatusPatch carries the single field a status update writes. Nil
// fields are left untouched, so concurrent order and payment updates to the
// same order cannot clobber each other.
type OrderStatusPatch struct {
	Status        *models.OrderStatus
	PaymentStatus *models.PaymentStatus
	UpdatedAt     time.Time
}

// Tx is the view of the store inside one unit of work. All reads observe
// a consistent snapshot and all writes are buffered: nothing becomes
// visible to other readers unless the callback passed to InTx returns nil
// and the commit succeeds.
type Tx interface {
	// Product loads a product into the transaction. The returned value is
	// private to the transaction and may be mutated in place before SaveProduct.
	Product(ctx context.Context, id string) (*models.Product, error)
	// SaveProduct stages the product's current state for commit.
	SaveProduct(ctx context.Context, p *models.Product) error
	// CreateOrder stages a new order for commit.
	CreateOrder(ctx context.Context, o *models.Order) error
}

// Store is the persistence surface for products and orders.
type Store interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, page, limit int) ([]models.Order, int, error)
	// UpdateOrderStatus applies the patch to the stored order and returns
	// the updated document.
	UpdateOrderStatus(ctx context.Context, id string, patch OrderStatusPatch) (*models.Order, error)

	// InTx runs fn as one all-or-nothing unit of work. A non-nil error from
	// fn aborts the transaction and is returned unchanged; a failed commit
	// returns ErrTxConflict or the underlying storage error.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	Close(ctx context.Context) error
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit
}
