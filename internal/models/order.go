package models

import "time"

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether s names a known order status.
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus tracks payment independently of the order status.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// ValidPaymentStatus reports whether s names a known payment status.
func ValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// PaymentMethod is how the buyer chose to pay.
type PaymentMethod string

const (
	PaymentMethodCOD        PaymentMethod = "cod"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
)

// Valid reports whether the payment method is one of the supported variants.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetBanking:
		return true
	}
	return false
}

// OrderItem is one line of an order: a quantity of a product in a
// specific size, at the price snapshotted when the order was placed.
// Later catalog changes never alter a placed order.
type OrderItem struct {
	ProductID string  `json:"product" bson:"product"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Size      string  `json:"size" bson:"size"`
	Price     float64 `json:"price" bson:"price"`
}

// ShippingAddress is the free-form delivery address supplied by the buyer.
type ShippingAddress struct {
	FullName string `json:"fullName" bson:"fullName"`
	Phone    string `json:"phone" bson:"phone"`
	Address  string `json:"address" bson:"address"`
	City     string `json:"city" bson:"city"`
}

// Order is the immutable record of a purchase. Only Status, PaymentStatus
// and UpdatedAt change after creation.
type Order struct {
	ID              string          `json:"id" bson:"_id"`
	Items           []OrderItem     `json:"items" bson:"items"`
	TotalAmount     float64         `json:"totalAmount" bson:"totalAmount"`
	ShippingAddress ShippingAddress `json:"shippingAddress" bson:"shippingAddress"`
	Status          OrderStatus     `json:"status" bson:"status"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" bson:"paymentMethod"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" bson:"paymentStatus"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// OrderRequest represents an incoming order request.
type OrderRequest struct {
	Items           []OrderItem     `json:"items"`
	TotalAmount     float64         `json:"totalAmount"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
}

// StatusUpdateRequest represents an admin request to move an order's
// status or payment status. Type selects which of the two fields applies.
type StatusUpdateRequest struct {
	OrderID       string `json:"orderId"`
	Status        string `json:"status,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	Type          string `json:"type"`
}
