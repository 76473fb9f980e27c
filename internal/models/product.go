package models

import "time"

// ProductStatus is the stock availability state of a product.
type ProductStatus string

const (
	ProductStatusInStock    ProductStatus = "in-stock"
	ProductStatusOutOfStock ProductStatus = "out-of-stock"
	ProductStatusComingSoon ProductStatus = "coming-soon"
)

// SizeEntry tracks remaining stock for one size variant of a product.
// Size labels are unique within a product.
type SizeEntry struct {
	Size     string `json:"size" bson:"size"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

// Product represents a shoe available for order.
// TotalQuantity is derived from Sizes and must be recomputed on every
// mutation of the size list; RecomputeTotals does that and flips the
// status to out-of-stock when the last unit is gone.
type Product struct {
	ID            string        `json:"id" bson:"_id"`
	Name          string        `json:"name" bson:"name"`
	Brand         string        `json:"brand" bson:"brand"`
	Category      string        `json:"category" bson:"category"`
	Price         float64       `json:"price" bson:"price"`
	Sizes         []SizeEntry   `json:"sizes" bson:"sizes"`
	TotalQuantity int           `json:"totalQuantity" bson:"totalQuantity"`
	Status        ProductStatus `json:"status" bson:"status"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// SizeIndex returns the index of the size entry with the given label,
// or -1 if the product does not offer that size.
func (p *Product) SizeIndex(label string) int {
	for i := range p.Sizes {
		if p.Sizes[i].Size == label {
			return i
		}
	}
	return -1
}

// RecomputeTotals recalculates TotalQuantity from the size entries and
// sets the status to out-of-stock when nothing is left.
func (p *Product) RecomputeTotals() {
	total := 0
	for i := range p.Sizes {
		total += p.Sizes[i].Quantity
	}
	p.TotalQuantity = total
	if total == 0 {
		p.Status = ProductStatusOutOfStock
	}
}
