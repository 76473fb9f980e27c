package service

import (
	"context"

	"github.com/stridekart/shoe-store-api/internal/models"
	"github.com/stridekart/shoe-store-api/internal/repository"
)

// ProductService handles catalog reads for the storefront and admin UI.
type ProductService struct {
	store repository.Store
}

// NewProductService creates a new product service
func NewProductService(store repository.Store) *ProductService {
	return &ProductService{
		store: store,
	}
}

// ListProducts returns a page of products matching the filter and the
// total match count.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]models.Product, int, error) {
	return s.store.ListProducts(ctx, filter)
}

// GetProduct returns a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.store.GetProduct(ctx, id)
}
