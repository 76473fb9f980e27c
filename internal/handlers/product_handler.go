package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stridekart/shoe-store-api/internal/models"
	"github.com/stridekart/shoe-store-api/internal/repository"
	"github.com/stridekart/shoe-store-api/internal/service"
)

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// ListProducts handles GET /api/product
// Supports category, brand, status, minPrice, maxPrice, q (text search),
// page and limit query parameters.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		h.logger.Warn("invalid product filter", "error", err)
		WriteError(w, http.StatusBadRequest, err.Error(), h.logger)
		return
	}

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"total":    total,
		"page":     page,
		"limit":    limit,
	}, h.logger)
}

func filterFromQuery(r *http.Request) (repository.ProductFilter, error) {
	q := r.URL.Query()
	filter := repository.ProductFilter{
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
		Search:   q.Get("q"),
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 20),
	}

	if status := q.Get("status"); status != "" {
		switch models.ProductStatus(status) {
		case models.ProductStatusInStock, models.ProductStatusOutOfStock, models.ProductStatusComingSoon:
			filter.Status = models.ProductStatus(status)
		default:
			return filter, errors.New("invalid status filter")
		}
	}

	if raw := q.Get("minPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, errors.New("minPrice must be a number")
		}
		filter.MinPrice = &v
	}
	if raw := q.Get("maxPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, errors.New("maxPrice must be a number")
		}
		filter.MaxPrice = &v
	}
	return filter, nil
}

// GetProduct handles GET /api/product/{productId}
// - 200: successful operation
// - 400: Invalid ID supplied
// - 404: Product not found
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		h.logger.Warn("product ID is required")
		WriteError(w, http.StatusBadRequest, "Invalid ID supplied", h.logger)
		return
	}

	product, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, &repository.ProductNotFoundError{}) {
			h.logger.Info("product not found", "product_id", productID)
			WriteError(w, http.StatusNotFound, "Product not found", h.logger)
			return
		}

		h.logger.Error("failed to get product", "product_id", productID, "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, product, h.logger)
}
