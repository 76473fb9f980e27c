package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stridekart/shoe-store-api/internal/models"
)

// MemoryStore implements Store with in-memory storage and optimistic
// transactions. Each product carries a version counter; a transaction
// clones products on first read and the commit re-checks every version
// under the store lock before applying its buffered writes, so a
// conflicting commit fails with ErrTxConflict instead of overwriting.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*productRecord
	orders   map[string]*models.Order
	orderSeq []string // order IDs in creation order
}

type productRecord struct {
	product models.Product
	version uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*productRecord),
		orders:   make(map[string]*models.Order),
	}
}

// NewSeededMemoryStore creates an in-memory store preloaded with a small
// shoe catalog.
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	now := time.Now().UTC()
	seed := []models.Product{
		{ID: "1", Name: "Air Zoom Pegasus 41", Brand: "Nike", Category: "running", Price: 129.99,
			Sizes: []models.SizeEntry{{Size: "40", Quantity: 6}, {Size: "41", Quantity: 8}, {Size: "42", Quantity: 10}, {Size: "43", Quantity: 5}}},
		{ID: "2", Name: "Ultraboost Light", Brand: "Adidas", Category: "running", Price: 189.99,
			Sizes: []models.SizeEntry{{Size: "41", Quantity: 4}, {Size: "42", Quantity: 7}, {Size: "44", Quantity: 3}}},
		{ID: "3", Name: "Gel-Kayano 31", Brand: "ASICS", Category: "running", Price: 164.99,
			Sizes: []models.SizeEntry{{Size: "42", Quantity: 5}, {Size: "43", Quantity: 6}}},
		{ID: "4", Name: "Chuck Taylor All Star", Brand: "Converse", Category: "casual", Price: 64.99,
			Sizes: []models.SizeEntry{{Size: "39", Quantity: 12}, {Size: "40", Quantity: 9}, {Size: "41", Quantity: 11}}},
		{ID: "5", Name: "Classic Leather", Brand: "Reebok", Category: "casual", Price: 89.99,
			Sizes: []models.SizeEntry{{Size: "40", Quantity: 7}, {Size: "42", Quantity: 4}}},
		{ID: "6", Name: "Old Skool", Brand: "Vans", Category: "skate", Price: 74.99,
			Sizes: []models.SizeEntry{{Size: "41", Quantity: 8}, {Size: "42", Quantity: 6}, {Size: "43", Quantity: 2}}},
		{ID: "7", Name: "574 Core", Brand: "New Balance", Category: "lifestyle", Price: 99.99,
			Sizes: []models.SizeEntry{{Size: "40", Quantity: 5}, {Size: "41", Quantity: 5}, {Size: "42", Quantity: 5}}},
		{ID: "8", Name: "Suede Classic XXI", Brand: "Puma", Category: "casual", Price: 79.99,
			Sizes: []models.SizeEntry{{Size: "39", Quantity: 3}, {Size: "44", Quantity: 2}}},
	}
	for i := range seed {
		seed[i].Status = models.ProductStatusInStock
		seed[i].CreatedAt = now
		seed[i].UpdatedAt = now
		seed[i].RecomputeTotals()
	}
	s.SeedProducts(seed...)
	return s
}

// SeedProducts inserts or replaces products directly, outside any
// transaction. Intended for bootstrap and tests.
func (s *MemoryStore) SeedProducts(products ...models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[p.ID] = &productRecord{product: cloneProduct(p)}
	}
}

// GetProduct returns a copy of the product with the given ID.
func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.products[id]
	if !ok {
		return nil, &ProductNotFoundError{ProductID: id}
	}
	p := cloneProduct(rec.product)
	return &p, nil
}

// ListProducts returns a page of products matching the filter plus the
// total match count. Results are ordered by name.
func (s *MemoryStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int, error) {
	s.mu.RLock()
	matched := make([]models.Product, 0, len(s.products))
	for _, rec := range s.products {
		if matchesFilter(&rec.product, &filter) {
			matched = append(matched, cloneProduct(rec.product))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	page, limit := normalizePage(filter.Page, filter.Limit)
	start := (page - 1) * limit
	if start >= total {
		return []models.Product{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matchesFilter(p *models.Product, f *ProductFilter) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Brand != "" && p.Brand != f.Brand {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Brand), q) {
			return false
		}
	}
	return true
}

// GetOrder returns a copy of the order with the given ID.
func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, &OrderNotFoundError{OrderID: id}
	}
	out := cloneOrder(*o)
	return &out, nil
}

// ListOrders returns a page of orders, newest first, plus the total count.
func (s *MemoryStore) ListOrders(ctx context.Context, page, limit int) ([]models.Order, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.orderSeq)
	page, limit = normalizePage(page, limit)
	start := (page - 1) * limit
	if start >= total {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]models.Order, 0, end-start)
	for i := start; i < end; i++ {
		// orderSeq is oldest-first; walk it from the back
		id := s.orderSeq[total-1-i]
		out = append(out, cloneOrder(*s.orders[id]))
	}
	return out, total, nil
}

// UpdateOrderStatus mutates only the fields the patch carries, under the
// store lock, and returns a copy of the updated order.
func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, patch OrderStatusPatch) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, &OrderNotFoundError{OrderID: id}
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		o.PaymentStatus = *patch.PaymentStatus
	}
	o.UpdatedAt = patch.UpdatedAt
	out := cloneOrder(*o)
	return &out, nil
}

// InTx runs fn against a transaction view and commits its buffered writes
// if fn returns nil. See Store.InTx for the contract.
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{s: s, reads: make(map[string]*txProduct)}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

type txProduct struct {
	clone   *models.Product
	version uint64
	dirty   bool
}

// memoryTx buffers one unit of work. Products are cloned on first read;
// the clones are the transaction's private working copies. Nothing touches
// the shared maps until commit.
type memoryTx struct {
	s      *MemoryStore
	reads  map[string]*txProduct
	orders []*models.Order
}

func (tx *memoryTx) Product(ctx context.Context, id string) (*models.Product, error) {
	if tp, ok := tx.reads[id]; ok {
		return tp.clone, nil
	}
	tx.s.mu.RLock()
	rec, ok := tx.s.products[id]
	if !ok {
		tx.s.mu.RUnlock()
		return nil, &ProductNotFoundError{ProductID: id}
	}
	clone := cloneProduct(rec.product)
	version := rec.version
	tx.s.mu.RUnlock()

	tp := &txProduct{clone: &clone, version: version}
	tx.reads[id] = tp
	return tp.clone, nil
}

func (tx *memoryTx) SaveProduct(ctx context.Context, p *models.Product) error {
	tp, ok := tx.reads[p.ID]
	if !ok {
		return &ProductNotFoundError{ProductID: p.ID}
	}
	tp.clone = p
	tp.dirty = true
	return nil
}

func (tx *memoryTx) CreateOrder(ctx context.Context, o *models.Order) error {
	staged := cloneOrder(*o)
	tx.orders = append(tx.orders, &staged)
	return nil
}

// commit validates that no product read by the transaction changed since,
// then applies all staged writes under the store lock. Validation happens
// before any write, so a conflict leaves the store untouched.
func (tx *memoryTx) commit() error {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()

	for id, tp := range tx.reads {
		rec, ok := tx.s.products[id]
		if !ok || rec.version != tp.version {
			return ErrTxConflict
		}
	}
	for _, o := range tx.orders {
		if _, exists := tx.s.orders[o.ID]; exists {
			return ErrTxConflict
		}
	}

	// apply product writes in sorted ID order for determinism
	dirty := make([]string, 0, len(tx.reads))
	for id, tp := range tx.reads {
		if tp.dirty {
			dirty = append(dirty, id)
		}
	}
	sort.Strings(dirty)
	for _, id := range dirty {
		rec := tx.s.products[id]
		rec.product = cloneProduct(*tx.reads[id].clone)
		rec.version++
	}
	for _, o := range tx.orders {
		tx.s.orders[o.ID] = o
		tx.s.orderSeq = append(tx.s.orderSeq, o.ID)
	}
	return nil
}

func cloneProduct(p models.Product) models.Product {
	p.Sizes = append([]models.SizeEntry(nil), p.Sizes...)
	return p
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}
