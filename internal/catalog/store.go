package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Store defines the read operations over the product catalog.
type Store interface {
	// ListCategories returns all categories ordered by id ascending.
	ListCategories(ctx context.Context) ([]Category, error)

	// GetCategory returns one category or ErrNotFound.
	GetCategory(ctx context.Context, id int64) (*Category, error)

	// ListMakers returns all makers ordered by id ascending.
	ListMakers(ctx context.Context) ([]Maker, error)

	// GetMaker returns one maker or ErrNotFound.
	GetMaker(ctx context.Context, id int64) (*Maker, error)

	// SearchProducts returns products matching the query, ordered by id ascending.
	SearchProducts(ctx context.Context, q ProductQuery) ([]ProductSummary, error)

	// ListVariants returns a product's variants ordered by price ascending.
	ListVariants(ctx context.Context, productID int64) ([]VariantListing, error)

	// GetVariantDetails returns the variants that exist among ids, joined with
	// their product and maker. Unknown ids are omitted, not reported as errors.
	GetVariantDetails(ctx context.Context, ids []int64) ([]VariantDetail, error)
}

// InMemoryStore is an in-memory implementation of Store.
// Thread-safe via RWMutex.
type InMemoryStore struct {
	mu         sync.RWMutex
	categories map[int64]Category
	makers     map[int64]Maker
	products   map[int64]Product
	variants   map[int64]Variant
}

// NewInMemoryStore creates a store populated from the given snapshot.
func NewInMemoryStore(snap Snapshot) *InMemoryStore {
	s := &InMemoryStore{
		categories: make(map[int64]Category),
		makers:     make(map[int64]Maker),
		products:   make(map[int64]Product),
		variants:   make(map[int64]Variant),
	}
	s.Load(snap)
	return s
}

// Load adds or replaces every entity in the snapshot.
func (s *InMemoryStore) Load(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range snap.Categories {
		c.Specs = append([]SpecRecord(nil), c.Specs...)
		s.categories[c.ID] = c
	}
	for _, m := range snap.Makers {
		s.makers[m.ID] = m
	}
	for _, p := range snap.Products {
		p.CommonSpecs = p.CommonSpecs.Clone()
		s.products[p.ID] = p
	}
	for _, v := range snap.Variants {
		v.OptionSpecs = v.OptionSpecs.Clone()
		s.variants[v.ID] = v
	}
}

// ListCategories implements Store.
func (s *InMemoryStore) ListCategories(ctx context.Context) ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Category, 0, len(s.categories))
	for _, c := range s.categories {
		c.Specs = append([]SpecRecord(nil), c.Specs...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetCategory implements Store.
func (s *InMemoryStore) GetCategory(ctx context.Context, id int64) (*Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	c.Specs = append([]SpecRecord(nil), c.Specs...)
	return &c, nil
}

// ListMakers implements Store.
func (s *InMemoryStore) ListMakers(ctx context.Context) ([]Maker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Maker, 0, len(s.makers))
	for _, m := range s.makers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetMaker implements Store.
func (s *InMemoryStore) GetMaker(ctx context.Context, id int64) (*Maker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.makers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

// SearchProducts implements Store.
func (s *InMemoryStore) SearchProducts(ctx context.Context, q ProductQuery) ([]ProductSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text := strings.ToLower(q.Text)
	out := []ProductSummary{}
	for _, p := range s.products {
		if q.CategorySlug != "" {
			c, ok := s.categories[p.CategoryID]
			if !ok || c.Slug != q.CategorySlug {
				continue
			}
		}
		if text != "" && !strings.Contains(strings.ToLower(p.Name), text) {
			continue
		}
		out = append(out, ProductSummary{
			ID:       p.ID,
			Name:     p.Name,
			Brand:    s.brandLocked(p),
			ImageURL: p.ImageURL,
			Specs:    p.CommonSpecs.Clone(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListVariants implements Store.
func (s *InMemoryStore) ListVariants(ctx context.Context, productID int64) ([]VariantListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []VariantListing{}
	for _, v := range s.variants {
		if v.ProductID != productID {
			continue
		}
		out = append(out, VariantListing{
			ID:          v.ID,
			VariantName: v.VariantName,
			Price:       v.Price,
			OptionSpecs: v.OptionSpecs.Clone(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetVariantDetails implements Store. Results follow the order of ids.
func (s *InMemoryStore) GetVariantDetails(ctx context.Context, ids []int64) ([]VariantDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]VariantDetail, 0, len(ids))
	for _, id := range ids {
		v, ok := s.variants[id]
		if !ok {
			continue
		}
		p, ok := s.products[v.ProductID]
		if !ok {
			continue
		}
		v.OptionSpecs = v.OptionSpecs.Clone()
		out = append(out, VariantDetail{
			Variant:         v,
			ProductName:     p.Name,
			ProductImageURL: p.ImageURL,
			CommonSpecs:     p.CommonSpecs.Clone(),
			Brand:           s.brandLocked(p),
		})
	}
	return out, nil
}

// brandLocked resolves a product's maker name. Caller must hold s.mu.
func (s *InMemoryStore) brandLocked(p Product) string {
	if p.MakerID == nil {
		return UnknownBrand
	}
	return brandOrUnknown(s.makers[*p.MakerID].Name)
}
