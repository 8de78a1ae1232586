package api

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/goreulmanhae/compare-api/internal/catalog"
	"github.com/goreulmanhae/compare-api/internal/validate"
)

var categorySlugPattern = regexp.MustCompile(`^[a-z0-9_\-]+$`)

// CatalogHandlers serves read-only catalog endpoints.
type CatalogHandlers struct {
	store catalog.Store
}

// NewCatalogHandlers creates a new CatalogHandlers instance.
func NewCatalogHandlers(store catalog.Store) *CatalogHandlers {
	return &CatalogHandlers{store: store}
}

// ListCategories handles GET /categories.
func (h *CatalogHandlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, categories)
}

// ListMakers handles GET /makers.
func (h *CatalogHandlers) ListMakers(w http.ResponseWriter, r *http.Request) {
	makers, err := h.store.ListMakers(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, makers)
}

// GetMaker handles GET /makers/{id}.
func (h *CatalogHandlers) GetMaker(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	maker, err := h.store.GetMaker(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, maker)
}

// SearchProducts handles GET /products/search?q=&category=.
func (h *CatalogHandlers) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q, err := validate.SearchQuery(r.URL.Query().Get("q"))
	if err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, ErrCodeValidation, "q: "+err.Error())
		return
	}
	slug, err := validate.String(r.URL.Query().Get("category"), validate.StringConstraints{
		MaxLength:      64,
		AllowedPattern: categorySlugPattern,
		AllowEmpty:     true,
		TrimSpace:      true,
	})
	if err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, ErrCodeValidation, "category: "+err.Error())
		return
	}

	products, err := h.store.SearchProducts(r.Context(), catalog.ProductQuery{Text: q, CategorySlug: slug})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, products)
}

// ListVariants handles GET /products/{productId}/variants.
func (h *CatalogHandlers) ListVariants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productId")
	if !ok {
		return
	}
	variants, err := h.store.ListVariants(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, variants)
}

// pathID parses a positive integer path value. On failure it writes a 400
// and returns false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeErrorCode(w, r, http.StatusBadRequest, ErrCodeValidation, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}
