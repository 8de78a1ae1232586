package api

import (
	"net/http"

	"github.com/goreulmanhae/compare-api/internal/middleware"
)

// RouterConfig lists the handlers mounted by NewRouter. Metrics may be nil to
// leave /metrics unmounted.
type RouterConfig struct {
	Compare  *CompareHandlers
	Catalog  *CatalogHandlers
	History  *HistoryHandlers
	Accounts *AccountHandlers
	Health   *HealthHandlers
	Metrics  http.Handler

	// Identity guards the history routes.
	Identity middleware.IdentityResolver
}

// NewRouter builds the API mux. Unknown paths get a JSON 404.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", cfg.Health.Health)
	mux.HandleFunc("GET /ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("POST /products/calculate", cfg.Compare.Calculate)

	mux.HandleFunc("GET /categories", cfg.Catalog.ListCategories)
	mux.HandleFunc("GET /makers", cfg.Catalog.ListMakers)
	mux.HandleFunc("GET /makers/{id}", cfg.Catalog.GetMaker)
	mux.HandleFunc("GET /products/search", cfg.Catalog.SearchProducts)
	mux.HandleFunc("GET /products/{productId}/variants", cfg.Catalog.ListVariants)

	requireAuth := middleware.RequireAuth(cfg.Identity)
	mux.Handle("GET /histories", requireAuth(http.HandlerFunc(cfg.History.List)))
	mux.Handle("GET /histories/{id}", requireAuth(http.HandlerFunc(cfg.History.Get)))

	mux.HandleFunc("GET /auth/check-username", cfg.Accounts.CheckUsername)

	mux.HandleFunc("/", notFound)
	return mux
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeErrorCode(w, r, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
}
