package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cartsync/api/controllers"
	"github.com/angelmondragon/cartsync/api/middleware"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/metrics"
)

// NewRouter serves the development stock and catalog API.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	catalogService controllers.CatalogService,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.Catalog.CORSOrigins),
		middleware.Logging(logg),
		middleware.Metrics(metrics.NewHTTPMetrics(registry)),
	)

	r.Get("/health", controllers.Health(cfg, logg))
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(catalogService, logg))
		r.Get("/{id}", controllers.GetProduct(catalogService, logg))
	})
	r.Route("/stock", func(r chi.Router) {
		r.Get("/{id}", controllers.GetStock(catalogService, logg))
		r.Put("/{id}", controllers.SetStock(catalogService, logg))
	})

	return r
}
