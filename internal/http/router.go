package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// Handlers groups the route handlers. Webhook and Products may be nil, in
// which case their routes are not mounted.
type Handlers struct {
	Catalog  *CatalogHandler
	Checkout *CheckoutHandler
	Webhook  *WebhookHandler
	Products *ProductHandler
}

func NewRouter(cfg RouterConfig, hs Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(MaxBodyMiddleware(cfg.MaxRequestBodySize))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/saleor", func(r chi.Router) {
			r.Get("/products", hs.Catalog.ListProducts)
			r.Get("/categories", hs.Catalog.ListCategories)
			r.Get("/collections", hs.Catalog.ListCollections)
			r.Get("/featured", hs.Catalog.Featured)
			r.Get("/product/{slug}", hs.Catalog.Product)
			r.Get("/category/{slug}", hs.Catalog.Category)
			r.Get("/collection/{slug}", hs.Catalog.Collection)
		})

		r.Route("/stripe", func(r chi.Router) {
			r.Get("/config", hs.Checkout.Config)
			r.Post("/create-payment-intent", hs.Checkout.CreatePaymentIntent)
			r.Get("/payment-intent/{id}", hs.Checkout.GetPaymentIntent)
			if hs.Webhook != nil {
				r.Post("/webhook", hs.Webhook.Handle)
			}
		})

		if hs.Products != nil {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", hs.Products.List)
				r.Post("/", hs.Products.Create)
				r.Get("/category/{category}", hs.Products.ListByCategory)
				r.Get("/{id}", hs.Products.Get)
				r.Patch("/{id}", hs.Products.Update)
				r.Delete("/{id}", hs.Products.Delete)
			})
			r.Post("/admin/seed", hs.Products.Seed)
		}
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
