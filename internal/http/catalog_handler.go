package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/catalog"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CatalogService interface {
	ListProducts(ctx context.Context, channel string, first int) ([]domain.Product, error)
	ListCategories(ctx context.Context, first int) ([]domain.Category, error)
	ListCollections(ctx context.Context, channel string, first int) ([]domain.Collection, error)
	FeaturedProducts(ctx context.Context, channel, slug string) ([]domain.Product, error)
	ProductBySlug(ctx context.Context, channel, slug string) (*domain.Product, error)
	CategoryBySlug(ctx context.Context, channel, slug string) (*domain.Category, error)
	CollectionBySlug(ctx context.Context, channel, slug string) (*domain.Collection, error)
}

// CatalogHandler serves the read-only catalog proxy under /api/saleor.
type CatalogHandler struct {
	catalog CatalogService
	timeout time.Duration
	logger  *slog.Logger
}

func NewCatalogHandler(svc CatalogService, timeout time.Duration, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: svc,
		timeout: timeout,
		logger:  logger,
	}
}

// GET /api/saleor/products?channel=&first=
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx, r.URL.Query().Get("channel"), queryInt(r, "first"))
	if err != nil {
		h.handleCatalogError(w, r, err, "product not found")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GET /api/saleor/categories?first=
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx, queryInt(r, "first"))
	if err != nil {
		h.handleCatalogError(w, r, err, "category not found")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// GET /api/saleor/collections?channel=&first=
func (h *CatalogHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	collections, err := h.catalog.ListCollections(ctx, r.URL.Query().Get("channel"), queryInt(r, "first"))
	if err != nil {
		h.handleCatalogError(w, r, err, "collection not found")
		return
	}
	respondJSON(w, http.StatusOK, collections)
}

// GET /api/saleor/featured?channel=&slug=
func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	products, err := h.catalog.FeaturedProducts(ctx, q.Get("channel"), q.Get("slug"))
	if err != nil {
		h.handleCatalogError(w, r, err, "collection not found")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// GET /api/saleor/product/{slug}
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.ProductBySlug(ctx, r.URL.Query().Get("channel"), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleCatalogError(w, r, err, "Product not found")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

// GET /api/saleor/category/{slug}
func (h *CatalogHandler) Category(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	category, err := h.catalog.CategoryBySlug(ctx, r.URL.Query().Get("channel"), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleCatalogError(w, r, err, "Category not found")
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// GET /api/saleor/collection/{slug}
func (h *CatalogHandler) Collection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	collection, err := h.catalog.CollectionBySlug(ctx, r.URL.Query().Get("channel"), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleCatalogError(w, r, err, "Collection not found")
		return
	}
	respondJSON(w, http.StatusOK, collection)
}

func (h *CatalogHandler) handleCatalogError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", notFound)
		return
	}
	h.logger.ErrorContext(r.Context(), "catalog request failed",
		"path", r.URL.Path,
		"request_id", getRequestID(r.Context()),
		"error", err)
	respondError(w, http.StatusInternalServerError, "catalog_error", upstreamMessage(err))
}

// upstreamMessage unwraps to the catalog's own message where there is one.
func upstreamMessage(err error) string {
	var gqlErr *catalog.GraphQLError
	if errors.As(err, &gqlErr) {
		return gqlErr.Message
	}
	var upErr *catalog.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Error()
	}
	return err.Error()
}

// queryInt returns 0 for a missing or malformed value so the gateway default applies.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
