package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/repository"
	"github.com/go-chi/chi/v5"
)

type ProductStore interface {
	ListProducts(ctx context.Context) ([]*domain.LocalProduct, error)
	GetProduct(ctx context.Context, id int64) (*domain.LocalProduct, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.LocalProduct, error)
	CreateProduct(ctx context.Context, in domain.LocalProductInput) (*domain.LocalProduct, error)
	UpdateProduct(ctx context.Context, id int64, in domain.LocalProductInput) (*domain.LocalProduct, error)
	DeleteProduct(ctx context.Context, id int64) error
	Seed(ctx context.Context) (int, error)
}

// ProductHandler serves the storefront's own product table.
type ProductHandler struct {
	store   ProductStore
	timeout time.Duration
	logger  *slog.Logger
}

func NewProductHandler(store ProductStore, timeout time.Duration, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

type SeedResponseDTO struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.store.ListProducts(ctx)
	if err != nil {
		h.internalError(w, r, "Failed to fetch products", err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.store.GetProduct(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
		return
	}
	if err != nil {
		h.internalError(w, r, "Failed to fetch product", err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.store.ListByCategory(ctx, chi.URLParam(r, "category"))
	if err != nil {
		h.internalError(w, r, "Failed to fetch products", err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var in domain.LocalProductInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product, err := h.store.CreateProduct(ctx, in)
	if errors.Is(err, domain.ErrInvalidProduct) {
		respondInvalidProduct(w, err)
		return
	}
	if err != nil {
		h.internalError(w, r, "Failed to create product", err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productID(w, r)
	if !ok {
		return
	}

	var in domain.LocalProductInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product, err := h.store.UpdateProduct(ctx, id, in)
	switch {
	case errors.Is(err, domain.ErrInvalidProduct):
		respondInvalidProduct(w, err)
	case errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
	case err != nil:
		h.internalError(w, r, "Failed to update product", err)
	default:
		respondJSON(w, http.StatusOK, product)
	}
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, ok := productID(w, r)
	if !ok {
		return
	}

	err := h.store.DeleteProduct(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
		return
	}
	if err != nil {
		h.internalError(w, r, "Failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/admin/seed
func (h *ProductHandler) Seed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, err := h.store.Seed(ctx)
	if err != nil {
		h.internalError(w, r, "Failed to seed products", err)
		return
	}
	respondJSON(w, http.StatusCreated, SeedResponseDTO{Message: "Products seeded", Count: n})
}

func (h *ProductHandler) internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.ErrorContext(r.Context(), message,
		"request_id", getRequestID(r.Context()), "error", err)
	respondError(w, http.StatusInternalServerError, "internal_error", message)
}

func respondInvalidProduct(w http.ResponseWriter, err error) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid product data",
		Code:    "invalid_product",
		Details: err.Error(),
	})
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "Invalid product ID")
		return 0, false
	}
	return id, true
}
