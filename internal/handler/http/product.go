package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ProductHandler exposes the local catalog read-only. Responses are
// cacheable; see middleware.CacheControl in the router.
type ProductHandler struct {
	products *service.ProductService
	logger   *slog.Logger
}

func NewProductHandler(products *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// ListProducts serves GET /api/v1/products with optional q, page and
// per_page query parameters.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.products.ListProducts(r.Context(), pagination.FromRequest(r))
	replyPage(w, r, h.logger, page, err)
}

// GetProduct serves GET /api/v1/products/{id}.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetProduct(r.Context(), chi.URLParam(r, "id"))
	reply(w, r, h.logger, http.StatusOK, p, err)
}
