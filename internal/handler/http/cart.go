package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartHandler exposes the session cart. Every response carries the cart
// view plus the messages produced by the operation.
type CartHandler struct {
	carts  *service.CartService
	logger *slog.Logger
}

func NewCartHandler(carts *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, logger: logger}
}

// AddItemRequest is the JSON request body for adding a product to the cart.
// A missing quantity adds one unit.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,product_id,max=128"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=1000"`
}

// UpdateQuantityRequest is the JSON request body for setting a line's
// quantity. Zero or less removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,lte=1000"`
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.carts.GetCart(r.Context(), middleware.SessionIDFromContext(r.Context()))
	h.respond(w, r, res, err)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	res, err := h.carts.AddItem(r.Context(), middleware.SessionIDFromContext(r.Context()), req.ProductID, req.Quantity)
	h.respond(w, r, res, err)
}

// UpdateQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	res, err := h.carts.UpdateQuantity(r.Context(), middleware.SessionIDFromContext(r.Context()),
		chi.URLParam(r, "productId"), *req.Quantity)
	h.respond(w, r, res, err)
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	res, err := h.carts.RemoveItem(r.Context(), middleware.SessionIDFromContext(r.Context()), chi.URLParam(r, "productId"))
	h.respond(w, r, res, err)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.carts.ClearCart(r.Context(), middleware.SessionIDFromContext(r.Context()))
	h.respond(w, r, res, err)
}

func (h *CartHandler) respond(w http.ResponseWriter, r *http.Request, res *service.CartResult, err error) {
	reply(w, r, h.logger, http.StatusOK, res, err)
}
