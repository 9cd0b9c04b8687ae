package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// CheckoutHandler turns the session cart into a cash-on-delivery order.
type CheckoutHandler struct {
	checkout *service.CheckoutService
	logger   *slog.Logger
}

func NewCheckoutHandler(checkout *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, logger: logger}
}

// PlaceOrder serves POST /api/v1/checkout. On success the cart is emptied
// and the new order is returned with 201 and a Location header.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var in service.PlaceOrderInput
	if err := validator.DecodeAndValidate(r, &in); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()
	order, err := h.checkout.PlaceOrder(ctx, middleware.SessionIDFromContext(ctx), middleware.UserIDFromContext(ctx), in)
	if err == nil {
		w.Header().Set("Location", "/api/v1/orders/"+order.ID)
	}
	reply(w, r, h.logger, http.StatusCreated, order, err)
}
