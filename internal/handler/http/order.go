package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/pagination"
)

// OrderHandler serves the order history of the user named by X-User-ID.
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// ListOrders serves GET /api/v1/orders, newest first.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserIDFromContext(r.Context())
	page, err := h.orders.ListOrders(r.Context(), user, pagination.FromRequest(r))
	replyPage(w, r, h.logger, page, err)
}

// GetOrder serves GET /api/v1/orders/{id}. Orders owned by another user
// are reported as missing.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	user := middleware.UserIDFromContext(r.Context())
	order, err := h.orders.GetOrder(r.Context(), user, orderID.String())
	reply(w, r, h.logger, http.StatusOK, order, err)
}
