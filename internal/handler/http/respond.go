package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// reply writes v inside the data envelope with status, or err as an error
// envelope.
func reply(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, v any, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, logger)
		return
	}
	httputil.WriteData(w, status, v)
}

// replyPage writes a paginated listing as-is; it already carries its own
// data and meta fields.
func replyPage[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, page *pagination.Result[T], err error) {
	if err != nil {
		httputil.WriteError(w, r, err, logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}
