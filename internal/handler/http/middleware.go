package http

import (
	"mime"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

// ContentTypeJSON rejects request bodies that are declared as anything but
// application/json. A missing Content-Type is accepted.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasBody := r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch
		if ct := r.Header.Get("Content-Type"); hasBody && ct != "" {
			if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
				httputil.WriteError(w, r, apperrors.UnsupportedMediaType("Content-Type must be application/json"), nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession rejects requests that carry no X-Session-ID. It must run
// after middleware.Identity.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.SessionIDFromContext(r.Context()) == "" {
			httputil.WriteError(w, r, apperrors.InvalidInput(middleware.HeaderSessionID+" header is required"), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests without an X-User-ID set by the upstream
// identity layer. It must run after middleware.Identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.UserIDFromContext(r.Context()) == "" {
			httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
