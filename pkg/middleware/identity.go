package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/pkg/logger"
)

// Header names set by the storefront front end and the upstream identity layer.
const (
	HeaderSessionID     = "X-Session-ID"
	HeaderUserID        = "X-User-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

const maxIdentityLen = 128

// Identity copies the X-User-ID and X-Session-ID headers into the request
// context. Values longer than 128 bytes are ignored. Authentication happens
// upstream; this middleware only propagates what it was given.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := headerValue(r, HeaderUserID); id != "" {
			ctx = logger.WithUserID(ctx, id)
		}
		if id := headerValue(r, HeaderSessionID); id != "" {
			ctx = logger.WithSessionID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the user ID propagated by Identity.
func UserIDFromContext(ctx context.Context) string {
	return logger.UserIDFromContext(ctx)
}

// SessionIDFromContext returns the browsing session ID propagated by Identity.
func SessionIDFromContext(ctx context.Context) string {
	return logger.SessionIDFromContext(ctx)
}

func headerValue(r *http.Request, name string) string {
	v := strings.TrimSpace(r.Header.Get(name))
	if len(v) > maxIdentityLen {
		return ""
	}
	return v
}
