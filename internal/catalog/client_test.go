package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"

	"github.com/utafrali/storefront/internal/domain"
)

func newClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := httpclient.New(httpclient.Config{
		Timeout:         2 * time.Second,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 4,
	})
	cfg := httpclient.DefaultBreakerConfig("catalog-test-" + t.Name())
	cfg.MinRequests = 2
	cfg.FailureRatio = 1
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewClient(srv.URL+"/", base, httpclient.NewBreaker[*domain.Product](cfg, logger))
}

func TestClient_GetByID(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products/p%201", r.URL.EscapedPath())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"p 1","name":"Mug","price":"9.99","images":["m.jpg"],"stock":3}}`))
	})

	p, err := client.GetByID(context.Background(), "p 1")
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, "m.jpg", p.PrimaryImage())
}

func TestClient_GetByID_NotFound(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"product p9 not found"}}`))
	})

	_, err := client.GetByID(context.Background(), "p9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
}

func TestClient_GetByID_MalformedPayload(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	})

	_, err := client.GetByID(context.Background(), "p1")
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
}

func TestClient_GetByID_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.GetByID(ctx, "p1")
		require.Error(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
	}

	_, err := client.GetByID(ctx, "p1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	assert.True(t, errors.Is(err, httpclient.ErrCircuitOpen))
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the server")
}

func TestClient_GetByID_NotFoundKeepsBreakerClosed(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 4; i++ {
		_, err := client.GetByID(context.Background(), "ghost")
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	}
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_GetByID_MalformedPayloadTripsBreaker(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":`))
	})

	for i := 0; i < 3; i++ {
		_, err := client.GetByID(context.Background(), "p1")
		assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
	}
	assert.Equal(t, int32(2), calls.Load())
}
