package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectMetric returns the first series of c carrying all of labels.
func collectMetric(c prometheus.Collector, labels map[string]string) *dto.Metric {
	ch := make(chan prometheus.Metric, 100)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if err := m.Write(d); err != nil {
			continue
		}
		if hasLabels(d, labels) {
			return d
		}
	}
	return nil
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func cartRouter(mw func(http.Handler) http.Handler, h http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(mw)
	r.Get("/api/v1/cart", h)
	r.Put("/api/v1/cart/items/{productId}", h)
	return r
}

func TestPrometheusMetrics_LabelsByRoutePattern(t *testing.T) {
	router := cartRouter(PrometheusMetrics("route-svc"), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"p-1", "p-2", "p-3"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/cart/items/"+id, nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	m := collectMetric(httpRequestsTotal, map[string]string{
		"service": "route-svc", "method": "PUT", "route": "/api/v1/cart/items/{productId}", "status": "200",
	})
	require.NotNil(t, m)
	assert.Equal(t, float64(3), m.GetCounter().GetValue())

	h := collectMetric(httpRequestDuration, map[string]string{"service": "route-svc", "route": "/api/v1/cart/items/{productId}"})
	require.NotNil(t, h)
	assert.Equal(t, uint64(3), h.GetHistogram().GetSampleCount())
}

func TestPrometheusMetrics_UnmatchedRoute(t *testing.T) {
	router := cartRouter(PrometheusMetrics("unmatched-svc"), func(w http.ResponseWriter, r *http.Request) {})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	m := collectMetric(httpRequestsTotal, map[string]string{"service": "unmatched-svc", "route": unmatchedRoute, "status": "404"})
	assert.NotNil(t, m)
}

func TestPrometheusMetrics_ResponseSize(t *testing.T) {
	router := cartRouter(PrometheusMetrics("size-svc"), func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"cart":{"items":[]}}}`))
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	m := collectMetric(httpResponseSize, map[string]string{"service": "size-svc", "route": "/api/v1/cart"})
	require.NotNil(t, m)
	assert.Equal(t, float64(len(`{"data":{"cart":{"items":[]}}}`)), m.GetHistogram().GetSampleSum())

	// No explicit WriteHeader still counts as 200.
	assert.NotNil(t, collectMetric(httpRequestsTotal, map[string]string{"service": "size-svc", "status": "200"}))
}

func TestPrometheusMetrics_InFlightGauge(t *testing.T) {
	var seen float64
	router := cartRouter(PrometheusMetrics("inflight-svc"), func(w http.ResponseWriter, r *http.Request) {
		if m := collectMetric(httpRequestsInFlight, map[string]string{"service": "inflight-svc"}); m != nil {
			seen = m.GetGauge().GetValue()
		}
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	assert.Equal(t, float64(1), seen)
	m := collectMetric(httpRequestsInFlight, map[string]string{"service": "inflight-svc"})
	require.NotNil(t, m)
	assert.Equal(t, float64(0), m.GetGauge().GetValue())
}

func TestPrometheusMetrics_StatusCodes(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusConflict, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			svc := "status-" + http.StatusText(code)
			router := cartRouter(PrometheusMetrics(svc), func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

			assert.NotNil(t, collectMetric(httpRequestsTotal, map[string]string{
				"service": svc, "status": strconv.Itoa(code),
			}))
		})
	}
}
