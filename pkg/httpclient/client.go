// Package httpclient provides the outbound HTTP client used for calls to
// other services: pooled connections, bounded retries with jittered
// backoff, trace and correlation header propagation, and a typed circuit
// breaker.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/utafrali/storefront/pkg/logger"
)

const headerCorrelationID = "X-Correlation-ID"

type Config struct {
	// Timeout bounds a single attempt including reading the body.
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

func DefaultConfig() Config {
	return Config{
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    time.Second,
		MaxConnsPerHost: 50,
	}
}

type Client struct {
	http *http.Client
	cfg  Config
}

func New(cfg Config) *Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dialer.DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
				MaxConnsPerHost:       cfg.MaxConnsPerHost,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		},
	}
}

// Do sends req, retrying up to MaxRetries times on network errors and on
// 5xx responses other than 501. A request with a body is only retried when
// GetBody can rewind it.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if id := logger.CorrelationIDFromContext(ctx); id != "" && req.Header.Get(headerCorrelationID) == "" {
		req.Header.Set(headerCorrelationID, id)
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.http.Do(req)

		reason := retryReason(resp, err)
		if reason == "" || attempt > c.cfg.MaxRetries || ctx.Err() != nil {
			if err != nil {
				return nil, fmt.Errorf("http request failed after %d attempts: %w", attempt, err)
			}
			return resp, nil
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		if err := rewind(req); err != nil {
			return nil, err
		}
		clientRetries.WithLabelValues(req.URL.Host, reason).Inc()

		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Get sends a GET that asks for JSON.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.Do(ctx, req)
}

// retryReason names why the attempt should be retried, or returns "".
func retryReason(resp *http.Response, err error) string {
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.Canceled) || !errors.As(err, &netErr) {
			return ""
		}
		return "network"
	}
	if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented {
		return "status_5xx"
	}
	return ""
}

func rewind(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if req.GetBody == nil {
		return errors.New("http request: cannot retry request without GetBody")
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("http request: rewind body: %w", err)
	}
	req.Body = body
	return nil
}

// backoff doubles RetryWaitMin per attempt up to RetryWaitMax, then
// spreads the result by up to 25% either way.
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.cfg.RetryWaitMin
	for i := 1; i < attempt && wait > 0; i++ {
		if c.cfg.RetryWaitMax > 0 && wait >= c.cfg.RetryWaitMax {
			break
		}
		wait *= 2
	}
	if c.cfg.RetryWaitMax > 0 && wait > c.cfg.RetryWaitMax {
		wait = c.cfg.RetryWaitMax
	}
	if wait <= 0 {
		return 0
	}
	jitter := float64(wait) * 0.25 * (2*rand.Float64() - 1) // #nosec G404 -- jitter only
	return wait + time.Duration(jitter)
}
