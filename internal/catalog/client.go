// Package catalog fetches products from a remote catalog service speaking the
// storefront's own JSON envelope.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"

	"github.com/utafrali/storefront/internal/domain"
)

const serviceName = "catalog"

// Client looks up products over HTTP. Each lookup, decode included, runs
// inside the breaker, so malformed payloads count as failures too.
type Client struct {
	baseURL string
	http    *httpclient.Client
	breaker *httpclient.Breaker[*domain.Product]
}

// NewClient returns a client for the catalog at baseURL. While the breaker is
// open lookups fail fast with SERVICE_UNAVAILABLE.
func NewClient(baseURL string, client *httpclient.Client, breaker *httpclient.Breaker[*domain.Product]) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
		breaker: breaker.WithFallback(func(_ context.Context, err error) (*domain.Product, error) {
			return nil, unavailable(err)
		}),
	}
}

// GetByID fetches one product.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return c.breaker.Execute(ctx, func(ctx context.Context) (*domain.Product, error) {
		return c.fetch(ctx, id)
	})
}

func (c *Client) fetch(ctx context.Context, id string) (*domain.Product, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/api/v1/products/"+url.PathEscape(id))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, unavailable(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, serviceName)
	}
	defer resp.Body.Close()

	var envelope struct {
		Data *domain.Product `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, unavailable(fmt.Errorf("decode product %s: %w", id, err))
	}
	if envelope.Data == nil || envelope.Data.ID == "" {
		return nil, unavailable(fmt.Errorf("empty product payload for %s", id))
	}
	return envelope.Data, nil
}

func unavailable(cause error) error {
	appErr := apperrors.ServiceUnavailable("catalog service is unavailable")
	appErr.Err = fmt.Errorf("%w: %w", apperrors.ErrServiceUnavail, cause)
	return appErr
}
