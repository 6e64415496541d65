package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout             = 10 * time.Second
	responseBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("catalog base url is required")

// Client reads stock and product metadata from the catalog HTTP API. Concurrent
// lookups for the same resource share one in-flight request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	group      singleflight.Group
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a catalog client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// GetStock fetches the stock record for productID.
func (c *Client) GetStock(ctx context.Context, productID int) (Stock, error) {
	if c == nil {
		return Stock{}, pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}
	v, err := c.shared(ctx, fmt.Sprintf("stock:%d", productID), func(ctx context.Context) (any, error) {
		var stock Stock
		if err := c.get(ctx, fmt.Sprintf("stock/%d", productID), &stock); err != nil {
			return Stock{}, err
		}
		return stock, nil
	})
	if err != nil {
		return Stock{}, err
	}
	stock := v.(Stock)
	if stock.ProductID != productID {
		return Stock{}, pkgerrors.New(pkgerrors.CodeDependency, "stock response does not match product").
			WithDetails(map[string]any{"requested": productID, "received": stock.ProductID})
	}
	if err := validate.Struct(stock); err != nil {
		return Stock{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid stock response")
	}
	return stock, nil
}

// GetProduct fetches the catalog metadata for productID.
func (c *Client) GetProduct(ctx context.Context, productID int) (Product, error) {
	if c == nil {
		return Product{}, pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}
	v, err := c.shared(ctx, fmt.Sprintf("product:%d", productID), func(ctx context.Context) (any, error) {
		var product Product
		if err := c.get(ctx, fmt.Sprintf("products/%d", productID), &product); err != nil {
			return Product{}, err
		}
		return product, nil
	})
	if err != nil {
		return Product{}, err
	}
	product := v.(Product)
	if product.ID != productID {
		return Product{}, pkgerrors.New(pkgerrors.CodeDependency, "product response does not match request").
			WithDetails(map[string]any{"requested": productID, "received": product.ID})
	}
	if err := product.check(); err != nil {
		return Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid product response")
	}
	return product, nil
}

// shared runs fetch once per key for all concurrent callers. The flight is detached from
// any single caller's cancellation and bounded by the client timeout instead; each caller
// still stops waiting when its own ctx ends.
func (c *Client) shared(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout())
		defer cancel()
		return fetch(flightCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "catalog lookup canceled")
	}
}

func (c *Client) flightTimeout() time.Duration {
	if c.httpClient != nil && c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return defaultTimeout
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	url := c.buildURL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute catalog request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "catalog resource not found").
			WithDetails(map[string]any{"path": path})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "catalog request failed")
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode catalog response")
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return pkgerrors.New(pkgerrors.CodeDependency, "catalog response missing data")
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode catalog payload")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}
