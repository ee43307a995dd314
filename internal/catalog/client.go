package catalog

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cratestack/cratestack-server/internal/errors"
)

const (
	// Storefront APIs allow roughly 2 requests/second sustained per client.
	defaultRPS   = 2.0
	defaultBurst = 4

	defaultTimeout = 30 * time.Second
)

// Options configures a catalog client.
type Options struct {
	Domain     string // storefront domain, e.g. "wax-trax.myshopify.com"
	Token      string // storefront access token; empty surfaces as an auth error per request
	APIVersion string // e.g. "2024-01"
}

// Client is a rate-limited storefront catalog client with a bounded page cache.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	cache    *Cache
	logger   *slog.Logger
	endpoint string
	token    string
}

// New creates a new catalog client. The cache may be nil to disable caching.
func New(opts Options, cache *Cache, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		cache:    cache,
		logger:   logger,
		endpoint: fmt.Sprintf("https://%s/api/%s/graphql.json", opts.Domain, opts.APIVersion),
		token:    opts.Token,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.cache.Close()
}

// FetchPage fetches one page of catalog results. Auth failures return a
// fatal error with code AUTH; transport and server failures return
// TRANSIENT_FETCH so callers can keep partial progress.
func (c *Client) FetchPage(ctx context.Context, req PageRequest) (*Page, error) {
	if req.PageSize <= 0 || req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	if c.token == "" {
		return nil, errors.Wrap(wrapError("fetchPage", req.Mode, ErrMissingToken),
			errors.CodeAuth, "storefront access token is not configured")
	}

	if page, ok := c.cache.Get(&req); ok {
		c.logger.Debug("catalog cache hit",
			"mode", req.Mode,
			"query", req.Query,
			"cursor", req.Cursor,
		)
		return page, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeTransientFetch, "rate limit wait")
	}

	body, err := c.buildBody(&req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "build catalog query")
	}

	c.logger.Debug("catalog request",
		"mode", req.Mode,
		"query", req.Query,
		"cursor", req.Cursor,
		"page_size", req.PageSize,
	)

	raw, err := c.post(ctx, body)
	if err != nil {
		return nil, classify(wrapError("fetchPage", req.Mode, err))
	}

	page, err := c.parsePage(&req, raw)
	if err != nil {
		return nil, classify(wrapError("fetchPage", req.Mode, err))
	}

	c.cache.Set(&req, page)

	return page, nil
}

// buildBody assembles the GraphQL request payload for a page request.
func (c *Client) buildBody(req *PageRequest) ([]byte, error) {
	variables := map[string]any{
		"first": req.PageSize,
	}
	if req.Cursor != "" {
		variables["after"] = req.Cursor
	}

	var query string
	switch req.Mode {
	case ModeSearch:
		query = searchQuery
		variables["terms"] = req.Query
	default:
		query = collectionQuery
		variables["handle"] = req.Query
		if len(req.Filters) > 0 {
			variables["filters"] = req.Filters
		}
	}

	return json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
}

// post executes the GraphQL request and returns the raw response body.
func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return respBody, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
}

// parsePage decodes a raw GraphQL response into a page.
func (c *Client) parsePage(req *PageRequest, raw []byte) (*Page, error) {
	var resp rawResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", resp.Errors[0].Message)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty response data")
	}

	var conn *rawConnection
	switch req.Mode {
	case ModeSearch:
		conn = resp.Data.Search
	default:
		if resp.Data.Collection == nil {
			return nil, ErrNotFound
		}
		conn = &resp.Data.Collection.Products
	}
	if conn == nil {
		return nil, fmt.Errorf("missing result connection")
	}

	page := toPage(conn)

	c.logger.Debug("catalog page fetched",
		"mode", req.Mode,
		"records", len(page.Records),
		"has_next", page.HasNextPage,
	)

	return page, nil
}

// classify maps catalog sentinels onto the domain error taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrMissingToken), errors.Is(err, ErrUnauthorized):
		return errors.Wrap(err, errors.CodeAuth, "catalog authentication failed")
	case errors.Is(err, ErrNotFound):
		return errors.Wrap(err, errors.CodeNotFound, "collection not found")
	case errors.Is(err, ErrBadRequest):
		return errors.Wrap(err, errors.CodeValidation, "catalog rejected query")
	default:
		return errors.Wrap(err, errors.CodeTransientFetch, "catalog fetch failed")
	}
}
