package opswheel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// Client talks to the external Ops Wheel API. Wheel metadata is cached for a
// short TTL; rigging mutations invalidate the cached entry.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
	cache   *cache.Cache
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: map[string]string{
			"Content-Type": "application/json",
		},
		cache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// SetHeader sets a header on every request. Auth token plumbing lives with
// the caller; set whatever the deployment needs.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return responseBody, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.makeRequest(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, body io.Reader) ([]byte, error) {
	return c.makeRequest(ctx, http.MethodPost, endpoint, body)
}

func (c *Client) put(ctx context.Context, endpoint string, body io.Reader) ([]byte, error) {
	return c.makeRequest(ctx, http.MethodPut, endpoint, body)
}

func (c *Client) delete(ctx context.Context, endpoint string) ([]byte, error) {
	return c.makeRequest(ctx, http.MethodDelete, endpoint, nil)
}
