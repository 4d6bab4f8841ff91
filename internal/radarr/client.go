// Package radarr is a minimal Radarr v3 API client covering movie lookup
// and the monitored flag.
package radarr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/goccy/go-json"
)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	// Breaker is optional. When set every request runs through it.
	Breaker *apperr.Breaker
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *apperr.Breaker
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: cfg.Breaker,
	}
}

// do sends one request through the breaker. Failures are classified
// *apperr.Error values.
func (c *Client) do(ctx context.Context, op, method, endpoint string, query url.Values, payload, result any) error {
	return c.breaker.Do(op, func() error {
		return c.roundTrip(ctx, op, method, endpoint, query, payload, result)
	})
}

func (c *Client) roundTrip(ctx context.Context, op, method, endpoint string, query url.Values, payload, result any) error {
	fullURL, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return apperr.New(apperr.Malformed, op, fmt.Errorf("invalid URL: %w", err))
	}
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			return apperr.New(apperr.Malformed, op, fmt.Errorf("encoding payload: %w", err))
		}
		body = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return apperr.New(apperr.Malformed, op, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Transport(op, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	if kind := apperr.FromStatus(resp.StatusCode); kind != apperr.Unknown {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return apperr.Errorf(kind, op, "API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if result == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return apperr.New(apperr.Malformed, op, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, endpoint string, query url.Values, result any) error {
	return c.do(ctx, op, http.MethodGet, endpoint, query, nil, result)
}

func (c *Client) put(ctx context.Context, op, endpoint string, payload, result any) error {
	return c.do(ctx, op, http.MethodPut, endpoint, nil, payload, result)
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetSystemStatus(ctx)
	return err
}

func (c *Client) GetSystemStatus(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if err := c.get(ctx, "radarr system status", "/api/v3/system/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
