package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client issues range queries against Prometheus.
type Client struct {
	HTTP      *http.Client // injected for testability (may be nil -> default client)
	Log       *zap.Logger
	UserAgent string // optional
	Username  string // optional basic auth
	Password  string
}

// NewClient returns a ready-to-use client with the given request timeout.
func NewClient(timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		Log:       log,
		UserAgent: "latency-report/1.0",
	}
}

// Fetch performs one GET. A 200 yields the body; any other status
// yields an absent Result. Malformed URLs and transport failures are
// returned as errors.
func (c *Client) Fetch(ctx context.Context, rawURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("new request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("prometheus request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger().Debug("prometheus returned no data",
			zap.Int("status", resp.StatusCode),
			zap.String("url", req.URL.Redacted()))
		return Result{StatusCode: resp.StatusCode}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read prometheus response: %w", err)
	}
	return Result{StatusCode: resp.StatusCode, Body: body}, nil
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
