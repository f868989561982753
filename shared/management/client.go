// Package management talks to the RabbitMQ management HTTP API.
package management

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUnavailable wraps every failure to obtain a usable answer from the API
var ErrUnavailable = errors.New("rabbitmq management API unavailable")

const maxBodySize = 8 << 20

// Config holds management API settings
type Config struct {
	URL      string // e.g. http://rabbitmq:15672
	User     string
	Password string
	Timeout  time.Duration
}

// Client is a read-only client for the management API
type Client struct {
	config *Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a new Client instance
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		config: config,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// ListQueues returns the raw JSON array served by GET /api/queues
func (c *Client) ListQueues(ctx context.Context) (json.RawMessage, error) {
	endpoint := strings.TrimRight(c.config.URL, "/") + "/api/queues"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.SetBasicAuth(c.config.User, c.config.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Management API request failed",
			slog.String("url", endpoint),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Management API returned an error",
			slog.String("url", endpoint),
			slog.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrUnavailable)
	}

	return json.RawMessage(body), nil
}
