// Package client provides the outbound HTTP client for the backend origin.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"xmrig-webui/internal/config"
	"xmrig-webui/internal/metrics"
	"xmrig-webui/internal/model"
)

// BackendClient fetches JSON documents from the backend origin.
type BackendClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewBackendClient creates a BackendClient bounded by the configured timeout.
// Keep-alives are disabled: every fetch dials a fresh connection.
// The metrics parameter is optional; pass nil to disable backend metrics recording.
func NewBackendClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *BackendClient {
	transport := &http.Transport{
		DisableKeepAlives: true,
		DialContext: (&net.Dialer{
			Timeout: 30 * time.Second,
		}).DialContext,
	}

	return &BackendClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		},
		logger:  logger.With("component", "backend_client"),
		metrics: m,
	}
}

// Do executes req and reads the whole response body.
func (c *BackendClient) Do(req *http.Request) (*model.BackendResponse, error) {
	c.logger.Debug("backend request",
		"method", req.Method,
		"url", req.URL.String(),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(start, "")
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	c.observe(start, strconv.Itoa(resp.StatusCode))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}

	return &model.BackendResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Get issues a plain GET with no custom headers.
// The provided context controls the lifetime of the fetch on top of the
// client timeout.
func (c *BackendClient) Get(ctx context.Context, url string) (*model.BackendResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}

	return c.Do(req)
}

func (c *BackendClient) observe(start time.Time, status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.BackendDuration.Observe(time.Since(start).Seconds())
	if status != "" {
		c.metrics.BackendResponses.WithLabelValues(status).Inc()
	}
}
