// Package service implements the path-rewriting proxy rule.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"xmrig-webui/internal/client"
	"xmrig-webui/internal/config"
	"xmrig-webui/internal/model"
)

const (
	// APIPrefix marks requests that are forwarded to the backend.
	APIPrefix = "/api/"
	// backendPrefix replaces every occurrence of APIPrefix in the forwarded URI.
	backendPrefix = "/1/"
)

// StatusError reports a backend reply outside the 2xx range.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ProxyService rewrites /api/ URIs and fetches them from the backend origin.
type ProxyService struct {
	client   *client.BackendClient
	logger   *slog.Logger
	baseURL  string
	attempts int
}

// NewProxyService creates a ProxyService for the configured backend origin.
func NewProxyService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend base_url %q must be absolute", cfg.Backend.BaseURL)
	}

	attempts := cfg.Backend.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &ProxyService{
		client:   c,
		logger:   logger.With("component", "proxy_service"),
		baseURL:  strings.TrimSuffix(cfg.Backend.BaseURL, "/"),
		attempts: attempts,
	}, nil
}

// RewritePath replaces every occurrence of /api/ in uri with /1/, not only
// the leading one, so /api/status/api/summary becomes /1/status/1/summary.
// The query string is rewritten too.
func RewritePath(uri string) string {
	return strings.ReplaceAll(uri, APIPrefix, backendPrefix)
}

// TargetURL returns the backend URL for uri. The rewritten URI is appended
// to the base URL verbatim, without escaping or validation.
func (s *ProxyService) TargetURL(uri string) string {
	return s.baseURL + RewritePath(uri)
}

// Forward fetches the rewritten URI from the backend.
//
// Transport failures are retried up to the configured attempt count (one by
// default). A non-2xx reply is returned at once as a *StatusError.
func (s *ProxyService) Forward(br *model.BackendRequest) (*model.BackendResponse, error) {
	target := s.TargetURL(br.URI)

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		s.logger.Debug("forwarding request",
			"uri", br.URI,
			"target", target,
			"attempt", attempt,
		)

		resp, err := s.client.Get(br.Ctx, target)
		if err == nil {
			if !resp.OK() {
				return nil, &StatusError{StatusCode: resp.StatusCode}
			}
			return resp, nil
		}

		lastErr = err
		if br.Ctx.Err() != nil {
			break
		}
		if attempt < s.attempts {
			s.logger.Warn("backend fetch failed, retrying",
				"target", target,
				"attempt", attempt,
				"err", err,
			)
		}
	}

	return nil, lastErr
}

// IsStatusError reports whether err carries a backend non-2xx reply.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
