package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"xmrig-webui/internal/metrics"
	"xmrig-webui/internal/model"
	"xmrig-webui/internal/service"
)

// ProxyHandler forwards /api/ requests to the backend origin.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewProxyHandler creates a ProxyHandler. m may be nil.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger, m *metrics.Metrics) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
		metrics: m,
	}
}

// Handle relays the backend reply as JSON with a permissive CORS header.
// Every failure becomes a 500 carrying {"error": message}.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	// A client disconnect does not abort the fetch; backend.timeout_seconds bounds it.
	br := &model.BackendRequest{
		Ctx: context.WithoutCancel(req.Context()),
		URI: requestURI(req),
	}

	resp, err := h.service.Forward(br)
	if err != nil {
		return h.writeError(c, err)
	}

	c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, resp.Body)
}

// writeError answers 500 without the CORS header that successful replies carry.
func (h *ProxyHandler) writeError(c echo.Context, err error) error {
	kind := classify(err)
	h.logger.Error("proxy error",
		"err", err,
		"kind", kind,
		"uri", requestURI(c.Request()),
	)
	if h.metrics != nil {
		h.metrics.ProxyFailures.WithLabelValues(kind).Inc()
	}

	body, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return mErr
	}
	return c.Blob(http.StatusInternalServerError, echo.MIMEApplicationJSON, body)
}

// classify names the failure for logs and metrics; the client never sees it.
func classify(err error) string {
	if service.IsStatusError(err) {
		return "status"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "transport"
	}
	return "other"
}

// requestURI returns the raw request target as sent by the client, reduced to
// origin form (path and query) when the client used an absolute URI.
func requestURI(req *http.Request) string {
	if strings.HasPrefix(req.RequestURI, "/") {
		return req.RequestURI
	}
	return req.URL.RequestURI()
}
