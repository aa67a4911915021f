package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xmrig-webui/internal/config"
	"xmrig-webui/internal/metrics"
	"xmrig-webui/internal/service"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
// Only GET is proxied; any other method on a known path gets Echo's 405.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, static *StaticHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.GET(service.APIPrefix+"*", proxy.Handle)
	e.Match([]string{http.MethodGet, http.MethodHead}, "/*", static.Handle)
}
