package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimit returns an Echo middleware that admits at most n requests
// at a time. Excess requests wait in arrival order; a request whose context
// ends while waiting gets 503. n == 1 handles one request at a time.
func ConcurrencyLimit(n int64) echo.MiddlewareFunc {
	sem := semaphore.NewWeighted(n)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := sem.Acquire(c.Request().Context(), 1); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "request abandoned while queued")
			}
			defer sem.Release(1)

			return next(c)
		}
	}
}
