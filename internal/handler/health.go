package handler // declare the package name; contains HTTP handlers

import (
	"context"  // context bounds the readiness probe
	"net/http" // net/http provides status codes and response helpers
	"time"     // time sets the probe timeout

	"github.com/labstack/echo/v4" // echo is the web framework used for this project

	"github.com/devmadlani/auth-service/internal/logger" // request-scoped logger
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health returns a health-check endpoint used by load balancers and
// monitoring systems.  It answers a plain text "ok" with 200 when the
// database answers a ping within a second, and 503 otherwise.  A nil
// pinger only reports that the process is up.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logger.FromContext(ctx).Warn("health: database ping failed")
				return c.String(http.StatusServiceUnavailable, "unavailable")
			}
		}
		return c.String(http.StatusOK, "ok") // write "ok" with a 200 OK status
	}
}
