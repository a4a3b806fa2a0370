package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/devmadlani/auth-service/internal/logger"
)

// RequestLogger tags every request with an X-Request-ID (the client's, or a
// fresh UUID), stores a request-scoped logger in the request context and
// logs one line per completed request. Errors returned by the chain are
// rendered here through the echo error handler so the logged status is the
// one the client saw.
func RequestLogger(base *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            rid := req.Header.Get(echo.HeaderXRequestID)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(echo.HeaderXRequestID, rid)

            log := base.With(zap.String("request_id", rid))
            c.SetRequest(req.WithContext(logger.NewContextWithLogger(req.Context(), log)))

            start := time.Now()
            if err := next(c); err != nil {
                c.Error(err)
            }

            status := c.Response().Status
            fields := []zap.Field{
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.String("route", c.Path()),
                zap.Int("status", status),
                zap.Duration("latency", time.Since(start)),
                zap.String("remote_ip", c.RealIP()),
            }
            switch {
            case status >= 500:
                log.Error("request", fields...)
            case status >= 400:
                log.Info("request", fields...)
            default:
                log.Debug("request", fields...)
            }
            return nil
        }
    }
}
