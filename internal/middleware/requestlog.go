package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"
)

// RequestLogger logs one line per request with its status and latency.
// Handler errors are passed to echo's error handler first so the logged
// status matches the response.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            req := c.Request()

            err := next(c)
            if err != nil {
                c.Error(err)
            }

            fields := []zap.Field{
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.String("route", c.Path()),
                zap.String("query", req.URL.RawQuery),
                zap.Int("status", c.Response().Status),
                zap.Duration("latency", time.Since(start)),
                zap.String("ip", c.RealIP()),
                zap.String("user-agent", req.UserAgent()),
            }
            if id := OperatorID(c); id != "" {
                fields = append(fields, zap.String("operator", id))
            }
            if err != nil {
                log.Error("Request error", append(fields, zap.Error(err))...)
                return nil
            }
            log.Info("Request processed", fields...)
            return nil
        }
    }
}
