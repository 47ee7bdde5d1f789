package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger writes one zerolog event per request. Server errors are logged at
// error level and client errors at warn level.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			var evt *zerolog.Event
			switch {
			case err != nil || status >= 500:
				evt = logger.Error().Err(err)
			case status >= 400:
				evt = logger.Warn()
			default:
				evt = logger.Info()
			}

			evt.
				Str("request_id", requestID(c)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Int64("bytes_in", req.ContentLength).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}
