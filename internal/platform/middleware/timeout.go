package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/epsviewer/internal/platform/fhir"
)

// RequestTimeout puts a deadline on each request context. When the handler
// has not finished by then a 504 OperationOutcome is returned. A
// non-positive timeout disables the middleware.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if timeout <= 0 {
			return next
		}
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return gatewayTimeoutError(c)
				}
				return ctx.Err()
			}
		}
	}
}

func gatewayTimeoutError(c echo.Context) error {
	if c.Response().Committed {
		return nil
	}
	return c.JSON(http.StatusGatewayTimeout,
		fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeTimeout, "request processing exceeded the allowed time limit"))
}
