package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestIDHeader is read from incoming requests and echoed on responses.
const RequestIDHeader = echo.HeaderXRequestID

// RequestIDKey is the echo context key holding the request id.
const RequestIDKey = "request_id"

// RequestID assigns every request an id. A client supplied X-Request-ID is
// kept; otherwise a random UUID is generated.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" || len(rid) > 128 {
				rid = uuid.New().String()
			}
			c.Set(RequestIDKey, rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}

func requestID(c echo.Context) string {
	rid, _ := c.Get(RequestIDKey).(string)
	return rid
}
