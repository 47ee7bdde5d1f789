package middleware

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/ehr/epsviewer/internal/platform/fhir"
)

// ErrBodyTooLarge is returned by request body reads once the limit set by
// BodyLimit has been passed.
var ErrBodyTooLarge = errors.New("request body too large")

// BodyLimit rejects requests whose body exceeds limit bytes with a 413
// OperationOutcome. A declared Content-Length is checked up front; bodies
// without one fail with ErrBodyTooLarge when read past the limit.
func BodyLimit(limit int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			if req.ContentLength > limit {
				return payloadTooLargeError(c, limit)
			}

			req.Body = &limitedReadCloser{ReadCloser: req.Body, remaining: limit}
			return next(c)
		}
	}
}

type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (int, error) {
	if r.exceeded {
		return 0, ErrBodyTooLarge
	}

	// One byte past the limit is enough to detect overflow.
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}

	n, err := r.ReadCloser.Read(p)
	r.remaining -= int64(n)
	if r.remaining < 0 {
		r.exceeded = true
		return 0, ErrBodyTooLarge
	}
	return n, err
}

func payloadTooLargeError(c echo.Context, limit int64) error {
	msg := fmt.Sprintf("request body exceeds maximum allowed size of %s", humanize.IBytes(uint64(limit)))
	return c.JSON(http.StatusRequestEntityTooLarge,
		fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeTooCostly, msg))
}
