// Package auth guards the summary API with signed bearer tokens. It is only
// installed when a signing key is configured; a local viewer runs open.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/ehr/epsviewer/internal/platform/fhir"
)

type contextKey string

// SubjectKey holds the token subject on the request context.
const SubjectKey contextKey = "token_subject"

// Claims are the token claims the viewer understands.
type Claims struct {
	jwt.RegisteredClaims
}

// Config describes how bearer tokens are verified.
type Config struct {
	// SigningKey is the HMAC secret tokens are signed with.
	SigningKey []byte
	Issuer     string
	Audience   string
	// Leeway tolerates clock skew when checking exp and nbf.
	Leeway time.Duration
}

// Enabled reports whether a signing key has been configured.
func (c Config) Enabled() bool {
	return len(c.SigningKey) > 0
}

func (c Config) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if c.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.Issuer))
	}
	if c.Audience != "" {
		opts = append(opts, jwt.WithAudience(c.Audience))
	}
	if c.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(c.Leeway))
	}
	return opts
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" token
// with a 401 OperationOutcome. The token subject is stored under SubjectKey.
func BearerAuth(cfg Config) echo.MiddlewareFunc {
	opts := cfg.parserOptions()
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return unauthorized(c, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return unauthorized(c, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return unauthorized(c, "invalid token")
			}

			ctx := context.WithValue(c.Request().Context(), SubjectKey, claims.Subject)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// SubjectFromContext returns the authenticated token subject, if any.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(SubjectKey).(string)
	return sub
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="eps-viewer"`)
	return c.JSON(http.StatusUnauthorized,
		fhir.NewOperationOutcome(fhir.IssueSeverityError, fhir.IssueTypeLogin, msg))
}
