package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// resolutionErrorKey marks a request whose credential could not be checked
// for infrastructure reasons (identity validator unreachable). The time
// gate reads it to apply its fail-open policy.
const resolutionErrorKey = "auth_resolution_error"

// Middleware extracts and validates a bearer credential if one is present.
// Requests without a credential continue as anonymous; per-route role
// checks and the time gate decide what anonymous callers may do. A
// malformed or expired credential is rejected with 401 regardless of
// route.
func Middleware(resolver Resolver, logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid credential")
			}

			id, err := resolver.Resolve(c.Request().Context(), parts[1])
			if err != nil {
				if errors.Is(err, ErrInvalidCredential) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid credential")
				}
				// Validator failure, not a bad token. Record it and let the
				// request continue anonymously; the gate decides whether
				// that matters right now.
				logger.Warn().Err(err).Msg("credential validation unavailable")
				c.Set(resolutionErrorKey, err)
				return next(c)
			}

			ctx := WithIdentity(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireRole returns middleware that allows only callers holding one of
// the given roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFromContext(c.Request().Context())
			if id == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			for _, required := range roles {
				if id.Role == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				"required role: "+strings.Join(roles, " or "))
		}
	}
}
