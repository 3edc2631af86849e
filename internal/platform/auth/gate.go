package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/clock"
	"github.com/clinic/clinic/pkg/timeofday"
)

// GateConfig describes the clinic's restricted-hours window.
type GateConfig struct {
	BlockedStart timeofday.TimeOfDay
	BlockedEnd   timeofday.TimeOfDay
	ExemptRoles  []string

	// FailClosed rejects requests when the credential check itself failed
	// for infrastructure reasons. The default (false) lets such requests
	// through: locking the whole clinic out because the identity validator
	// is down is the worse failure mode for a single-site system.
	FailClosed bool
}

// TimeGate blocks requests during the configured closed hours unless the
// caller holds an exempt role. It runs after Middleware, which has already
// attached the identity (or recorded a validator failure) on the context.
func TimeGate(cfg GateConfig, clk clock.Clock, logger zerolog.Logger) echo.MiddlewareFunc {
	exempt := make(map[string]bool, len(cfg.ExemptRoles))
	for _, r := range cfg.ExemptRoles {
		exempt[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := timeofday.FromTime(clk.Now())
			if !timeofday.InWindow(now, cfg.BlockedStart, cfg.BlockedEnd) {
				return next(c)
			}

			if _, failed := c.Get(resolutionErrorKey).(error); failed {
				if cfg.FailClosed {
					return echo.NewHTTPError(http.StatusForbidden,
						"access denied: credential could not be verified during restricted hours")
				}
				logger.Warn().
					Str("path", c.Request().URL.Path).
					Msg("identity check unavailable during restricted hours; failing open")
				return next(c)
			}

			id := IdentityFromContext(c.Request().Context())
			if id == nil {
				return echo.NewHTTPError(http.StatusForbidden,
					"access denied: outside operating hours")
			}
			if !exempt[id.Role] {
				return echo.NewHTTPError(http.StatusForbidden,
					"access denied: role "+id.Role+" not permitted during restricted hours")
			}
			return next(c)
		}
	}
}
