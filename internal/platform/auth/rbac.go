package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin    = "admin"
	RolePantry   = "pantry"
	RoleDelivery = "delivery"
)

// ValidRole reports whether role is one of the three principal roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RolePantry, RoleDelivery:
		return true
	}
	return false
}

// HasRole reports whether role satisfies any of required. Admin satisfies
// every requirement.
func HasRole(role string, required ...string) bool {
	if role == RoleAdmin {
		return true
	}
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return false
}

// RequireRole returns middleware that checks the caller holds one of the
// given roles. Anonymous callers get 401, others lacking the role get 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident := IdentityFromContext(c.Request().Context())
			if ident == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if HasRole(ident.Role, roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
