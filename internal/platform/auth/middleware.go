package auth

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	IdentityKey contextKey = "identity"
	ClaimsKey   contextKey = "session_claims"
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	ID    uuid.UUID
	Email string
	Role  string
	Name  string
}

// Resolver loads the principal named by a verified token. It must fail when
// the principal no longer exists or its role changed since the token was
// minted.
type Resolver interface {
	Resolve(ctx context.Context, id uuid.UUID, role string) (*Identity, error)
}

type ResolverFunc func(ctx context.Context, id uuid.UUID, role string) (*Identity, error)

func (f ResolverFunc) Resolve(ctx context.Context, id uuid.UUID, role string) (*Identity, error) {
	return f(ctx, id, role)
}

// SessionMiddleware attaches the session principal, if any, to the request
// context. It never rejects a request: a missing, malformed, expired or
// revoked token leaves the request anonymous and gated routes reject it via
// RequireAuth.
func SessionMiddleware(issuer *SessionIssuer, resolver Resolver, logger zerolog.Logger, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			token := TokenFromRequest(c)
			if token == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			claims, err := issuer.Verify(ctx, token)
			if err != nil {
				logger.Debug().Err(err).Msg("session rejected")
				return next(c)
			}
			id, err := uuid.Parse(claims.Subject)
			if err != nil {
				logger.Debug().Str("sub", claims.Subject).Msg("session subject is not a uuid")
				return next(c)
			}
			ident, err := resolver.Resolve(ctx, id, claims.Role)
			if err != nil {
				logger.Debug().Err(err).Str("principal_id", id.String()).Msg("session principal not resolved")
				return next(c)
			}

			ctx = WithIdentity(ctx, ident)
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("principal_id", ident.ID.String())
			return next(c)
		}
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IdentityFromContext(c.Request().Context()) == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			return next(c)
		}
	}
}

func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, ident)
}

func IdentityFromContext(ctx context.Context) *Identity {
	ident, _ := ctx.Value(IdentityKey).(*Identity)
	return ident
}

func ClaimsFromContext(ctx context.Context) *SessionClaims {
	claims, _ := ctx.Value(ClaimsKey).(*SessionClaims)
	return claims
}

func UserIDFromContext(ctx context.Context) string {
	if ident := IdentityFromContext(ctx); ident != nil {
		return ident.ID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ident := IdentityFromContext(ctx); ident != nil {
		return ident.Role
	}
	return ""
}
