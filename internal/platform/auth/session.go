package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CookieName is the cookie carrying the session token.
const CookieName = "jwt"

const DefaultSessionTTL = 24 * time.Hour

var (
	ErrNoToken      = errors.New("no session token")
	ErrTokenRevoked = errors.New("session token revoked")
)

// SessionClaims are the claims minted into every session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

type SessionConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	// Secure marks the cookie Secure. Off only for local development over
	// plain HTTP.
	Secure bool
}

// SessionIssuer mints and verifies HS256 session tokens.
type SessionIssuer struct {
	cfg     SessionConfig
	revoked RevocationStore
	now     func() time.Time
}

func NewSessionIssuer(cfg SessionConfig, revoked RevocationStore) *SessionIssuer {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	return &SessionIssuer{cfg: cfg, revoked: revoked, now: time.Now}
}

func (s *SessionIssuer) TTL() time.Duration { return s.cfg.TTL }

// Issue signs a token for the given principal.
func (s *SessionIssuer) Issue(principalID uuid.UUID, email, role string) (string, *SessionClaims, error) {
	now := s.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   principalID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
		Email: email,
		Role:  role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature, algorithm, expiry, issuer and revocation.
func (s *SessionIssuer) Verify(ctx context.Context, token string) (*SessionClaims, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	claims := &SessionClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid session token")
	}
	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Revoke invalidates a verified token until its natural expiry.
func (s *SessionIssuer) Revoke(ctx context.Context, claims *SessionClaims) error {
	if s.revoked == nil || claims == nil || claims.ID == "" {
		return nil
	}
	exp := s.now().Add(s.cfg.TTL)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.Subject, exp)
}

// SetCookie writes the session cookie.
func (s *SessionIssuer) SetCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cfg.TTL / time.Second),
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the session cookie on the client.
func (s *SessionIssuer) ClearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// TokenFromRequest reads the session cookie, falling back to a bearer
// Authorization header for non-browser clients.
func TokenFromRequest(c echo.Context) string {
	if ck, err := c.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.Request().Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
