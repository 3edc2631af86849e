// Package auth validates credentials issued by the external identity
// provider and gates requests on role and time-of-day. Token issuance is
// not handled here; this service only consumes assertions.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const identityKey contextKey = "identity"

// ErrInvalidCredential is returned for malformed, expired or otherwise
// unverifiable credentials. Any other error from a Resolver is treated as
// an infrastructure failure, which the access gate handles per its
// fail-open policy.
var ErrInvalidCredential = errors.New("invalid credential")

// Identity is the role assertion extracted from a validated credential.
type Identity struct {
	Subject string
	Role    string
}

// Resolver validates a raw credential and returns the identity it asserts.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (*Identity, error)
}

// Claims are the JWT claims this service consumes.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTConfig configures local JWT validation.
type JWTConfig struct {
	SigningKey []byte
	Issuer     string
	Audience   string
}

// JWTResolver validates HMAC-signed tokens from the identity provider.
type JWTResolver struct {
	cfg JWTConfig
}

func NewJWTResolver(cfg JWTConfig) *JWTResolver {
	return &JWTResolver{cfg: cfg}
}

func (r *JWTResolver) Resolve(_ context.Context, credential string) (*Identity, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if r.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.cfg.Issuer))
	}
	if r.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(r.cfg.Audience))
	}

	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		return r.cfg.SigningKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	return &Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity attached by the middleware, or
// nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// RoleFromContext returns the caller's role, or "" for anonymous requests.
func RoleFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Role
	}
	return ""
}
