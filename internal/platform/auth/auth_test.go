package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestJWTResolver_ValidToken(t *testing.T) {
	resolver := NewJWTResolver(JWTConfig{SigningKey: testKey})

	credential := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "Administrador",
	}, testKey)

	id, err := resolver.Resolve(context.Background(), credential)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", id.Subject)
	}
	if id.Role != "Administrador" {
		t.Errorf("role = %q, want Administrador", id.Role)
	}
}

func TestJWTResolver_ExpiredToken(t *testing.T) {
	resolver := NewJWTResolver(JWTConfig{SigningKey: testKey})

	credential := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Role: "Doctor",
	}, testKey)

	_, err := resolver.Resolve(context.Background(), credential)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestJWTResolver_WrongKey(t *testing.T) {
	resolver := NewJWTResolver(JWTConfig{SigningKey: testKey})

	credential := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, []byte("some-other-key"))

	_, err := resolver.Resolve(context.Background(), credential)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestJWTResolver_Malformed(t *testing.T) {
	resolver := NewJWTResolver(JWTConfig{SigningKey: testKey})

	_, err := resolver.Resolve(context.Background(), "not-a-token")
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestJWTResolver_IssuerMismatch(t *testing.T) {
	resolver := NewJWTResolver(JWTConfig{SigningKey: testKey, Issuer: "clinic-idp"})

	credential := signToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testKey)

	_, err := resolver.Resolve(context.Background(), credential)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestIdentityFromContext(t *testing.T) {
	if id := IdentityFromContext(context.Background()); id != nil {
		t.Errorf("expected nil identity, got %+v", id)
	}

	ctx := WithIdentity(context.Background(), &Identity{Subject: "u", Role: "Doctor"})
	if got := RoleFromContext(ctx); got != "Doctor" {
		t.Errorf("role = %q, want Doctor", got)
	}
}
