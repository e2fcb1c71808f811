// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// callerKeyType keys the authenticated identity in a request context.
type callerKeyType struct{}

var callerKey callerKeyType

// Authenticator validates HS256 bearer tokens and resolves the caller
// identity from the subject claim.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator for the shared signing secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Require wraps a handler so it only runs for requests carrying a valid
// bearer token. The resolved identity is placed on the request context.
func (a *Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := a.callerFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	}
}

// callerFromRequest extracts and verifies the bearer token, returning
// the subject claim as the caller identity.
func (a *Authenticator) callerFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", NewKind("api.auth", ErrUnauthorized)
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", WrapKind("api.auth", ErrUnauthorized, errors.New("authorization header must use the Bearer scheme"))
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(_ *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", WrapKind("api.auth", ErrUnauthorized, errors.New("token expired"))
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", WrapKind("api.auth", ErrUnauthorized, errors.New("invalid token signature"))
		default:
			return "", WrapKind("api.auth", ErrUnauthorized, err)
		}
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", WrapKind("api.auth", ErrUnauthorized, errors.New("token has no subject"))
	}
	return subject, nil
}

// Mint issues a signed token for an identity. Dev tooling and tests use
// it; production callers bring tokens from an external issuer sharing
// the secret.
func (a *Authenticator) Mint(identity string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// WithCaller returns a context carrying the authenticated identity.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFrom returns the authenticated identity, if any.
func CallerFrom(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(callerKey).(string)
	return caller, ok && caller != ""
}
