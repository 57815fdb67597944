// ABOUTME: JWT-backed authenticator for bearer tokens.
// ABOUTME: Uses HS256 signing with configurable secret; scopes ride in the "scp" claim.

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// JWTVerifier validates HS256 signed JWTs and exposes an authenticator
// handler suitable for NewAdapter.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a new JWT verifier with the given secret.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// Verify validates the token and returns the identity from the "sub" claim
// together with the scopes from the optional "scp" claim.
func (v *JWTVerifier) Verify(tokenString string) (identity string, scopes []string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", nil, ErrExpiredToken
		}
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	if raw, ok := claims["scp"]; ok {
		scopes, err = toStringSlice(raw)
		if err != nil {
			return "", nil, fmt.Errorf("%w: scp", ErrMissingClaim)
		}
	}

	return sub, scopes, nil
}

// Generate creates a new JWT for the given identity with the given scopes and
// expiration.
func (v *JWTVerifier) Generate(identity string, scopes []string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": identity,
		"iat": now.Unix(),
		"exp": now.Add(expiresIn).Unix(),
	}
	if len(scopes) > 0 {
		claims["scp"] = scopes
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Handler returns an authenticator function backed by this verifier. It
// expects a "Bearer <token>" Authorization header and denies everything else.
func (v *JWTVerifier) Handler() any {
	return func(authorization Authorization) (Credentials, error) {
		token, errMsg := splitBearer(string(authorization))
		if errMsg != "" {
			return Credentials{}, fmt.Errorf("%w: %s", ErrUnauthenticated, errMsg)
		}
		identity, scopes, err := v.Verify(token)
		if err != nil {
			return Credentials{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		}
		return Credentials{Permissions: scopes, Principal: identity}, nil
	}
}

// splitBearer extracts a bearer token from an Authorization header value.
// Returns the token and an error message (empty if successful).
func splitBearer(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}
