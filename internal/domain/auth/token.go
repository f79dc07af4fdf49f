// Package auth issues and verifies bearer tokens for the API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTTL = 24 * time.Hour

var (
	ErrEmptySecret  = errors.New("auth token secret is empty")
	ErrMissingToken = errors.New("missing bearer token")
)

// Claims carried by API tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// AuthToken signs and verifies HS256 API tokens.
type AuthToken struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthToken builds a token helper using the provided secret.
func NewAuthToken(secretKey, issuer string) (*AuthToken, error) {
	if secretKey == "" {
		return nil, ErrEmptySecret
	}
	return &AuthToken{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       defaultTTL,
		now:       time.Now,
	}, nil
}

// WithTTL allows customising the expiration duration.
func (at *AuthToken) WithTTL(ttl time.Duration) *AuthToken {
	if ttl > 0 {
		at.ttl = ttl
	}
	return at
}

// TTL reports the configured lifetime of new tokens.
func (at *AuthToken) TTL() time.Duration {
	return at.ttl
}

// GenerateToken issues a JWT for subject.
func (at *AuthToken) GenerateToken(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	now := at.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    at.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(at.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(at.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates the JWT and returns its subject.
func (at *AuthToken) VerifyToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(at.now),
	}
	if at.issuer != "" {
		opts = append(opts, jwt.WithIssuer(at.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return at.secretKey, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("invalid subject claim")
	}
	return claims.Subject, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
