package wsbridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for missing or invalid host tokens.
var ErrUnauthorized = errors.New("unauthorized")

// Claims are the JWT claims carried by a host token.
type Claims struct {
	Host string `json:"host"`
	jwt.RegisteredClaims
}

// IssueToken mints an HS256 token for the named map host. A zero ttl issues
// a token without expiry; a negative ttl issues one that has already expired.
func IssueToken(secret []byte, host string, ttl time.Duration) (string, error) {
	if host == "" {
		return "", errors.New("host name is required")
	}
	now := time.Now()
	claims := Claims{
		Host: host,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  host,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies a host token and returns its host claim.
func ParseToken(secret []byte, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if claims.Host == "" {
		return "", fmt.Errorf("%w: missing host claim", ErrUnauthorized)
	}
	return claims.Host, nil
}
