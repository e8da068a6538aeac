// ABOUTME: Local inspection of bearer tokens before they are presented to the backend
// ABOUTME: Reads JWT exp/sub claims without verifying the signature (the backend verifies)

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrNotJWT       = errors.New("token is not a JWT")
	ErrExpiredToken = errors.New("token expired")
)

// Claims is the subset of token claims the client cares about.
type Claims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Inspect decodes the claims of a JWT without verifying its signature.
// Opaque (non-JWT) tokens return ErrNotJWT.
func Inspect(token string) (*Claims, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrNotJWT
	}

	claims := &Claims{}
	switch sub := mc["sub"].(type) {
	case string:
		claims.Subject = sub
	case float64:
		claims.Subject = strconv.FormatInt(int64(sub), 10)
	}

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("reading exp claim: %w", err)
	}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

// CheckExpiry returns ErrExpiredToken when token is a JWT whose exp is not
// after now. Opaque tokens and JWTs without exp are left to the backend.
func CheckExpiry(token string, now time.Time) error {
	claims, err := Inspect(token)
	if err != nil {
		return nil
	}
	if claims.ExpiresAt.IsZero() {
		return nil
	}
	if !now.Before(claims.ExpiresAt) {
		return ErrExpiredToken
	}
	return nil
}
