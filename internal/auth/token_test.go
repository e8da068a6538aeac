// ABOUTME: Unit tests for local JWT claim inspection
// ABOUTME: Tests subject extraction, expiry checks, and opaque tokens

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key-for-jwt-signing"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func TestInspect_ReadsSubjectAndExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, jwt.MapClaims{"sub": "42", "exp": exp.Unix()})

	claims, err := Inspect(token)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if claims.Subject != "42" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "42")
	}
	if !claims.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, exp)
	}
}

func TestInspect_NumericSubject(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": 17})

	claims, err := Inspect(token)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if claims.Subject != "17" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "17")
	}
	if !claims.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero", claims.ExpiresAt)
	}
}

func TestInspect_OpaqueToken(t *testing.T) {
	_, err := Inspect("not-a-jwt")
	if !errors.Is(err, ErrNotJWT) {
		t.Errorf("Inspect() error = %v, want ErrNotJWT", err)
	}
}

func TestCheckExpiry(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", signToken(t, jwt.MapClaims{"sub": "1", "exp": now.Add(time.Hour).Unix()}), nil},
		{"expired", signToken(t, jwt.MapClaims{"sub": "1", "exp": now.Add(-time.Minute).Unix()}), ErrExpiredToken},
		{"no exp", signToken(t, jwt.MapClaims{"sub": "1"}), nil},
		{"opaque", "opaque-session-token", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckExpiry(tt.token, now)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckExpiry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
