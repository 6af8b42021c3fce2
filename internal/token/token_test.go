package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-only-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestExpiresAtReadsExpClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := sign(t, Claims{
		Username:         "admin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	})

	got, ok, err := ExpiresAt(raw)
	if err != nil {
		t.Fatalf("ExpiresAt returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected exp claim to be found")
	}
	if !got.Equal(exp) {
		t.Fatalf("expected %v, got %v", exp, got)
	}
}

func TestExpiresAtAcceptsExpiredTokens(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	raw := sign(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})

	got, ok, err := ExpiresAt(raw)
	if err != nil || !ok {
		t.Fatalf("expected expired exp to decode, got ok=%v err=%v", ok, err)
	}
	if !got.Before(time.Now()) {
		t.Fatalf("expected past expiry, got %v", got)
	}
}

func TestExpiresAtWithoutExp(t *testing.T) {
	raw := sign(t, jwt.RegisteredClaims{Subject: "1"})
	_, ok, err := ExpiresAt(raw)
	if err != nil || ok {
		t.Fatalf("expected no expiry, got ok=%v err=%v", ok, err)
	}
}

func TestExpiresAtOpaqueToken(t *testing.T) {
	for _, raw := range []string{"", "opaque-session-id", "a.b", "has space.in.it"} {
		_, ok, err := ExpiresAt(raw)
		if err != nil || ok {
			t.Fatalf("ExpiresAt(%q): expected opaque, got ok=%v err=%v", raw, ok, err)
		}
	}
}

func TestExpiresAtMalformedJWT(t *testing.T) {
	_, _, err := ExpiresAt("not.a.jwt")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
