// Package token reads claims embedded in bearer tokens without verifying them.
// The client never holds the signing key; claims are only a hint about expiry.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is returned for a JWT-shaped token whose claims cannot be decoded
var ErrMalformed = errors.New("token: malformed claims")

// Claims are the fields the client cares about
type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// LooksLikeJWT reports whether raw has the three-segment JWT shape
func LooksLikeJWT(raw string) bool {
	return strings.Count(raw, ".") == 2 && !strings.ContainsAny(raw, " \t\n")
}

// Parse decodes the claims of a JWT. Opaque tokens return ok=false.
func Parse(raw string) (claims *Claims, ok bool, err error) {
	if !LooksLikeJWT(raw) {
		return nil, false, nil
	}
	claims = &Claims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, true, errors.Join(ErrMalformed, err)
	}
	return claims, true, nil
}

// ExpiresAt returns the exp claim. ok is false when the token carries none.
func ExpiresAt(raw string) (time.Time, bool, error) {
	claims, isJWT, err := Parse(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	if !isJWT || claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time, true, nil
}
