package apitest

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// authMiddleware checks the bearer token and stores the username
func (s *Server) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if auth == "" {
			return fail(c, http.StatusUnauthorized, "Not authenticated")
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		if raw == auth {
			return fail(c, http.StatusUnauthorized, "Invalid authorization format")
		}

		s.mu.Lock()
		now := s.now
		s.mu.Unlock()

		var cl claims
		_, err := jwt.ParseWithClaims(raw, &cl, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(now))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return fail(c, http.StatusUnauthorized, "Token has expired")
			}
			return fail(c, http.StatusUnauthorized, "Could not validate credentials")
		}

		s.mu.Lock()
		_, exists := s.accounts[cl.Username]
		s.mu.Unlock()
		if !exists {
			return fail(c, http.StatusUnauthorized, "User no longer exists")
		}

		c.Set("username", cl.Username)
		return next(c)
	}
}

// marketFailure answers with the configured failure status
func (s *Server) marketFailure(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		status := s.marketStatus
		if st, ok := s.routeStatus[c.Path()]; ok {
			status = st
		}
		s.mu.Unlock()
		if status != 0 {
			return fail(c, status, http.StatusText(status))
		}
		return next(c)
	}
}

// mintToken signs an HS256 token for username
func (s *Server) mintToken(username string, id string) (string, int64, error) {
	s.mu.Lock()
	now, ttl := s.now(), s.tokenTTL
	s.mu.Unlock()

	cl := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(ttl / time.Second), nil
}
