package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newEchoServer(t *testing.T, e *echo.Echo) string {
	t.Helper()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL
}
