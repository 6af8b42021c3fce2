package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
)

type payload struct {
	Name string `json:"name"`
}

func newServer(t *testing.T, register func(e *echo.Echo)) *httptest.Server {
	t.Helper()
	e := echo.New()
	e.HideBanner = true
	register(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func TestDoNormalizesEnvelopes(t *testing.T) {
	srv := newServer(t, func(e *echo.Echo) {
		e.GET("/enveloped", func(c echo.Context) error {
			return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "ok", "data": echo.Map{"name": "AAPL"}})
		})
		e.GET("/bare", func(c echo.Context) error {
			return c.JSON(http.StatusOK, echo.Map{"name": "MSFT"})
		})
		e.GET("/refused", func(c echo.Context) error {
			return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "account locked"})
		})
		e.GET("/nodata", func(c echo.Context) error {
			return c.JSON(http.StatusOK, echo.Map{"success": true})
		})
		e.GET("/garbage", func(c echo.Context) error {
			return c.String(http.StatusOK, "<html>")
		})
	})
	c := New(srv.URL)
	ctx := context.Background()

	t.Run("enveloped", func(t *testing.T) {
		var out payload
		meta, err := c.Do(ctx, Request{Path: "/enveloped"}, &out)
		if err != nil {
			t.Fatalf("Do returned error: %v", err)
		}
		if out.Name != "AAPL" || meta.Message != "ok" || meta.Status != 200 {
			t.Fatalf("unexpected result: %+v %+v", out, meta)
		}
	})

	t.Run("bare", func(t *testing.T) {
		var out payload
		if _, err := c.Do(ctx, Request{Path: "/bare"}, &out); err != nil {
			t.Fatalf("Do returned error: %v", err)
		}
		if out.Name != "MSFT" {
			t.Fatalf("unexpected payload %+v", out)
		}
	})

	t.Run("success false", func(t *testing.T) {
		_, err := c.Do(ctx, Request{Path: "/refused"}, &payload{})
		if KindOf(err) != KindRejected || MessageOf(err) != "account locked" {
			t.Fatalf("expected rejected 'account locked', got %v (%s)", err, KindOf(err))
		}
	})

	t.Run("missing data", func(t *testing.T) {
		_, err := c.Do(ctx, Request{Path: "/nodata"}, &payload{})
		if KindOf(err) != KindMalformed {
			t.Fatalf("expected malformed, got %v", err)
		}
		// callers that need no payload accept it
		if _, err := c.Do(ctx, Request{Path: "/nodata"}, nil); err != nil {
			t.Fatalf("expected nil error without out, got %v", err)
		}
	})

	t.Run("not json", func(t *testing.T) {
		_, err := c.Do(ctx, Request{Path: "/garbage"}, &payload{})
		if KindOf(err) != KindMalformed {
			t.Fatalf("expected malformed, got %v", err)
		}
	})
}

func TestDoErrorBodies(t *testing.T) {
	srv := newServer(t, func(e *echo.Echo) {
		e.POST("/detail", func(c echo.Context) error {
			return c.JSON(http.StatusBadRequest, echo.Map{"detail": "Incorrect username or password"})
		})
		e.POST("/validation", func(c echo.Context) error {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": []echo.Map{
				{"loc": []any{"body", "password"}, "msg": "field required"},
				{"loc": []any{"body", "username"}, "msg": "too short"},
			}})
		})
		e.POST("/message", func(c echo.Context) error {
			return c.JSON(http.StatusConflict, echo.Map{"message": "username taken"})
		})
		e.POST("/boom", func(c echo.Context) error {
			return c.String(http.StatusBadGateway, "bad gateway")
		})
	})
	c := New(srv.URL)
	ctx := context.Background()

	tests := []struct {
		path    string
		kind    ErrorKind
		status  int
		message string
	}{
		{"/detail", KindRejected, 400, "Incorrect username or password"},
		{"/validation", KindRejected, 422, "password: field required, username: too short"},
		{"/message", KindRejected, 409, "username taken"},
		{"/boom", KindServer, 502, "login failed (502)"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: tt.path, Body: payload{Name: "x"}, Op: "login"}, nil)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %T %v", err, err)
			}
			if apiErr.Kind != tt.kind || apiErr.Status != tt.status || apiErr.Message != tt.message {
				t.Fatalf("got kind=%s status=%d message=%q", apiErr.Kind, apiErr.Status, apiErr.Message)
			}
		})
	}
}

func TestDoNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Do(context.Background(), Request{Path: "/api/stocks"}, nil)
	if KindOf(err) != KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
	if Guidance(KindNetwork) == Guidance(KindRejected) {
		t.Fatal("network and rejection guidance must differ")
	}
}

func TestDoHeadersAndBearer(t *testing.T) {
	var gotAuth, gotRequestID, gotContentType atomic.Value
	srv := newServer(t, func(e *echo.Echo) {
		e.POST("/echo", func(c echo.Context) error {
			gotAuth.Store(c.Request().Header.Get("Authorization"))
			gotRequestID.Store(c.Request().Header.Get("X-Request-ID"))
			gotContentType.Store(c.Request().Header.Get("Content-Type"))
			var p payload
			if err := c.Bind(&p); err != nil {
				return err
			}
			return c.JSON(http.StatusOK, echo.Map{"success": true, "data": p})
		})
	})

	c := New(srv.URL, WithTokenSource(TokenFunc(func() string { return "from-source" })))
	var out payload
	if _, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/echo", Body: payload{Name: "hi"}}, &out); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if out.Name != "hi" {
		t.Fatalf("body not echoed: %+v", out)
	}
	if gotAuth.Load() != "Bearer from-source" {
		t.Fatalf("unexpected Authorization %v", gotAuth.Load())
	}
	if gotRequestID.Load() == "" {
		t.Fatal("expected X-Request-ID header")
	}
	if gotContentType.Load() != "application/json" {
		t.Fatalf("unexpected Content-Type %v", gotContentType.Load())
	}

	// explicit token wins
	if _, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/echo", Body: payload{}, Token: "explicit"}, nil); err != nil {
		t.Fatal(err)
	}
	if gotAuth.Load() != "Bearer explicit" {
		t.Fatalf("expected explicit token, got %v", gotAuth.Load())
	}
}

func TestUnauthorizedPolicy(t *testing.T) {
	srv := newServer(t, func(e *echo.Echo) {
		e.GET("/private", func(c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "token expired"})
		})
		e.GET("/forbidden", func(c echo.Context) error {
			return c.JSON(http.StatusForbidden, echo.Map{"detail": "nope"})
		})
		e.GET("/missing", func(c echo.Context) error {
			return c.JSON(http.StatusNotFound, echo.Map{"detail": "no such stock"})
		})
	})

	var calls []int
	c := New(srv.URL)
	c.SetUnauthorizedHandler(func(ctx context.Context, status int) {
		calls = append(calls, status)
	})
	ctx := context.Background()

	_, err := c.Do(ctx, Request{Path: "/private"}, nil)
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	_, _ = c.Do(ctx, Request{Path: "/forbidden"}, nil)
	_, _ = c.Do(ctx, Request{Path: "/missing"}, nil)
	_, _ = c.Do(ctx, Request{Path: "/private", SkipAuthPolicy: true}, nil)

	if len(calls) != 2 || calls[0] != 401 || calls[1] != 403 {
		t.Fatalf("expected handler for 401 and 403 only, got %v", calls)
	}
}

type countingTransport struct {
	calls atomic.Int32
}

func (t *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return http.DefaultTransport.RoundTrip(r)
}

func TestClientOptions(t *testing.T) {
	var gotUA atomic.Value
	srv := newServer(t, func(e *echo.Echo) {
		e.GET("/ua", func(c echo.Context) error {
			gotUA.Store(c.Request().UserAgent())
			return c.JSON(http.StatusOK, echo.Map{"success": true})
		})
		e.GET("/private", func(c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "token expired"})
		})
	})

	transport := &countingTransport{}
	var statuses []int
	c := New(srv.URL+"/",
		WithHTTPClient(&http.Client{Transport: transport}),
		WithUserAgent("stockdash-test/1"),
		WithUnauthorizedHandler(func(ctx context.Context, status int) {
			statuses = append(statuses, status)
		}))

	if c.BaseURL() != srv.URL {
		t.Fatalf("expected trailing slash trimmed, got %q", c.BaseURL())
	}

	ctx := context.Background()
	if _, err := c.Do(ctx, Request{Path: "/ua"}, nil); err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if gotUA.Load() != "stockdash-test/1" {
		t.Fatalf("unexpected User-Agent %v", gotUA.Load())
	}
	_, _ = c.Do(ctx, Request{Path: "/private"}, nil)

	if transport.calls.Load() != 2 {
		t.Fatalf("expected the custom client to carry both calls, got %d", transport.calls.Load())
	}
	if len(statuses) != 1 || statuses[0] != http.StatusUnauthorized {
		t.Fatalf("expected handler from options to see the 401, got %v", statuses)
	}
}
