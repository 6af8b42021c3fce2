package app

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/existflow/stockdash/internal/apitest"
	"github.com/existflow/stockdash/internal/config"
	"github.com/existflow/stockdash/internal/session"
	"github.com/existflow/stockdash/internal/storage"
)

func testConfig(srvURL, dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AuthURL, cfg.StockURL, cfg.NewsURL = srvURL, srvURL, srvURL
	cfg.Storage = config.StorageConfig{Driver: "file", Dir: dir, Profile: "test"}
	return cfg
}

func TestSessionSurvivesRestart(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	cfg := testConfig(srv.URL, t.TempDir())
	ctx := context.Background()

	first, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first.Session.Initialize(ctx)
	if res := first.Session.Login(ctx, "admin", "abc123"); !res.Success {
		t.Fatalf("login: %+v", res)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New after restart: %v", err)
	}
	defer second.Close()
	if got := second.Session.Initialize(ctx); got != session.StateAuthenticated {
		t.Fatalf("expected restored session, got %s", got)
	}

	stocks, err := second.Market.ListStocks(ctx)
	if err != nil || len(stocks) == 0 {
		t.Fatalf("ListStocks with restored session: %d %v", len(stocks), err)
	}
}

func TestUnauthorizedFromAnyServiceLogsOut(t *testing.T) {
	srv := apitest.New()
	defer srv.Close()
	store := storage.NewMemoryStore()
	a, err := New(context.Background(), testConfig(srv.URL, t.TempDir()), WithStore(store))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	ctx := context.Background()

	a.Session.Initialize(ctx)
	a.Session.Login(ctx, "admin", "abc123")
	srv.FailMarket(http.StatusForbidden)

	if _, err := a.Market.ListNews(ctx, 5); err == nil {
		t.Fatal("expected error")
	}
	if a.Session.IsAuthenticated() || store.Len() != 0 {
		t.Fatal("a 403 from the news service must clear the session")
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1", t.TempDir())
	cfg.Storage.Driver = "floppy"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestContextCarriesManager(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1", filepath.Join(t.TempDir(), "data"))
	cfg.Storage.Driver = "memory"
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	m, ok := session.FromContext(a.Context(context.Background()))
	if !ok || m != a.Session {
		t.Fatal("expected the app's manager in context")
	}
}
