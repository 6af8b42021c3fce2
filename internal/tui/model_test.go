package tui

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/existflow/stockdash/internal/apitest"
	"github.com/existflow/stockdash/internal/app"
	"github.com/existflow/stockdash/internal/config"
	"github.com/existflow/stockdash/internal/session"
	"github.com/existflow/stockdash/internal/storage"
	"github.com/existflow/stockdash/internal/validate"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestModel(t *testing.T) (Model, *apitest.Server, *testClock) {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.AuthURL, cfg.StockURL, cfg.NewsURL = srv.URL, srv.URL, srv.URL
	cfg.SweepInterval = time.Hour

	clock := &testClock{now: time.Now()}
	a, err := app.New(context.Background(), cfg,
		app.WithStore(storage.NewMemoryStore()),
		app.WithSessionOptions(session.WithClock(clock.Now)))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	m, err := NewModel(a.Context(context.Background()), a.Market)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	t.Cleanup(m.cancelEvents)
	return m, srv, clock
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func initialized(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, m.initializeCmd()())
	return m
}

func loggedIn(t *testing.T, m Model) Model {
	t.Helper()
	m = typeText(t, m, "admin")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "abc123")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a login command")
	}
	m, refresh := update(t, m, cmd())
	if refresh == nil {
		t.Fatal("expected a refresh after login")
	}
	m, _ = update(t, m, refresh())
	return m
}

func TestNewModelNeedsSessionInContext(t *testing.T) {
	if _, err := NewModel(context.Background(), nil); err == nil {
		t.Fatal("expected an error without a session manager")
	}
}

func TestLoadingViewWhileInitializing(t *testing.T) {
	m, _, _ := newTestModel(t)
	if m.screen() != ScreenLoading {
		t.Fatalf("expected loading screen, got %v", m.screen())
	}
	if !strings.Contains(m.View(), "Checking your session") {
		t.Fatalf("unexpected loading view:\n%s", m.View())
	}
}

func TestLoginViewAfterEmptyInit(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = initialized(t, m)
	if m.screen() != ScreenLogin {
		t.Fatalf("expected login screen, got %v", m.screen())
	}
	view := m.View()
	if !strings.Contains(view, "Username") || !strings.Contains(view, "Password") {
		t.Fatalf("unexpected login view:\n%s", view)
	}
	if strings.Contains(view, "VNM") {
		t.Fatal("dashboard data shown without a session")
	}
}

func TestEmptyCredentialsNeverReachServer(t *testing.T) {
	m, srv, _ := newTestModel(t)
	m = initialized(t, m)

	// enter on the username field moves to the password field
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.field != fieldPassword {
		t.Fatal("expected focus on the password field")
	}
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("expected no login command for empty credentials")
	}
	if m.errorMsg != validate.ErrEmptyUsername.Error() {
		t.Fatalf("unexpected error message %q", m.errorMsg)
	}
	if srv.LoginCalls() != 0 {
		t.Fatalf("expected no login requests, got %d", srv.LoginCalls())
	}
}

func TestWrongPasswordStaysOnLogin(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = initialized(t, m)
	m = typeText(t, m, "admin")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "nope")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())

	if m.screen() != ScreenLogin {
		t.Fatalf("expected login screen, got %v", m.screen())
	}
	if !strings.Contains(m.errorMsg, "Incorrect username or password") {
		t.Fatalf("unexpected error %q", m.errorMsg)
	}
	if m.password.Value() != "" {
		t.Fatal("expected password cleared after failure")
	}
}

func TestDashboardAfterLogin(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = initialized(t, m)
	m = loggedIn(t, m)

	if m.screen() != ScreenDashboard {
		t.Fatalf("expected dashboard, got %v", m.screen())
	}
	view := m.View()
	for _, want := range []string{"VNM", "FPT", "Admin User", "Bullish"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in dashboard:\n%s", want, view)
		}
	}
}

func TestNewsFailureKeepsStocks(t *testing.T) {
	m, srv, _ := newTestModel(t)
	srv.FailRoute("/api/news", http.StatusInternalServerError)
	m = initialized(t, m)
	m = loggedIn(t, m)

	if len(m.stocks) != 5 {
		t.Fatalf("expected stocks kept, got %d", len(m.stocks))
	}
	if len(m.news) != 0 {
		t.Fatalf("expected no news, got %d", len(m.news))
	}
	if m.sentiment.Label != "Bullish" {
		t.Fatalf("expected sentiment kept, got %+v", m.sentiment)
	}
	if m.errorMsg == "" {
		t.Fatal("expected the news failure to be reported")
	}
	if !m.session.IsAuthenticated() {
		t.Fatal("a 500 must not end the session")
	}
	if !strings.Contains(m.View(), "VNM") {
		t.Fatalf("expected stocks on the dashboard:\n%s", m.View())
	}
}

func TestRefreshAfterRejectionShowsNothing(t *testing.T) {
	m, srv, _ := newTestModel(t)
	m = initialized(t, m)
	m = loggedIn(t, m)
	m.clearData()

	srv.FailRoute("/api/stocks", http.StatusUnauthorized)
	cmd := m.startRefresh()
	m, _ = update(t, m, cmd())

	if m.session.IsAuthenticated() {
		t.Fatal("expected the 401 to end the session")
	}
	if len(m.stocks) != 0 || len(m.news) != 0 {
		t.Fatal("data loaded alongside a rejected call must be dropped")
	}
}

func TestSearchFiltersTable(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = initialized(t, m)
	m = loggedIn(t, m)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if m.mode != ModeSearch {
		t.Fatal("expected search mode")
	}
	m = typeText(t, m, "fpt")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	p := m.page()
	if p.Total != 1 || p.Stocks[0].Symbol != "FPT" {
		t.Fatalf("unexpected search result %+v", p)
	}
}

func TestExpiredSessionReturnsToLogin(t *testing.T) {
	m, _, clock := newTestModel(t)
	m = initialized(t, m)
	m = loggedIn(t, m)

	clock.Advance(2 * time.Hour)
	if !m.session.CheckExpiry(context.Background()) {
		t.Fatal("expected the session to expire")
	}

	for i := 0; i < subscriberDrainLimit; i++ {
		msg := m.waitForEvent()()
		ev, ok := msg.(sessionEventMsg)
		if !ok {
			t.Fatalf("unexpected message %T", msg)
		}
		m, _ = update(t, m, ev)
		if ev.event.Reason == session.ReasonExpired {
			break
		}
	}

	if m.screen() != ScreenLogin {
		t.Fatalf("expected login screen, got %v", m.screen())
	}
	if !strings.Contains(m.View(), "Your session has expired") {
		t.Fatalf("expected expiry message:\n%s", m.View())
	}
	if len(m.stocks) != 0 {
		t.Fatal("expected dashboard data cleared")
	}
}

func TestLogoutKey(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = initialized(t, m)
	m = loggedIn(t, m)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("L")})
	if m.session.IsAuthenticated() || m.screen() != ScreenLogin {
		t.Fatal("expected logged out")
	}
}

const subscriberDrainLimit = 8
