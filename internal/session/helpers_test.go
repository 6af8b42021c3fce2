package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/existflow/stockdash/internal/auth"
	"github.com/existflow/stockdash/internal/model"
	"github.com/existflow/stockdash/internal/storage"
)

var epoch = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeAuth struct {
	mu           sync.Mutex
	login        func(ctx context.Context, username, password string) (*auth.LoginResponse, error)
	current      func(ctx context.Context, token string) (*model.User, error)
	currentCalls int
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*auth.LoginResponse, error) {
	f.mu.Lock()
	fn := f.login
	f.mu.Unlock()
	if fn == nil {
		return nil, errors.New("login not configured")
	}
	return fn(ctx, username, password)
}

func (f *fakeAuth) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	f.currentCalls++
	fn := f.current
	f.mu.Unlock()
	if fn == nil {
		return nil, errors.New("verify not configured")
	}
	return fn(ctx, token)
}

func (f *fakeAuth) CurrentCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentCalls
}

func grant(token string, user *model.User, expiresIn int64) func(context.Context, string, string) (*auth.LoginResponse, error) {
	return func(context.Context, string, string) (*auth.LoginResponse, error) {
		return &auth.LoginResponse{AccessToken: token, User: user.Clone(), ExpiresIn: expiresIn}, nil
	}
}

// failingStore fails every read
type failingStore struct {
	*storage.MemoryStore
	applied int
}

func (f *failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("disk on fire")
}

func (f *failingStore) Apply(ctx context.Context, b storage.Batch) error {
	f.applied++
	return f.MemoryStore.Apply(ctx, b)
}

func newManager(t *testing.T, a Authenticator, opts ...Option) (*Manager, *storage.MemoryStore, *fakeClock) {
	t.Helper()
	store := storage.NewMemoryStore()
	clock := newClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	m := New(store, a, opts...)
	t.Cleanup(func() { _ = m.Close() })
	return m, store, clock
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(exp)}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func mustGet(t *testing.T, s storage.Store, key string) string {
	t.Helper()
	v, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	return v
}

func assertCleared(t *testing.T, s storage.Store) {
	t.Helper()
	for _, k := range storage.SessionKeys {
		if _, err := s.Get(context.Background(), k); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected %s to be cleared, got err=%v", k, err)
		}
	}
}

func waitEvent(t *testing.T, ch <-chan Event, want Reason) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("subscription closed while waiting for %s", want)
			}
			if ev.Reason == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func noEvent(t *testing.T, ch <-chan Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}
