// Package session owns the authentication session: the token, the user it
// belongs to and when it expires. It is the only reader and writer of the
// persisted session keys.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/existflow/stockdash/internal/auth"
	"github.com/existflow/stockdash/internal/model"
	"github.com/existflow/stockdash/internal/storage"
)

// DefaultSweepInterval is how often an active session is re-checked for expiry
const DefaultSweepInterval = 30 * time.Second

// State of the session
type State int

const (
	StateInitializing State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Authenticator is the part of the auth service the manager needs
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.LoginResponse, error)
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

// Accounts is implemented by authenticators that also manage accounts
type Accounts interface {
	Register(ctx context.Context, req auth.RegisterRequest) (string, error)
	UpdateProfile(ctx context.Context, patch model.ProfilePatch) (*model.User, string, error)
	ChangePassword(ctx context.Context, current, next string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, resetToken, password string) (string, error)
}

// Snapshot is a consistent copy of the session
type Snapshot struct {
	State         State
	User          *model.User
	ExpiresAt     time.Time // zero when the session does not expire
	Authenticated bool
}

// Manager is the single owner of the session record
type Manager struct {
	store    storage.Store
	auth     Authenticator
	accounts Accounts
	now      func() time.Time
	interval time.Duration

	mu        sync.RWMutex
	state     State
	token     string
	user      *model.User
	expiresAt time.Time
	loggingIn bool

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int

	sweepOnce sync.Once
	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSweepInterval sets the expiry check period
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// New creates a manager in the initializing state. Call Initialize next.
func New(store storage.Store, authClient Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		auth:     authClient,
		now:      time.Now,
		interval: DefaultSweepInterval,
		state:    StateInitializing,
		subs:     make(map[int]chan Event),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	m.accounts, _ = authClient.(Accounts)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated reports token and user present and not expired.
// It never performs I/O.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.validLocked(m.now())
}

func (m *Manager) validLocked(now time.Time) bool {
	if m.token == "" || m.user == nil {
		return false
	}
	return m.expiresAt.IsZero() || now.Before(m.expiresAt)
}

// Snapshot returns a copy of the session
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:         m.state,
		User:          m.user.Clone(),
		ExpiresAt:     m.expiresAt,
		Authenticated: m.validLocked(m.now()),
	}
}

// User returns a copy of the logged-in user, or nil
func (m *Manager) User() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.validLocked(m.now()) {
		return nil
	}
	return m.user.Clone()
}

// Token returns the bearer token of a valid session, or "".
// Manager satisfies api.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.validLocked(m.now()) {
		return ""
	}
	return m.token
}

// setLocked replaces the in-memory session
func (m *Manager) setLocked(token string, user *model.User, expiresAt time.Time) {
	m.token = token
	m.user = user
	m.expiresAt = expiresAt
	if token != "" && user != nil {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}
}

type ctxKey struct{}

// NewContext returns a context carrying m
func NewContext(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, ctxKey{}, m)
}

// FromContext returns the manager stored by NewContext
func FromContext(ctx context.Context) (*Manager, bool) {
	m, ok := ctx.Value(ctxKey{}).(*Manager)
	return m, ok && m != nil
}
