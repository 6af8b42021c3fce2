package session

import (
	"context"
	"time"

	"github.com/existflow/stockdash/internal/api"
	"github.com/existflow/stockdash/internal/logger"
	"github.com/existflow/stockdash/internal/storage"
	"github.com/existflow/stockdash/internal/token"
)

// Initialize restores the persisted session. It always leaves the manager
// authenticated or unauthenticated and publishes the outcome.
func (m *Manager) Initialize(ctx context.Context) State {
	m.mu.Lock()
	m.state = StateInitializing
	m.mu.Unlock()

	p, err := m.load(ctx)
	if err != nil {
		// keep the data; it may be fine once storage is back
		logger.Error("Failed to read session", logger.F("error", err))
		return m.resolve(ctx, persisted{}, ReasonInvalid, false)
	}

	if p.token == "" {
		if p.user != nil {
			logger.Warn("Session user without token, clearing")
			return m.resolve(ctx, persisted{}, ReasonInvalid, true)
		}
		return m.resolve(ctx, persisted{}, ReasonRestored, false)
	}

	if !p.hasExpiry {
		exp, ok, err := token.ExpiresAt(p.token)
		switch {
		case err != nil:
			logger.Warn("Stored token is unreadable, clearing", logger.F("error", err))
			return m.resolve(ctx, persisted{}, ReasonInvalid, true)
		case ok:
			p.expiresAt = exp
		}
	}

	if !p.expiresAt.IsZero() && !m.now().Before(p.expiresAt) {
		logger.Info("Stored session expired", logger.F("expired_at", p.expiresAt.Format(time.RFC3339)))
		return m.resolve(ctx, persisted{}, ReasonExpired, true)
	}

	if p.user != nil {
		logger.Info("Session restored", logger.F("username", p.user.Username))
		return m.resolve(ctx, p, ReasonRestored, false)
	}

	user, err := m.auth.CurrentUser(ctx, p.token)
	if err == nil && user.Valid() {
		p.user = user
		if err := m.persistUser(ctx, user); err != nil {
			logger.Warn("Failed to persist fetched user", logger.F("error", err))
		}
		logger.Info("Session restored from auth service", logger.F("username", user.Username))
		return m.resolve(ctx, p, ReasonRestored, false)
	}
	if err == nil {
		err = api.Errorf(api.KindMalformed, "verify returned no user")
	}

	m.mu.RLock()
	cached := m.user.Clone()
	m.mu.RUnlock()
	if cached != nil {
		logger.Warn("Could not verify token, using cached user", logger.F("error", err))
		p.user = cached
		return m.resolve(ctx, p, ReasonRestored, false)
	}

	logger.Warn("Could not verify token, clearing session", logger.F("error", err))
	return m.resolve(ctx, persisted{}, ReasonInvalid, true)
}

// resolve ends initialization
func (m *Manager) resolve(ctx context.Context, p persisted, reason Reason, clear bool) State {
	if clear {
		if err := storage.Clear(ctx, m.store); err != nil {
			logger.Error("Failed to clear session", logger.F("error", err))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(p.token, p.user, p.expiresAt)
	m.publish(Event{State: m.state, Reason: reason, User: m.user.Clone()})
	return m.state
}

// Login exchanges credentials for a session. Inputs are not re-validated.
// Nothing is changed unless the response carries both token and user.
func (m *Manager) Login(ctx context.Context, username, password string) Result {
	m.mu.Lock()
	if m.loggingIn {
		m.mu.Unlock()
		return failure(api.Errorf(api.KindBusy, "a login is already in progress"))
	}
	m.loggingIn = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.loggingIn = false
		m.mu.Unlock()
	}()

	logger.Info("Logging in", logger.F("username", username))
	resp, err := m.auth.Login(ctx, username, password)
	if err != nil {
		logger.Warn("Login failed", logger.F("username", username), logger.F("kind", string(api.KindOf(err))), logger.F("error", err))
		return failure(err)
	}

	now := m.now()
	var expiresAt time.Time
	if resp.ExpiresIn > 0 {
		expiresAt = expiryAfter(now, resp.ExpiresIn)
	} else if exp, ok, err := token.ExpiresAt(resp.AccessToken); err == nil && ok {
		expiresAt = exp
	}
	if !expiresAt.IsZero() && !now.Before(expiresAt) {
		return failure(api.Errorf(api.KindMalformed, "server issued an already expired token"))
	}

	user := resp.User.Clone()
	b, err := sessionBatch(resp.AccessToken, user, expiresAt)
	if err != nil {
		return failure(&api.Error{Kind: api.KindMalformed, Message: "invalid user record from server", Err: err})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Apply(ctx, b); err != nil {
		logger.Error("Failed to persist session", logger.F("error", err))
		return failure(&api.Error{Kind: api.KindStorage, Message: "could not save session", Err: err})
	}
	m.setLocked(resp.AccessToken, user, expiresAt)
	m.publish(Event{State: m.state, Reason: ReasonLogin, User: user.Clone()})

	logger.Info("Logged in",
		logger.F("username", user.Username),
		logger.F("token_len", len(resp.AccessToken)),
		logger.F("expires", !expiresAt.IsZero()))
	return Result{Success: true, User: user.Clone(), Message: "Login successful"}
}

// Logout clears the session locally. It never calls the server and is a
// no-op when already logged out.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked(ctx, ReasonLogout)
}

// clearLocked wipes storage and memory; it publishes only when a session
// existed
func (m *Manager) clearLocked(ctx context.Context, reason Reason) error {
	had := m.token != "" || m.user != nil
	err := storage.Clear(ctx, m.store)
	if err != nil {
		logger.Error("Failed to clear persisted session", logger.F("error", err))
	}
	m.setLocked("", nil, time.Time{})
	if had {
		logger.Info("Session ended", logger.F("reason", string(reason)))
		m.publish(Event{State: m.state, Reason: reason})
	}
	return err
}

// HandleUnauthorized is the global 401/403 policy. Any authentication
// rejection from a service call ends the session.
func (m *Manager) HandleUnauthorized(ctx context.Context, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return
	}
	logger.Warn("Service rejected the session", logger.F("status", status))
	_ = m.clearLocked(ctx, ReasonRejected)
}

// expireIfDue ends the session when its expiry has passed
func (m *Manager) expireIfDue(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || m.expiresAt.IsZero() || m.now().Before(m.expiresAt) {
		return false
	}
	_ = m.clearLocked(ctx, ReasonExpired)
	return true
}
