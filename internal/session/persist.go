package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/existflow/stockdash/internal/model"
	"github.com/existflow/stockdash/internal/storage"
)

// persisted is what the store held at startup
type persisted struct {
	token     string
	user      *model.User
	expiresAt time.Time
	hasExpiry bool
}

func (m *Manager) load(ctx context.Context) (persisted, error) {
	var p persisted

	tok, err := m.get(ctx, storage.KeyToken)
	if err != nil {
		return p, err
	}
	p.token = tok

	rawUser, err := m.get(ctx, storage.KeyUser)
	if err != nil {
		return p, err
	}
	if rawUser != "" {
		p.user = decodeUser(rawUser)
	}

	rawExpiry, err := m.get(ctx, storage.KeyTokenExpiry)
	if err != nil {
		return p, err
	}
	if rawExpiry != "" {
		if ms, err := strconv.ParseInt(rawExpiry, 10, 64); err == nil {
			p.expiresAt = time.UnixMilli(ms)
			p.hasExpiry = true
		}
	}
	return p, nil
}

// get treats a missing key as empty
func (m *Manager) get(ctx context.Context, key string) (string, error) {
	v, err := m.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func decodeUser(raw string) *model.User {
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || !u.Valid() {
		return nil
	}
	return &u
}

// sessionBatch writes all three keys at once; a zero expiry removes any
// stale token_expiry in the same batch
func sessionBatch(token string, user *model.User, expiresAt time.Time) (storage.Batch, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return storage.Batch{}, fmt.Errorf("encode user: %w", err)
	}
	b := storage.Batch{Set: map[string]string{
		storage.KeyToken: token,
		storage.KeyUser:  string(data),
	}}
	if expiresAt.IsZero() {
		b.Unset = []string{storage.KeyTokenExpiry}
	} else {
		b.Set[storage.KeyTokenExpiry] = strconv.FormatInt(expiresAt.UnixMilli(), 10)
	}
	return b, nil
}

// persistUser rewrites only the user key
func (m *Manager) persistUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return m.store.Apply(ctx, storage.Batch{Set: map[string]string{storage.KeyUser: string(data)}})
}

// maxLifetime caps expires_in; longer lifetimes are treated as non-expiring
// so the seconds-to-Duration conversion cannot overflow
const maxLifetime = 100 * 365 * 24 * time.Hour

// expiryAfter converts an expires_in in seconds to an absolute time.
// Zero means no expiry.
func expiryAfter(now time.Time, expiresIn int64) time.Time {
	if expiresIn <= 0 || expiresIn > int64(maxLifetime/time.Second) {
		return time.Time{}
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}

// StoreUserData persists a session without changing the in-memory state.
// expiresIn is in seconds; zero means no expiry.
func (m *Manager) StoreUserData(ctx context.Context, token string, user *model.User, expiresIn int64) error {
	if token == "" || !user.Valid() {
		return errors.New("session: token and user are both required")
	}
	b, err := sessionBatch(token, user, expiryAfter(m.now(), expiresIn))
	if err != nil {
		return err
	}
	return m.store.Apply(ctx, b)
}

// StoredUser reads the persisted user record; nil when absent or unreadable
func (m *Manager) StoredUser(ctx context.Context) (*model.User, error) {
	raw, err := m.get(ctx, storage.KeyUser)
	if err != nil || raw == "" {
		return nil, err
	}
	return decodeUser(raw), nil
}

// StoredToken reads the persisted token; "" when absent
func (m *Manager) StoredToken(ctx context.Context) (string, error) {
	return m.get(ctx, storage.KeyToken)
}
