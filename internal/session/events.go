package session

import "github.com/existflow/stockdash/internal/model"

// Reason explains a state change
type Reason string

const (
	ReasonRestored Reason = "restored" // Initialize resolved
	ReasonLogin    Reason = "login"
	ReasonLogout   Reason = "logout"
	ReasonExpired  Reason = "expired"  // the sweep saw the expiry pass
	ReasonRejected Reason = "rejected" // a service answered 401/403
	ReasonInvalid  Reason = "invalid"  // persisted state was unusable
	ReasonUpdated  Reason = "updated"  // profile changed
)

// Event is published on every state change
type Event struct {
	State  State
	Reason Reason
	User   *model.User
}

const subscriberBuffer = 8

// Subscribe returns a channel of state changes. Delivery never blocks the
// manager; a subscriber that falls behind misses events and should read
// Snapshot instead. cancel closes the channel.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = ch
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (m *Manager) publish(ev Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
