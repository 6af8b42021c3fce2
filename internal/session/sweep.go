package session

import (
	"context"
	"time"

	"github.com/existflow/stockdash/internal/logger"
)

// StartSweep starts the background expiry check. It runs until ctx is
// cancelled or Close is called. Later calls do nothing.
func (m *Manager) StartSweep(ctx context.Context) {
	m.sweepOnce.Do(func() {
		go m.sweepLoop(ctx)
	})
}

func (m *Manager) sweepLoop(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	logger.Debug("Expiry sweep started", logger.F("interval", m.interval.String()))
	for {
		select {
		case <-ticker.C:
			if m.expireIfDue(ctx) {
				logger.Info("Session expired during sweep")
			}
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		}
	}
}

// CheckExpiry runs one sweep step now and reports whether it ended the session
func (m *Manager) CheckExpiry(ctx context.Context) bool {
	return m.expireIfDue(ctx)
}

// Close stops the sweep and waits for it to exit. Subscriptions stay open.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopCh)
		started := true
		// a sweep that never started has nothing to wait for
		m.sweepOnce.Do(func() {
			started = false
			close(m.doneCh)
		})
		if started {
			<-m.doneCh
		}
	})
	return nil
}
