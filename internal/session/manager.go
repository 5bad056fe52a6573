// Package session maps browser sessions to their wizards and evicts idle
// ones.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hotelwizard/internal/wizard"
)

// Factory builds the wizard for a new session id.
type Factory func(sessionID string) *wizard.Wizard

type entry struct {
	wizard   *wizard.Wizard
	lastSeen time.Time
}

type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	factory Factory
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func NewManager(factory Factory, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		entries: make(map[string]*entry),
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
	}
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether s looks like an id issued by NewID.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Get returns the live wizard for a session and marks it as used.
func (m *Manager) Get(sessionID string) (*wizard.Wizard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, false
	}
	e.lastSeen = m.now()
	return e.wizard, true
}

// GetOrCreate returns the session's wizard, building it on first use.
func (m *Manager) GetOrCreate(sessionID string) (*wizard.Wizard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[sessionID]; ok {
		e.lastSeen = m.now()
		return e.wizard, false
	}
	w := m.factory(sessionID)
	m.entries[sessionID] = &entry{wizard: w, lastSeen: m.now()}
	m.logger.Debug("wizard session created", zap.String("session_id", sessionID))
	return w, true
}

// Drop forgets a session.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// went. Drafts stay in the session cache and cookies, so a returning guest
// gets them back on the next mount.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.ttl)
	n := 0
	for sid, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			delete(m.entries, sid)
			n++
		}
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("idle wizard sessions evicted", zap.Int("count", n))
			}
		}
	}
}
