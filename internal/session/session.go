// Package session keeps per-customer browsing state: a cart and an order
// wizard behind one mutex so events are applied one at a time.
package session

import (
	"context"
	"sync"
	"time"

	"pizzaria/internal/cart"
	"pizzaria/internal/model"
	"pizzaria/internal/wizard"

	"github.com/google/uuid"
)

// Session is one browsing session.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	cart     *cart.Store
	wizard   *wizard.Wizard
	lastSeen time.Time
}

func newSession(provider string, now time.Time) *Session {
	c := cart.New()
	return &Session{
		ID:       uuid.New(),
		cart:     c,
		wizard:   wizard.New(c, provider),
		lastSeen: now,
	}
}

// Do runs fn with exclusive access to the cart and the wizard.
func (s *Session) Do(fn func(c *cart.Store, w *wizard.Wizard) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.cart, s.wizard)
}

// Confirm submits the wizard's checkout. The session lock is released while
// the provider call is in flight; concurrent events see ErrCheckoutInFlight.
func (s *Session) Confirm(ctx context.Context, checkout wizard.Checkout) (*model.CheckoutResult, error) {
	s.mu.Lock()
	req, err := s.wizard.BeginConfirm()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	result, err := checkout.CreateCheckoutSession(ctx, req)

	s.mu.Lock()
	s.wizard.FinishConfirm(result, err)
	s.mu.Unlock()

	return result, err
}

// Summary returns the cart totals and the wizard view taken under one lock.
func (s *Session) Summary(t model.FulfillmentType) (model.CartSummary, wizard.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, err := s.cart.Summary(t)
	return summary, s.wizard.View(), err
}

// Manager owns all live sessions and expires idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	provider string
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a session manager. Sessions idle longer than ttl are
// removed by Sweep. provider is the default payment provider of new wizards.
func NewManager(provider string, ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := newSession(m.provider, m.now())
	m.sessions[s.ID] = s
	return s
}

// Get returns a live session and refreshes its idle timer.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	s.lastSeen = m.now()
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the ttl and returns how many
// were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	removed := 0
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
