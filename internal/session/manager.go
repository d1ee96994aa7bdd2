package session

import (
	"context"
	"sync"
	"time"

	"github.com/tabletap/gateway/internal/credstore"
	"github.com/tabletap/gateway/internal/logger"
)

// DefaultSweepInterval is how often tracked sessions are re-checked in
// the background, on top of the per-navigation checks
const DefaultSweepInterval = 5 * time.Minute

// Manager tracks the active gateway sessions and keeps their credential
// mirrors fresh. Each session is one browser, identified by the sid
// cookie; its credential set lives namespaced in the shared backing.
type Manager struct {
	ctrl     *Controller
	backing  credstore.Store
	interval time.Duration
	logger   logger.Logger

	mu       sync.Mutex
	sessions map[string]struct{}
}

func NewManager(ctrl *Controller, backing credstore.Store, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Manager{
		ctrl:     ctrl,
		backing:  backing,
		interval: DefaultSweepInterval,
		logger:   log,
		sessions: make(map[string]struct{}),
	}
}

// StoreFor returns the credential store view of one session
func (m *Manager) StoreFor(sid string) credstore.Store {
	return credstore.Namespaced(m.backing, "session:"+sid)
}

// Track registers a session for background sweeping
func (m *Manager) Track(sid string) {
	m.mu.Lock()
	m.sessions[sid] = struct{}{}
	m.mu.Unlock()
}

// Forget clears a session's credential mirror and stops sweeping it
func (m *Manager) Forget(ctx context.Context, sid string) {
	m.mu.Lock()
	delete(m.sessions, sid)
	m.mu.Unlock()

	if err := credstore.ClearSession(ctx, m.StoreFor(sid)); err != nil {
		m.logger.Error("clearing session mirror failed", "sid", sid, "error", err.Error())
	}
}

// Check runs the refresh decision for one tracked session. Terminal
// failure unregisters the session.
func (m *Manager) Check(ctx context.Context, sid string, force bool) (Outcome, error) {
	hooks := Hooks{
		OnFailed: func() {
			m.mu.Lock()
			delete(m.sessions, sid)
			m.mu.Unlock()
		},
	}

	return m.ctrl.CheckAndRefresh(ctx, m.StoreFor(sid), force, hooks)
}

// Sweep re-checks every tracked session once
func (m *Manager) Sweep(ctx context.Context, force bool) {
	m.mu.Lock()
	sids := make([]string, 0, len(m.sessions))
	for sid := range m.sessions {
		sids = append(sids, sid)
	}
	m.mu.Unlock()

	for _, sid := range sids {
		outcome, err := m.Check(ctx, sid, force)
		if err != nil {
			m.logger.Warn("session sweep check", "sid", sid, "outcome", outcome.String(), "error", err.Error())
		}
	}
}

// ForceRefreshAll renews every tracked session regardless of the
// renewal threshold. Triggered by the upstream push channel.
func (m *Manager) ForceRefreshAll(ctx context.Context) {
	m.Sweep(ctx, true)
}

// DropAll tears down every tracked session. Triggered by the upstream
// forced-logout push event.
func (m *Manager) DropAll(ctx context.Context) {
	m.mu.Lock()
	sids := make([]string, 0, len(m.sessions))
	for sid := range m.sessions {
		sids = append(sids, sid)
	}
	m.mu.Unlock()

	for _, sid := range sids {
		m.Forget(ctx, sid)
	}
}

// Run sweeps tracked sessions on a fixed interval until the context is
// cancelled
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Sweep(ctx, false)
		}
	}
}
