package call

import (
	"context"
	"errors"
	"sync"
)

// ErrSessionActive is returned by [Manager.Start] while another session still
// holds resources.
var ErrSessionActive = errors.New("call: a session is already active")

// Manager enforces the single-session rule: at most one live [Session] at a
// time. A finished session frees the slot without explicit release.
type Manager struct {
	mu     sync.Mutex
	active *Session
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Start launches s as the active session. Returns [ErrSessionActive] if a
// previous session has not finished yet.
func (m *Manager) Start(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		select {
		case <-m.active.Done():
		default:
			return ErrSessionActive
		}
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	m.active = s
	return nil
}

// Active returns the current session, nil when none was started or the last
// one finished.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	select {
	case <-m.active.Done():
		return nil
	default:
		return m.active
	}
}

// End hangs up the active session, if any, and waits for its teardown.
func (m *Manager) End() {
	m.mu.Lock()
	s := m.active
	m.mu.Unlock()
	if s == nil {
		return
	}
	s.Hangup()
	<-s.Done()
}
